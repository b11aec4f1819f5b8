package converter

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// markdownConverter renders single-page Markdown via the asciidoctor ->
// pandoc pipeline. The github variant additionally copies the images/ tree
// next to the artifact and rewrites heading anchors into explicit HTML
// anchors, which GitHub-flavored Markdown renderers honor.
type markdownConverter struct {
	name   string
	ext    string
	github bool
}

func (c markdownConverter) Name() string            { return c.name }
func (c markdownConverter) OutputExtension() string { return c.ext }
func (markdownConverter) Priority() int             { return 2 }

func (markdownConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor") && toolAvailable(ctx, "pandoc")
}

func (c markdownConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	htmlPath, cleanup, err := renderIntermediateHTML(ctx, cc)
	if err != nil {
		return "", err
	}
	defer cleanup()

	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.ext)
	if err := pandocFromHTML(ctx, htmlPath, outPath, "gfm", "--wrap=preserve"); err != nil {
		return "", err
	}

	if c.github {
		if err := finishGithubMarkdown(outPath, cc); err != nil {
			removePartial(outPath)
			return "", err
		}
	}
	return outPath, nil
}

// headingAttrRe matches pandoc's heading attribute block, e.g.
// "# Introduction {#_introduction}".
var headingAttrRe = regexp.MustCompile(`(?m)^(#{1,6} .*?)\s*\{#([^}\s]+)[^}]*\}\s*$`)

// rewriteHeadingAnchors replaces attribute blocks with explicit anchors so
// intra-document links keep working on renderers without attribute support.
func rewriteHeadingAnchors(markdown string) string {
	return headingAttrRe.ReplaceAllString(markdown, "<a id=\"$2\"></a>\n\n$1")
}

func finishGithubMarkdown(outPath string, cc *Context) error {
	data, err := os.ReadFile(outPath)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"read converted markdown")
	}
	if err := os.WriteFile(outPath, []byte(rewriteHeadingAnchors(string(data))), 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"write post-processed markdown")
	}
	return copyImagesIfPresent(cc)
}

// copyImagesIfPresent mirrors the source images/ tree into the output
// directory. A template without images is fine.
func copyImagesIfPresent(cc *Context) error {
	src := cc.ImagesDir()
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	if err := copyDir(src, filepath.Join(cc.OutputDir, "images")); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"copy images into output")
	}
	return nil
}
