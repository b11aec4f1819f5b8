package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// multipageMarkdownConverter renders one Markdown file per chapter. The
// intermediate HTML is split on asciidoctor's top-level section containers,
// each chunk is converted separately into chapters/, and an index document
// linking them is generated next to it.
type multipageMarkdownConverter struct {
	name      string
	indexName string
	github    bool
}

func (c multipageMarkdownConverter) Name() string          { return c.name }
func (multipageMarkdownConverter) OutputExtension() string { return ".md" }
func (multipageMarkdownConverter) Priority() int           { return 3 }

func (multipageMarkdownConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor") && toolAvailable(ctx, "pandoc")
}

// sectionMarker is asciidoctor's container for a level-1 section.
const sectionMarker = `<div class="sect1">`

var (
	sectionTitleRe = regexp.MustCompile(`(?s)<h2[^>]*>(.*?)</h2>`)
	tagRe          = regexp.MustCompile(`<[^>]+>`)
	slugRe         = regexp.MustCompile(`[^a-z0-9]+`)
)

// chapter is one split-out section of the document.
type chapter struct {
	Title string
	HTML  string
}

// splitChapters separates the preamble from the level-1 sections.
func splitChapters(html string) (preamble string, chapters []chapter) {
	parts := strings.Split(html, sectionMarker)
	preamble = parts[0]
	for i, part := range parts[1:] {
		title := sectionTitle(part)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		chapters = append(chapters, chapter{Title: title, HTML: sectionMarker + part})
	}
	return preamble, chapters
}

func sectionTitle(html string) string {
	m := sectionTitleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
}

func slugify(title string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

func (c multipageMarkdownConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	htmlPath, cleanup, err := renderIntermediateHTML(ctx, cc)
	if err != nil {
		return "", err
	}
	defer cleanup()
	scratch := filepath.Dir(htmlPath)

	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"read intermediate html")
	}
	preamble, chapters := splitChapters(string(data))

	chaptersDir := filepath.Join(cc.OutputDir, "chapters")
	indexPath := filepath.Join(cc.OutputDir, c.indexName)
	// Discard whatever chapters were already written when a later one fails.
	discard := func(err error) (string, error) {
		os.RemoveAll(chaptersDir)
		removePartial(indexPath)
		return "", err
	}
	if err := os.MkdirAll(chaptersDir, 0o750); err != nil {
		return "", errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create chapters directory")
	}

	var index strings.Builder
	if body, err := c.convertChunk(ctx, scratch, preamble, "preamble"); err == nil && strings.TrimSpace(body) != "" {
		index.WriteString(body)
		index.WriteString("\n")
	} else if err != nil {
		return discard(err)
	}
	index.WriteString("\n## Chapters\n\n")

	for i, ch := range chapters {
		fileName := fmt.Sprintf("%02d-%s.md", i+1, slugify(ch.Title))
		body, err := c.convertChunk(ctx, scratch, ch.HTML, fileName)
		if err != nil {
			return discard(err)
		}
		if c.github {
			body = rewriteHeadingAnchors(body)
		}
		if err := os.WriteFile(filepath.Join(chaptersDir, fileName), []byte(body), 0o644); err != nil {
			return discard(errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
				"write chapter file"))
		}
		fmt.Fprintf(&index, "%d. [%s](chapters/%s)\n", i+1, ch.Title, fileName)
	}

	if err := os.WriteFile(indexPath, []byte(index.String()), 0o644); err != nil {
		return discard(errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"write index file"))
	}

	if c.github {
		if err := copyImagesIfPresent(cc); err != nil {
			return discard(err)
		}
	}
	return indexPath, nil
}

// convertChunk runs one HTML fragment through pandoc. Scratch files live in
// the invocation-private directory holding the intermediate HTML.
func (c multipageMarkdownConverter) convertChunk(ctx context.Context, scratch, html, label string) (string, error) {
	chunkPath := filepath.Join(scratch, fmt.Sprintf("chunk-%s.html", slugify(label)))
	if err := os.WriteFile(chunkPath, []byte(html), 0o644); err != nil {
		return "", errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"write chunk file")
	}
	defer os.Remove(chunkPath)

	outPath := chunkPath + ".md"
	defer os.Remove(outPath)
	if err := pandocFromHTML(ctx, chunkPath, outPath, "gfm", "--wrap=preserve"); err != nil {
		return "", err
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"read converted chunk")
	}
	return string(out), nil
}
