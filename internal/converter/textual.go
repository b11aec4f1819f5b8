package converter

import (
	"context"
	"path/filepath"
)

// pandocTextConverter covers the simple text formats that share the
// asciidoctor -> pandoc pipeline with no format-specific post-processing.
type pandocTextConverter struct {
	name   string
	ext    string
	target string
}

func (c pandocTextConverter) Name() string            { return c.name }
func (c pandocTextConverter) OutputExtension() string { return c.ext }
func (pandocTextConverter) Priority() int             { return 3 }

func (pandocTextConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor") && toolAvailable(ctx, "pandoc")
}

func (c pandocTextConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	htmlPath, cleanup, err := renderIntermediateHTML(ctx, cc)
	if err != nil {
		return "", err
	}
	defer cleanup()

	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.ext)
	if err := pandocFromHTML(ctx, htmlPath, outPath, c.target); err != nil {
		return "", err
	}
	return outPath, nil
}
