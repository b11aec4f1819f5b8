package converter

import (
	"context"
	"path/filepath"
)

// docxConverter renders DOCX via the two-stage asciidoctor -> pandoc
// pipeline; pandoc embeds referenced images into the archive.
type docxConverter struct{}

func (docxConverter) Name() string            { return "docx" }
func (docxConverter) OutputExtension() string { return ".docx" }
func (docxConverter) Priority() int           { return 1 }

func (docxConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor") && toolAvailable(ctx, "pandoc")
}

func (c docxConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	htmlPath, cleanup, err := renderIntermediateHTML(ctx, cc)
	if err != nil {
		return "", err
	}
	defer cleanup()

	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.OutputExtension())
	if err := pandocFromHTML(ctx, htmlPath, outPath, "docx",
		"--resource-path="+cc.SourceDir); err != nil {
		return "", err
	}
	return outPath, nil
}
