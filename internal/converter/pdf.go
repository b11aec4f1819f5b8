package converter

import (
	"context"
	"path/filepath"
)

// pdfConverter renders PDF via asciidoctor-pdf. Languages whose glyphs fall
// outside the default fonts select a scripts variant so the bundled themes
// pick suitable font families.
type pdfConverter struct{}

func (pdfConverter) Name() string            { return "pdf" }
func (pdfConverter) OutputExtension() string { return ".pdf" }
func (pdfConverter) Priority() int           { return 1 }

func (pdfConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor-pdf")
}

// scriptsAttribute returns the asciidoctor-pdf scripts attribute for a
// language, or "" when the default fonts cover it.
func scriptsAttribute(language string) string {
	switch language {
	case "ZH", "JA", "KO":
		return "scripts=cjk"
	case "RU", "UKR":
		return "scripts=cyrillic"
	}
	return ""
}

func (c pdfConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.OutputExtension())
	extra := []string{"imagesdir=" + cc.ImagesDir()}
	if s := scriptsAttribute(cc.Language); s != "" {
		extra = append(extra, s)
	}
	args := asciidoctorArgs(cc, "pdf", outPath, extra...)
	if _, err := runTool(ctx, "asciidoctor-pdf", args...); err != nil {
		removePartial(outPath)
		return "", err
	}
	return outPath, nil
}
