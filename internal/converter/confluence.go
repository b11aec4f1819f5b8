package converter

import (
	"context"
	"path/filepath"
)

// confluenceConverter renders Confluence wiki markup via the
// asciidoctor-confluence gem.
type confluenceConverter struct{}

func (confluenceConverter) Name() string            { return "confluence" }
func (confluenceConverter) OutputExtension() string { return ".xhtml" }
func (confluenceConverter) Priority() int           { return 3 }

func (confluenceConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor") && gemInstalled(ctx, "asciidoctor-confluence")
}

func (c confluenceConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.OutputExtension())
	args := []string{"-r", "asciidoctor-confluence"}
	args = append(args, asciidoctorArgs(cc, "confluence", outPath)...)
	if _, err := runTool(ctx, "asciidoctor", args...); err != nil {
		removePartial(outPath)
		return "", err
	}
	return outPath, nil
}
