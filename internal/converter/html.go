package converter

import (
	"context"
	"path/filepath"
)

// htmlConverter renders standalone HTML via asciidoctor.
type htmlConverter struct{}

func (htmlConverter) Name() string            { return "html" }
func (htmlConverter) OutputExtension() string { return ".html" }
func (htmlConverter) Priority() int           { return 1 }

func (htmlConverter) CheckDependencies(ctx context.Context) bool {
	return toolAvailable(ctx, "asciidoctor")
}

func (c htmlConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.OutputExtension())
	args := asciidoctorArgs(cc, "html5", outPath,
		"toc=left", "icons=font", "imagesdir="+cc.ImagesDir())
	if _, err := runTool(ctx, "asciidoctor", args...); err != nil {
		removePartial(outPath)
		return "", err
	}
	return outPath, nil
}
