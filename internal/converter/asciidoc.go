package converter

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/tplbuild/internal/assembly"
)

// asciidocConverter bundles the document tree into one self-contained
// AsciiDoc file. It runs entirely in process, so it has no external
// dependencies to check.
type asciidocConverter struct{}

func (asciidocConverter) Name() string            { return "asciidoc" }
func (asciidocConverter) OutputExtension() string { return ".adoc" }
func (asciidocConverter) Priority() int           { return 2 }

func (asciidocConverter) CheckDependencies(context.Context) bool { return true }

func (c asciidocConverter) Convert(ctx context.Context, cc *Context) (string, error) {
	outPath := filepath.Join(cc.OutputDir, cc.ArtifactBaseName()+c.OutputExtension())
	r := assembly.NewResolver(cc.SourceDir, cc.Flavor, assembly.Options{})
	if err := r.ResolveToFile(cc.MainDocumentPath(), outPath); err != nil {
		return "", err
	}
	return outPath, nil
}
