// Package converter defines the format-converter contract, a static registry
// of the supported output formats, and the converters themselves. All
// converters except the asciidoc bundler shell out to the external document
// toolchain (asciidoctor, asciidoctor-pdf, pandoc).
package converter

import (
	"context"
	"fmt"
	"path/filepath"
)

// MainDocument is the root document name inside a language source directory.
const MainDocument = "arc42-template.adoc"

// Converter is implemented by every output format.
//
// Name must equal the registry key the converter is registered under.
// CheckDependencies probes required external tooling; an absent tool is
// reported as false, never as an error. Convert produces exactly one primary
// artifact under Context.OutputDir and returns its path; intermediate files
// are removed on success and failure alike. OutputExtension and Priority
// are pure.
type Converter interface {
	Name() string
	CheckDependencies(ctx context.Context) bool
	Convert(ctx context.Context, cc *Context) (string, error)
	OutputExtension() string
	Priority() int
}

// Context carries everything one Convert invocation needs. It is built per
// task and owned by that invocation.
type Context struct {
	Language     string
	Flavor       string
	SourceDir    string
	OutputDir    string
	TempDir      string
	VersionProps map[string]string
	Options      map[string]any
}

// MainDocumentPath returns the root document path for this context.
func (cc *Context) MainDocumentPath() string {
	return filepath.Join(cc.SourceDir, MainDocument)
}

// ArtifactBaseName returns the extension-less artifact name for this context.
func (cc *Context) ArtifactBaseName() string {
	return fmt.Sprintf("arc42-template-%s-%s", cc.Language, cc.Flavor)
}

// ImagesDir returns the images directory next to the source documents.
func (cc *Context) ImagesDir() string {
	return filepath.Join(cc.SourceDir, "images")
}

// revisionAttributes maps version metadata onto document revision attributes.
// Missing keys are simply not set.
func revisionAttributes(props map[string]string) []string {
	var attrs []string
	if v := props["version"]; v != "" {
		attrs = append(attrs, "revnumber="+v)
	}
	if v := props["date"]; v != "" {
		attrs = append(attrs, "revdate="+v)
	}
	if v := props["revremark"]; v != "" {
		attrs = append(attrs, "revremark="+v)
	}
	return attrs
}
