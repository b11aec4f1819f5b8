package converter

import (
	"fmt"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// Registry is a static name -> Converter table. It is populated once at
// construction and immutable afterwards; concurrent reads need no locking.
type Registry struct {
	byName map[string]Converter
	names  []string
}

// NewDefaultRegistry builds the registry of all supported formats.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		htmlConverter{},
		pdfConverter{},
		docxConverter{},
		markdownConverter{name: "markdown", ext: ".md"},
		multipageMarkdownConverter{name: "markdown_mp", indexName: "index.md"},
		markdownConverter{name: "github_markdown", ext: ".md", github: true},
		multipageMarkdownConverter{name: "github_markdown_mp", indexName: "README.md", github: true},
		asciidocConverter{},
		pandocTextConverter{name: "rst", ext: ".rst", target: "rst"},
		pandocTextConverter{name: "textile", ext: ".textile", target: "textile"},
		confluenceConverter{},
	)
}

// NewRegistry builds a registry from an explicit converter list. Panics on a
// duplicate name: registration is a construction-time programming error.
func NewRegistry(converters ...Converter) *Registry {
	r := &Registry{byName: make(map[string]Converter, len(converters))}
	for _, c := range converters {
		name := c.Name()
		if _, dup := r.byName[name]; dup {
			panic(fmt.Sprintf("converter registered twice: %s", name))
		}
		r.byName[name] = c
		r.names = append(r.names, name)
	}
	return r
}

// Resolve returns the converter for a format name.
func (r *Registry) Resolve(name string) (Converter, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, errors.UnknownFormatError(name)
	}
	return c, nil
}

// Names returns all registered format names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
