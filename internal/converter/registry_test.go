package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

func TestDefaultRegistryContainsAllFormats(t *testing.T) {
	r := NewDefaultRegistry()
	expected := []string{
		"html", "pdf", "docx",
		"markdown", "markdown_mp", "github_markdown", "github_markdown_mp",
		"asciidoc", "rst", "textile", "confluence",
	}
	assert.ElementsMatch(t, expected, r.Names())
}

func TestRegistryKeyMatchesConverterName(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range r.Names() {
		c, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}

func TestRegistryResolveUnknownFormat(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Resolve("epub")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFormat))
}

func TestRegistryPrioritiesInRange(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range r.Names() {
		c, err := r.Resolve(name)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Priority(), 1, name)
		assert.LessOrEqual(t, c.Priority(), 3, name)
	}
}

func TestRegistryExtensionsNonEmpty(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range r.Names() {
		c, err := r.Resolve(name)
		require.NoError(t, err)
		assert.NotEmpty(t, c.OutputExtension(), name)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(htmlConverter{}, htmlConverter{})
	})
}
