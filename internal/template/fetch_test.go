package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tplbuild/internal/config"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

func TestEnsureUsesExistingPath(t *testing.T) {
	dir := t.TempDir()
	path, err := Ensure(context.Background(), config.TemplateConfig{Path: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestEnsureRejectsEmptyPath(t *testing.T) {
	_, err := Ensure(context.Background(), config.TemplateConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestEnsureRejectsFilePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Ensure(context.Background(), config.TemplateConfig{Path: file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestEnsureMissingPathWithoutRepository(t *testing.T) {
	_, err := Ensure(context.Background(), config.TemplateConfig{
		Path: filepath.Join(t.TempDir(), "absent"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}
