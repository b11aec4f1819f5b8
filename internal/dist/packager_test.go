package dist

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLeafArtifact(t *testing.T, buildRoot, lang, flavor, format, name string) {
	t.Helper()
	path := filepath.Join(buildRoot, lang, flavor, format, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))
}

func TestPackageMirrorsLayout(t *testing.T) {
	buildRoot := t.TempDir()
	distRoot := t.TempDir()
	writeLeafArtifact(t, buildRoot, "EN", "plain", "html", "arc42-template-EN-plain.html")
	writeLeafArtifact(t, buildRoot, "EN", "plain", "pdf", "arc42-template-EN-plain.pdf")
	writeLeafArtifact(t, buildRoot, "DE", "withHelp", "html", "arc42-template-DE-withHelp.html")

	count, err := Package(buildRoot, distRoot)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.FileExists(t, filepath.Join(distRoot, "EN", "plain", "html", "arc42-template-EN-plain-html.zip"))
	assert.FileExists(t, filepath.Join(distRoot, "EN", "plain", "pdf", "arc42-template-EN-plain-pdf.zip"))
	assert.FileExists(t, filepath.Join(distRoot, "DE", "withHelp", "html", "arc42-template-DE-withHelp-html.zip"))
}

func TestPackageArchiveContents(t *testing.T) {
	buildRoot := t.TempDir()
	distRoot := t.TempDir()
	writeLeafArtifact(t, buildRoot, "EN", "plain", "github_markdown", "README.md")
	writeLeafArtifact(t, buildRoot, "EN", "plain", "github_markdown", "images/logo.png")

	_, err := Package(buildRoot, distRoot)
	require.NoError(t, err)

	zipPath := filepath.Join(distRoot, "EN", "plain", "github_markdown",
		"arc42-template-EN-plain-github_markdown.zip")
	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"README.md", "images/logo.png"}, names)
}

func TestPackageMissingBuildRoot(t *testing.T) {
	_, err := Package(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.Error(t, err)
}

func TestPackageEmptyBuildRoot(t *testing.T) {
	count, err := Package(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, count)
}
