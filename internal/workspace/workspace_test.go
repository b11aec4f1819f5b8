package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tplbuild/internal/config"
)

func testWorkspace(t *testing.T) Workspace {
	t.Helper()
	root := t.TempDir()
	return Workspace{
		BuildDir: filepath.Join(root, "build"),
		DistDir:  filepath.Join(root, "dist"),
		TempDir:  filepath.Join(root, "temp"),
	}
}

func TestEnsureCreatesRoots(t *testing.T) {
	w := testWorkspace(t)
	require.NoError(t, w.Ensure())
	assert.DirExists(t, w.BuildDir)
	assert.DirExists(t, w.DistDir)
	assert.DirExists(t, w.TempDir)
}

func TestCleanRemovesPriorContents(t *testing.T) {
	w := testWorkspace(t)
	require.NoError(t, w.Ensure())
	stale := filepath.Join(w.BuildDir, "EN", "plain", "html", "stale.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, w.Clean())
	assert.NoFileExists(t, stale)
	assert.DirExists(t, w.BuildDir)
}

func TestTaskOutputDir(t *testing.T) {
	w := Workspace{BuildDir: "/ws/build"}
	assert.Equal(t, filepath.Join("/ws/build", "DE", "withHelp", "pdf"),
		w.TaskOutputDir("DE", "withHelp", "pdf"))
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Build.OutputDir = "b"
	cfg.Build.DistDir = "d"
	cfg.Build.TempDir = "t"
	w := FromConfig(cfg)
	assert.Equal(t, Workspace{BuildDir: "b", DistDir: "d", TempDir: "t"}, w)
}
