// Package workspace manages the on-disk build, dist, and temp roots.
package workspace

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/tplbuild/internal/config"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// Workspace holds the three working roots of a build.
type Workspace struct {
	BuildDir string
	DistDir  string
	TempDir  string
}

// FromConfig derives the workspace roots from the build settings.
func FromConfig(cfg *config.Config) Workspace {
	return Workspace{
		BuildDir: cfg.Build.OutputDir,
		DistDir:  cfg.Build.DistDir,
		TempDir:  cfg.Build.TempDir,
	}
}

// Ensure creates the workspace roots if they do not exist.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.BuildDir, w.DistDir, w.TempDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal,
				"create workspace directory").WithContext("path", dir)
		}
	}
	return nil
}

// Clean removes and recreates the workspace roots. Filesystem errors here
// are fatal: a half-cleaned workspace would poison the build.
func (w Workspace) Clean() error {
	for _, dir := range []string{w.BuildDir, w.DistDir, w.TempDir} {
		slog.Debug("cleaning workspace directory", logfields.Path(dir))
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal,
				"remove workspace directory").WithContext("path", dir)
		}
	}
	return w.Ensure()
}

// TaskOutputDir returns the per-task artifact directory.
func (w Workspace) TaskOutputDir(language, flavor, format string) string {
	return filepath.Join(w.BuildDir, language, flavor, format)
}
