// Package versionprops loads the per-language version metadata file
// (version.properties): a flat key=value mapping where the first '='
// separates key from value.
package versionprops

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// FileName is the per-language metadata file name inside the language directory.
const FileName = "version.properties"

// Load reads the version.properties file for a language directory. A missing
// file is not an error: the reference build treats it as empty metadata and
// warns.
func Load(languageDir string) map[string]string {
	path := filepath.Join(languageDir, FileName)
	if _, err := os.Stat(path); err != nil {
		slog.Warn("version.properties not found", logfields.Path(path))
		return map[string]string{}
	}

	props, err := godotenv.Read(path)
	if err != nil {
		slog.Warn("failed to parse version.properties", logfields.Path(path), logfields.Error(err))
		return map[string]string{}
	}
	return props
}
