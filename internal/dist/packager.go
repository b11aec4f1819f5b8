// Package dist packages a finished build tree into distributable ZIP
// archives, one per (language, flavor, format) leaf.
package dist

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// Package walks buildRoot's language/flavor/format leaves and writes one ZIP
// per leaf under the mirrored distRoot path. Returns the number of archives
// written.
func Package(buildRoot, distRoot string) (int, error) {
	if info, err := os.Stat(buildRoot); err != nil || !info.IsDir() {
		return 0, errors.New(errors.CategoryFileSystem, errors.SeverityError,
			fmt.Sprintf("build root not found: %s", buildRoot))
	}

	count := 0
	languages, err := subdirs(buildRoot)
	if err != nil {
		return 0, err
	}
	for _, lang := range languages {
		flavors, err := subdirs(filepath.Join(buildRoot, lang))
		if err != nil {
			return count, err
		}
		for _, flavor := range flavors {
			formats, err := subdirs(filepath.Join(buildRoot, lang, flavor))
			if err != nil {
				return count, err
			}
			for _, format := range formats {
				leaf := filepath.Join(buildRoot, lang, flavor, format)
				zipName := fmt.Sprintf("arc42-template-%s-%s-%s.zip", lang, flavor, format)
				zipPath := filepath.Join(distRoot, lang, flavor, format, zipName)
				if err := zipDir(leaf, zipPath); err != nil {
					return count, err
				}
				slog.Info("packaged artifacts",
					logfields.Language(lang),
					logfields.Flavor(flavor),
					logfields.Format(format),
					logfields.Path(zipPath))
				count++
			}
		}
	}
	return count, nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"read build tree").WithContext("path", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// zipDir archives the contents of dir (relative paths inside the archive).
func zipDir(dir, zipPath string) error {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o750); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create dist directory")
	}
	f, err := os.Create(zipPath)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create archive").WithContext("path", zipPath)
	}
	w := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		_ = w.Close()
		_ = f.Close()
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"write archive").WithContext("path", zipPath)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"finalize archive").WithContext("path", zipPath)
	}
	return f.Close()
}
