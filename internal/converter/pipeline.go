package converter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/tplbuild/internal/assembly"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// asciidoctorArgs assembles the common asciidoctor invocation for a context:
// backend, safe mode, flavor and revision attributes, and the output path.
func asciidoctorArgs(cc *Context, backend, outPath string, extraAttrs ...string) []string {
	args := []string{"-b", backend, "-S", "unsafe"}
	for _, attr := range revisionAttributes(cc.VersionProps) {
		args = append(args, "-a", attr)
	}
	if cc.Flavor == assembly.ExtendedFlavor {
		args = append(args, "-a", assembly.ShowHelpAttribute)
	}
	for _, attr := range extraAttrs {
		args = append(args, "-a", attr)
	}
	args = append(args, "-o", outPath, cc.MainDocumentPath())
	return args
}

// renderIntermediateHTML renders the main document to a throwaway HTML file
// used as pandoc input. The file lives in a scratch directory private to this
// invocation: several formats share the same language/flavor temp root and
// may run concurrently. The caller must invoke the returned cleanup func on
// every path.
func renderIntermediateHTML(ctx context.Context, cc *Context) (string, func(), error) {
	tempDir := cc.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return "", func() {}, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create temp directory")
	}
	scratch, err := os.MkdirTemp(tempDir, cc.ArtifactBaseName()+"-")
	if err != nil {
		return "", func() {}, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create scratch directory")
	}
	cleanup := func() { os.RemoveAll(scratch) }
	htmlPath := filepath.Join(scratch, "intermediate.html")

	args := asciidoctorArgs(cc, "html5", htmlPath, "imagesdir="+cc.ImagesDir())
	if _, err := runTool(ctx, "asciidoctor", args...); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return htmlPath, cleanup, nil
}

// pandocFromHTML converts an HTML file to the target pandoc format. A failed
// run leaves no partial output behind.
func pandocFromHTML(ctx context.Context, htmlPath, outPath, target string, extraArgs ...string) error {
	args := []string{"-f", "html", "-t", target, "-o", outPath}
	args = append(args, extraArgs...)
	args = append(args, htmlPath)
	if _, err := runTool(ctx, "pandoc", args...); err != nil {
		removePartial(outPath)
		return err
	}
	return nil
}

// removePartial discards a partially written artifact so a failed conversion
// leaves the output directory with either a complete artifact or none.
func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove partial artifact", logfields.Path(path), logfields.Error(err))
	}
}

// copyDir copies a directory tree. Used to carry the images/ assets next to
// artifacts whose format cannot embed them.
func copyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", src)
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
