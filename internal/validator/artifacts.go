package validator

import (
	"archive/zip"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// CheckBuildRoot runs the post-flight artifact checks over a finished build
// tree. Every offending artifact across all sub-checks is accumulated into
// one aggregate error.
func CheckBuildRoot(buildRoot string) error {
	if info, err := os.Stat(buildRoot); err != nil || !info.IsDir() {
		return errors.New(errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("build root not found: %s", buildRoot))
	}

	var problems []string
	err := filepath.WalkDir(buildRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		var checkErr error
		switch filepath.Ext(path) {
		case ".md":
			checkErr = CheckMarkdownArtifact(path)
		case ".html":
			checkErr = CheckHTMLArtifact(path)
		case ".docx":
			checkErr = CheckDocxArtifact(path)
		}
		if checkErr != nil {
			problems = append(problems, checkErr.Error())
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"walk build root")
	}

	if len(problems) > 0 {
		return errors.New(errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("artifact validation failed:\n  %s", strings.Join(problems, "\n  ")))
	}
	return nil
}

// CheckMarkdownArtifact parses a Markdown artifact and verifies that every
// image it references exists relative to the artifact.
func CheckMarkdownArtifact(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("read markdown artifact %s", path))
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var missing []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if isExternalRef(dest) {
			return ast.WalkContinue, nil
		}
		target := dest
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), dest)
		}
		if _, err := os.Stat(target); err != nil {
			missing = append(missing, dest)
		}
		return ast.WalkContinue, nil
	})

	if len(missing) > 0 {
		return errors.New(errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("%s: missing images: %s", path, strings.Join(missing, ", ")))
	}
	return nil
}

// CheckHTMLArtifact parses an HTML artifact and flags <img> elements whose
// src is an absolute filesystem path (not portable) or a missing local file.
func CheckHTMLArtifact(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("open html artifact %s", path))
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return errors.Wrap(err, errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("parse html artifact %s", path))
	}

	var bad []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key != "src" {
					continue
				}
				src := attr.Val
				switch {
				case isExternalRef(src) || strings.HasPrefix(src, "data:"):
					// embedded or remote, nothing to verify
				case filepath.IsAbs(src):
					bad = append(bad, src+" (absolute path)")
				default:
					if _, err := os.Stat(filepath.Join(filepath.Dir(path), src)); err != nil {
						bad = append(bad, src+" (missing)")
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)

	if len(bad) > 0 {
		return errors.New(errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("%s: bad image references: %s", path, strings.Join(bad, ", ")))
	}
	return nil
}

// CheckDocxArtifact opens a DOCX artifact as a ZIP archive and verifies the
// structural entries plus any embedded media.
func CheckDocxArtifact(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("%s: not a valid docx archive", path))
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	var problems []string
	for _, required := range []string{"[Content_Types].xml", "word/document.xml"} {
		if _, ok := entries[required]; !ok {
			problems = append(problems, "missing entry "+required)
		}
	}
	for name, f := range entries {
		if strings.HasPrefix(name, "word/media/") && f.UncompressedSize64 == 0 {
			problems = append(problems, "empty media entry "+name)
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CategoryArtifact, errors.SeverityError,
			fmt.Sprintf("%s: %s", path, strings.Join(problems, ", ")))
	}
	return nil
}

func isExternalRef(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Scheme != "file"
}
