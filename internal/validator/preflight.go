// Package validator implements the pre-flight template checks run before a
// build and the post-flight artifact checks run over a finished build tree.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/tplbuild/internal/converter"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
	"git.home.luguber.info/inful/tplbuild/internal/versionprops"
)

// sourceSubdir is the per-language directory holding the document sources.
const sourceSubdir = "asciidoc"

// Preflight validates a template tree before any conversion starts.
type Preflight struct {
	TemplateRoot string
	Languages    []string
	VerifyFonts  bool
}

// Run executes the full pre-flight suite. All structural problems are
// collected into one aggregate validation error; warnings are logged and do
// not fail the run.
func (p Preflight) Run(ctx context.Context) error {
	info, err := os.Stat(p.TemplateRoot)
	if err != nil || !info.IsDir() {
		return errors.ValidationError(fmt.Sprintf("template root not found: %s", p.TemplateRoot))
	}

	var problems []string
	for _, lang := range p.Languages {
		problems = append(problems, p.checkLanguage(ctx, lang)...)
	}
	if p.VerifyFonts {
		problems = append(problems, p.checkFonts(ctx)...)
	}

	if len(problems) > 0 {
		return errors.ValidationError(fmt.Sprintf("pre-flight validation failed:\n  %s",
			strings.Join(problems, "\n  ")))
	}
	return nil
}

// SourceDir returns the document source directory for a language.
func (p Preflight) SourceDir(language string) string {
	return filepath.Join(p.TemplateRoot, language, sourceSubdir)
}

func (p Preflight) checkLanguage(ctx context.Context, lang string) []string {
	var problems []string

	langDir := filepath.Join(p.TemplateRoot, lang)
	if info, err := os.Stat(langDir); err != nil || !info.IsDir() {
		return []string{fmt.Sprintf("[%s] language directory missing: %s", lang, langDir)}
	}

	if _, err := os.Stat(filepath.Join(langDir, versionprops.FileName)); err != nil {
		problems = append(problems, fmt.Sprintf("[%s] %s missing", lang, versionprops.FileName))
	}

	srcDir := p.SourceDir(lang)
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("[%s] source directory missing: %s", lang, srcDir))
		return problems
	}

	mainDoc := filepath.Join(srcDir, converter.MainDocument)
	if _, err := os.Stat(mainDoc); err != nil {
		problems = append(problems, fmt.Sprintf("[%s] main document missing: %s", lang, mainDoc))
		return problems
	}

	problems = append(problems, p.checkReferences(ctx, lang, mainDoc)...)
	p.checkImageReferences(lang, srcDir)
	return problems
}

// checkReferences dry-runs asciidoctor over the main document so broken
// includes and cross references surface before the build. An absent
// asciidoctor is a skipped check, not a failed one.
func (p Preflight) checkReferences(ctx context.Context, lang, mainDoc string) []string {
	if _, err := exec.LookPath("asciidoctor"); err != nil {
		slog.Warn("asciidoctor not found, skipping reference check", logfields.Language(lang))
		return nil
	}
	cmd := exec.CommandContext(ctx, "asciidoctor", "--failure-level", "WARN",
		"-o", os.DevNull, mainDoc)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return []string{fmt.Sprintf("[%s] document references do not resolve: %s", lang, msg)}
	}
	return nil
}

var imageMacroRe = regexp.MustCompile(`image::?([^\[\s]+)\[`)

// checkImageReferences scans the sources for image macros whose targets do
// not exist. Warn-only: a dangling image degrades an artifact but does not
// invalidate the build.
func (p Preflight) checkImageReferences(lang, srcDir string) {
	imagesDir := filepath.Join(srcDir, "images")
	_ = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".adoc" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, m := range imageMacroRe.FindAllStringSubmatch(string(data), -1) {
			target := m[1]
			if strings.Contains(target, "{") || strings.HasPrefix(target, "http") {
				continue
			}
			candidate := filepath.Join(imagesDir, target)
			if _, err := os.Stat(candidate); err != nil {
				slog.Warn("image reference target not found",
					logfields.Language(lang), logfields.File(path), logfields.Path(candidate))
			}
		}
		return nil
	})
}

// fontFamilies returns the families the configured languages need beyond the
// latin defaults.
func (p Preflight) fontFamilies() []string {
	families := map[string]bool{}
	for _, lang := range p.Languages {
		switch lang {
		case "ZH", "JA", "KO":
			families["Noto Sans CJK"] = true
		case "RU", "UKR":
			families["DejaVu Sans"] = true
		}
	}
	var out []string
	for f := range families {
		out = append(out, f)
	}
	return out
}

// checkFonts verifies required font families via fc-list. A missing fc-list
// skips the check with a warning: not being able to check is not a failure.
func (p Preflight) checkFonts(ctx context.Context) []string {
	families := p.fontFamilies()
	if len(families) == 0 {
		return nil
	}
	if _, err := exec.LookPath("fc-list"); err != nil {
		slog.Warn("fc-list not found, skipping font verification")
		return nil
	}
	out, err := exec.CommandContext(ctx, "fc-list", ":", "family").Output()
	if err != nil {
		slog.Warn("fc-list failed, skipping font verification", logfields.Error(err))
		return nil
	}
	installed := string(out)

	var problems []string
	for _, family := range families {
		if !strings.Contains(installed, family) {
			problems = append(problems, fmt.Sprintf("required font family not installed: %s", family))
		}
	}
	return problems
}
