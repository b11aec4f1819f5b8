package converter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactBaseName(t *testing.T) {
	cc := &Context{Language: "DE", Flavor: "withHelp"}
	assert.Equal(t, "arc42-template-DE-withHelp", cc.ArtifactBaseName())
}

func TestRevisionAttributes(t *testing.T) {
	attrs := revisionAttributes(map[string]string{
		"version":   "9.0",
		"date":      "2025-01-15",
		"revremark": "stable",
	})
	assert.Equal(t, []string{"revnumber=9.0", "revdate=2025-01-15", "revremark=stable"}, attrs)

	assert.Empty(t, revisionAttributes(map[string]string{}))
	assert.Equal(t, []string{"revnumber=1.0"}, revisionAttributes(map[string]string{"version": "1.0"}))
}

func TestAsciidoctorArgsFlavorAttribute(t *testing.T) {
	plain := &Context{Language: "EN", Flavor: "plain", SourceDir: "/src"}
	assert.NotContains(t, asciidoctorArgs(plain, "html5", "/out.html"), "show-help")

	help := &Context{Language: "EN", Flavor: "withHelp", SourceDir: "/src"}
	assert.Contains(t, asciidoctorArgs(help, "html5", "/out.html"), "show-help")
}

func TestScriptsAttribute(t *testing.T) {
	assert.Equal(t, "scripts=cjk", scriptsAttribute("ZH"))
	assert.Equal(t, "scripts=cyrillic", scriptsAttribute("RU"))
	assert.Equal(t, "scripts=cyrillic", scriptsAttribute("UKR"))
	assert.Equal(t, "", scriptsAttribute("EN"))
}

func TestRewriteHeadingAnchors(t *testing.T) {
	in := "# Introduction {#_introduction}\n\nbody\n\n## Goals {#_goals .section}\n"
	out := rewriteHeadingAnchors(in)
	assert.Contains(t, out, "<a id=\"_introduction\"></a>\n\n# Introduction")
	assert.Contains(t, out, "<a id=\"_goals\"></a>\n\n## Goals")
	assert.NotContains(t, out, "{#")
}

func TestSplitChapters(t *testing.T) {
	html := `<div id="preamble"><p>intro</p></div>` +
		`<div class="sect1"><h2 id="_one">1. One</h2><p>first</p></div>` +
		`<div class="sect1"><h2 id="_two">2. Two</h2><p>second</p></div>`
	preamble, chapters := splitChapters(html)
	assert.Contains(t, preamble, "intro")
	require.Len(t, chapters, 2)
	assert.Equal(t, "1. One", chapters[0].Title)
	assert.Equal(t, "2. Two", chapters[1].Title)
	assert.Contains(t, chapters[0].HTML, "first")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "1-introduction-and-goals", slugify("1. Introduction and Goals"))
	assert.Equal(t, "cross-cutting-concepts", slugify("Cross-cutting Concepts"))
}

func TestAsciidocConverterBundles(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "chapter.adoc"), []byte("chapter body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, MainDocument),
		[]byte("= Title\ninclude::chapter.adoc[]\n"), 0o644))

	cc := &Context{Language: "EN", Flavor: "plain", SourceDir: src, OutputDir: out}
	c := asciidocConverter{}
	require.True(t, c.CheckDependencies(context.Background()))

	path, err := c.Convert(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "arc42-template-EN-plain.adoc"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chapter body")
	assert.Contains(t, string(data), "// BEGIN include::chapter.adoc[]")
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.png"), []byte("png"), 0o644))

	require.NoError(t, copyDir(src, dst))
	assert.FileExists(t, filepath.Join(dst, "a.png"))
	assert.FileExists(t, filepath.Join(dst, "nested", "b.png"))
}
