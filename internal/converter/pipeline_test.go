package converter

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool installs a fake executable in dir for the test's duration.
func stubTool(t *testing.T, dir, name, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script), 0o755))
}

func prependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// outArgScript leaves the value following -o and -t from "$@" in $out / $target.
const outArgScript = `out=""
target=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  if [ "$prev" = "-t" ]; then target="$a"; fi
  prev="$a"
done
`

func stubToolchain(t *testing.T, pandocScript string) {
	t.Helper()
	bin := t.TempDir()
	stubTool(t, bin, "asciidoctor",
		outArgScript+`printf '<html><body><p>rendered</p></body></html>' > "$out"`+"\n")
	stubTool(t, bin, "pandoc", outArgScript+pandocScript)
	prependPath(t, bin)
}

func newToolContext(t *testing.T, tempDir string) *Context {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, MainDocument), []byte("= Title\n"), 0o644))
	return &Context{
		Language:  "EN",
		Flavor:    "plain",
		SourceDir: src,
		OutputDir: t.TempDir(),
		TempDir:   tempDir,
	}
}

func TestIntermediateHTMLIsInvocationPrivate(t *testing.T) {
	stubToolchain(t, `printf 'converted' > "$out"`+"\n")
	tempDir := t.TempDir()
	cc := newToolContext(t, tempDir)

	p1, c1, err := renderIntermediateHTML(context.Background(), cc)
	require.NoError(t, err)
	p2, c2, err := renderIntermediateHTML(context.Background(), cc)
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	// one invocation's cleanup must not touch another's input
	c1()
	assert.FileExists(t, p2)
	c2()
	assert.NoFileExists(t, p1)
	assert.NoFileExists(t, p2)
}

func TestConcurrentFormatsSharingTempDir(t *testing.T) {
	// rst fails fast and cleans up while markdown's pandoc is still reading
	// the same language/flavor temp root.
	stubToolchain(t, `if [ "$target" = "rst" ]; then
  printf 'partial' > "$out"
  exit 3
fi
sleep 0.2
printf 'converted' > "$out"
`)
	tempDir := t.TempDir()

	md := markdownConverter{name: "markdown", ext: ".md"}
	rst := pandocTextConverter{name: "rst", ext: ".rst", target: "rst"}
	ccMD := newToolContext(t, tempDir)
	ccRST := newToolContext(t, tempDir)

	var wg sync.WaitGroup
	var mdPath string
	var mdErr, rstErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		mdPath, mdErr = md.Convert(context.Background(), ccMD)
	}()
	go func() {
		defer wg.Done()
		_, rstErr = rst.Convert(context.Background(), ccRST)
	}()
	wg.Wait()

	require.NoError(t, mdErr)
	require.Error(t, rstErr)
	assert.FileExists(t, mdPath)
	assert.NoFileExists(t, filepath.Join(ccRST.OutputDir, "arc42-template-EN-plain.rst"))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFailedPandocLeavesNoArtifact(t *testing.T) {
	stubToolchain(t, `printf 'partial' > "$out"`+"\nexit 3\n")
	tempDir := t.TempDir()
	c := markdownConverter{name: "markdown", ext: ".md"}
	cc := newToolContext(t, tempDir)

	_, err := c.Convert(context.Background(), cc)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(cc.OutputDir, "arc42-template-EN-plain.md"))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFailedAsciidoctorLeavesNoArtifact(t *testing.T) {
	bin := t.TempDir()
	stubTool(t, bin, "asciidoctor", outArgScript+`printf 'partial' > "$out"`+"\nexit 1\n")
	prependPath(t, bin)

	c := htmlConverter{}
	cc := newToolContext(t, t.TempDir())
	_, err := c.Convert(context.Background(), cc)
	require.Error(t, err)

	entries, err := os.ReadDir(cc.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMultipageFailureDiscardsPartialChapters(t *testing.T) {
	bin := t.TempDir()
	stubTool(t, bin, "asciidoctor", outArgScript+
		`printf '<div id="preamble"><p>intro</p></div><div class="sect1"><h2>One</h2><p>a</p></div><div class="sect1"><h2>Two</h2><p>b</p></div>' > "$out"`+"\n")
	// preamble and first chapter convert fine, the second chapter fails
	stubTool(t, bin, "pandoc", outArgScript+`count=$(cat "$PANDOC_CALLS" 2>/dev/null || echo 0)
count=$((count+1))
echo "$count" > "$PANDOC_CALLS"
if [ "$count" -ge 3 ]; then exit 3; fi
printf 'converted' > "$out"
`)
	prependPath(t, bin)
	t.Setenv("PANDOC_CALLS", filepath.Join(t.TempDir(), "calls"))

	c := multipageMarkdownConverter{name: "markdown_mp", indexName: "index.md"}
	cc := newToolContext(t, t.TempDir())

	_, err := c.Convert(context.Background(), cc)
	require.Error(t, err)

	entries, err := os.ReadDir(cc.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
