package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tplbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `version: "1.0"
template:
  path: ./template
languages: [EN, DE]
flavors: [plain, withHelp]
formats:
  html:
    enabled: true
    priority: 1
  pdf:
    enabled: true
    priority: 1
  markdown:
    enabled: false
    priority: 2
`

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, []string{"EN", "DE"}, cfg.Languages)
	assert.Equal(t, []string{"plain", "withHelp"}, cfg.Flavors)
	assert.Equal(t, []string{"html", "pdf", "markdown"}, cfg.Formats.Names())
	assert.Equal(t, []string{"html", "pdf"}, cfg.Formats.EnabledNames())
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Build.MaxWorkers)
	assert.Equal(t, "10m", cfg.Build.TaskTimeout)
	assert.True(t, cfg.Build.Parallel)
	assert.True(t, cfg.Build.Validate)
	assert.True(t, cfg.Build.CleanBefore)
	assert.True(t, cfg.Build.VerifyFonts)
	assert.True(t, cfg.Advanced.ContinueOnError)
	assert.False(t, cfg.Advanced.FailFast)
	assert.Equal(t, "workspace/build", cfg.Build.OutputDir)
	assert.Equal(t, "workspace/dist", cfg.Build.DistDir)
	assert.Equal(t, "workspace/temp", cfg.Build.TempDir)
	assert.Equal(t, RetryBackoffLinear, cfg.Advanced.RetryBackoff)
	assert.Equal(t, "1s", cfg.Advanced.RetryInitialDelay)
	assert.Equal(t, "30s", cfg.Advanced.RetryMaxDelay)
}

func TestExplicitFalseOverridesBoolDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`build:
  parallel: false
  validate: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Build.Parallel)
	assert.False(t, cfg.Build.Validate)
	assert.True(t, cfg.Build.CleanBefore)
	assert.True(t, cfg.Advanced.ContinueOnError)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TPL_TEST_ROOT", "/srv/templates")
	cfg, err := Load(writeConfig(t, `version: "1.0"
template:
  path: ${TPL_TEST_ROOT}/arc42
languages: [EN]
flavors: [plain]
formats:
  html:
    enabled: true
    priority: 1
`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/templates/arc42", cfg.Template.Path)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TPLBUILD_PARALLEL", "true")
	t.Setenv("TPLBUILD_MAX_WORKERS", "8")
	t.Setenv("TPLBUILD_VALIDATE", "false")
	t.Setenv("TPLBUILD_TEMPLATE_PATH", "/elsewhere")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Build.Parallel)
	assert.Equal(t, 8, cfg.Build.MaxWorkers)
	assert.False(t, cfg.Build.Validate)
	assert.Equal(t, "/elsewhere", cfg.Template.Path)
}

func TestFormatsPreserveDeclarationOrder(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version: "1.0"
template:
  path: ./template
languages: [EN]
flavors: [plain]
formats:
  textile:
    enabled: true
    priority: 3
  asciidoc:
    enabled: true
    priority: 2
  html:
    enabled: true
    priority: 1
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"textile", "asciidoc", "html"}, cfg.Formats.Names())
}

func TestFormatOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version: "1.0"
template:
  path: ./template
languages: [EN]
flavors: [plain]
formats:
  markdown:
    enabled: true
    priority: 2
    options:
      variant: gfm
      split: true
`))
	require.NoError(t, err)
	spec, ok := cfg.Formats.Get("markdown")
	require.True(t, ok)
	assert.Equal(t, "gfm", spec.StringOption("variant", ""))
	assert.True(t, spec.BoolOption("split", false))
	assert.Equal(t, "fallback", spec.StringOption("absent", "fallback"))
}

func TestFormatsFilter(t *testing.T) {
	formats := NewFormats([]string{"html", "pdf", "docx"}, map[string]FormatSpec{
		"html": {Enabled: true, Priority: 1},
		"pdf":  {Enabled: true, Priority: 1},
		"docx": {Enabled: true, Priority: 1},
	})
	filtered := formats.Filter([]string{"docx", "html", "unknown"})
	assert.Equal(t, []string{"html", "docx"}, filtered.Names())
}

func TestInitWritesExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tplbuild.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EN", "DE"}, cfg.Languages)

	assert.Error(t, Init(path, false))
	assert.NoError(t, Init(path, true))
}

func TestConfigErrorsCarryCategory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	cfg.Languages = []string{"XX"}
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestValidationRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(cfg *Config)
		message string
	}{
		{"no version", func(c *Config) { c.Version = "" }, "version is required"},
		{"no languages", func(c *Config) { c.Languages = nil }, "at least one language"},
		{"invalid language", func(c *Config) { c.Languages = []string{"XX"} }, "invalid language"},
		{"duplicate language", func(c *Config) { c.Languages = []string{"EN", "EN"} }, "duplicate language"},
		{"no flavors", func(c *Config) { c.Flavors = nil }, "at least one flavor"},
		{"invalid flavor", func(c *Config) { c.Flavors = []string{"fancy"} }, "invalid flavor"},
		{"no enabled format", func(c *Config) {
			c.Formats = NewFormats([]string{"html"}, map[string]FormatSpec{
				"html": {Enabled: false, Priority: 1},
			})
		}, "at least one output format"},
		{"bad priority", func(c *Config) {
			c.Formats = NewFormats([]string{"html"}, map[string]FormatSpec{
				"html": {Enabled: true, Priority: 9},
			})
		}, "invalid priority"},
		{"bad workers", func(c *Config) { c.Build.MaxWorkers = 0 }, "max_workers"},
		{"bad timeout", func(c *Config) { c.Build.TaskTimeout = "soon" }, "invalid task_timeout"},
		{"bad backoff", func(c *Config) { c.Advanced.RetryBackoff = "random" }, "invalid retry_backoff"},
		{"delay inversion", func(c *Config) {
			c.Advanced.RetryInitialDelay = "1m"
			c.Advanced.RetryMaxDelay = "1s"
		}, "retry_max_delay"},
		{"negative retries", func(c *Config) { c.Advanced.RetryCount = -1 }, "retry_count"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)
			tc.mutate(cfg)
			err = ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
