package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// Load reads, expands, defaults, and validates a configuration file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just note it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			"failed to read config file").WithContext("path", configPath)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	config := referenceDefaults()
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			"failed to parse config file").WithContext("path", configPath)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// referenceDefaults pre-seeds the boolean settings whose reference default is
// true. Decoding overlays only the keys the file actually sets, so an absent
// key keeps the default while an explicit `false` still wins.
func referenceDefaults() Config {
	return Config{
		Build: BuildSettings{
			Parallel:    true,
			Validate:    true,
			CleanBefore: true,
			VerifyFonts: true,
		},
		Advanced: FailurePolicy{
			ContinueOnError: true,
		},
	}
}

func loadEnvFile() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// applyEnvOverrides applies TPLBUILD_* environment overrides on top of the
// decoded file, before defaults and validation.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TPLBUILD_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Build.Parallel = b
		}
	}
	if v := os.Getenv("TPLBUILD_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Build.MaxWorkers = n
		}
	}
	if v := os.Getenv("TPLBUILD_VALIDATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Build.Validate = b
		}
	}
	if v := os.Getenv("TPLBUILD_TEMPLATE_PATH"); v != "" {
		config.Template.Path = v
	}
}

// applyDefaults fills zero values with the reference defaults.
func applyDefaults(config *Config) {
	if config.Build.MaxWorkers == 0 {
		config.Build.MaxWorkers = 4
	}
	if config.Build.TaskTimeout == "" {
		config.Build.TaskTimeout = "10m"
	}
	if config.Build.OutputDir == "" {
		config.Build.OutputDir = "workspace/build"
	}
	if config.Build.DistDir == "" {
		config.Build.DistDir = "workspace/dist"
	}
	if config.Build.TempDir == "" {
		config.Build.TempDir = "workspace/temp"
	}
	if config.Advanced.RetryBackoff == "" {
		config.Advanced.RetryBackoff = RetryBackoffLinear
	}
	if config.Advanced.RetryInitialDelay == "" {
		config.Advanced.RetryInitialDelay = "1s"
	}
	if config.Advanced.RetryMaxDelay == "" {
		config.Advanced.RetryMaxDelay = "30s"
	}
	if config.Advanced.RetryCount < 0 {
		config.Advanced.RetryCount = 0
	}
}

const exampleConfig = `version: "1.0"

template:
  repository: https://github.com/arc42/arc42-template.git
  ref: master
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
  docx:
    enabled: false
    priority: 1
  markdown:
    enabled: false
    priority: 1
    options:
      variant: gfm
  asciidoc:
    enabled: false
    priority: 1

build:
  parallel: true
  max_workers: 4
  validate: true
  clean_before: true
  verify_fonts: true
  task_timeout: 10m
  output_dir: workspace/build
  dist_dir: workspace/dist
  temp_dir: workspace/temp

advanced:
  fail_fast: false
  continue_on_error: true
  retry_count: 1
  retry_backoff: linear
  retry_initial_delay: 1s
  retry_max_delay: 30s
`

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf(
			"configuration file already exists: %s (use --force to overwrite)", configPath))
	}
	return os.WriteFile(configPath, []byte(exampleConfig), 0o644)
}
