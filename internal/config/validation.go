package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/tplbuild/internal/errors"
)

// Known language codes of the template tree. These are directory names
// under the template root, not BCP-47 tags.
var validLanguages = map[string]bool{
	"EN": true, "DE": true, "FR": true, "CZ": true, "ES": true, "IT": true,
	"NL": true, "PT": true, "RU": true, "UKR": true, "ZH": true,
}

// Known flavor names. "plain" is the bare edition, "withHelp" the
// help-annotated one.
var validFlavors = map[string]bool{
	"plain":    true,
	"withHelp": true,
}

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigValidator(cfg)
	return validator.validate()
}

// configValidator coordinates validation across all configuration domains.
type configValidator struct {
	config *Config
}

func newConfigValidator(config *Config) *configValidator {
	return &configValidator{config: config}
}

// validate performs configuration validation in dependency order.
func (cv *configValidator) validate() error {
	if err := cv.validateVersion(); err != nil {
		return err
	}
	if err := cv.validateLanguages(); err != nil {
		return err
	}
	if err := cv.validateFlavors(); err != nil {
		return err
	}
	if err := cv.validateFormats(); err != nil {
		return err
	}
	if err := cv.validateBuild(); err != nil {
		return err
	}
	return cv.validateRetry()
}

func (cv *configValidator) validateVersion() error {
	if cv.config.Version == "" {
		return errors.ConfigError("version is required (expected \"X.Y\")")
	}
	return nil
}

func (cv *configValidator) validateLanguages() error {
	if len(cv.config.Languages) == 0 {
		return errors.ConfigError("at least one language must be specified")
	}
	seen := make(map[string]bool, len(cv.config.Languages))
	for _, lang := range cv.config.Languages {
		if !validLanguages[lang] {
			return errors.ConfigError(fmt.Sprintf("invalid language: %s", lang))
		}
		if seen[lang] {
			return errors.ConfigError(fmt.Sprintf("duplicate language: %s", lang))
		}
		seen[lang] = true
	}
	return nil
}

func (cv *configValidator) validateFlavors() error {
	if len(cv.config.Flavors) == 0 {
		return errors.ConfigError("at least one flavor must be specified")
	}
	seen := make(map[string]bool, len(cv.config.Flavors))
	for _, flavor := range cv.config.Flavors {
		if !validFlavors[flavor] {
			return errors.ConfigError(fmt.Sprintf("invalid flavor: %s", flavor))
		}
		if seen[flavor] {
			return errors.ConfigError(fmt.Sprintf("duplicate flavor: %s", flavor))
		}
		seen[flavor] = true
	}
	return nil
}

func (cv *configValidator) validateFormats() error {
	if len(cv.config.Formats.EnabledNames()) == 0 {
		return errors.ConfigError("at least one output format must be enabled")
	}
	for _, name := range cv.config.Formats.Names() {
		spec, _ := cv.config.Formats.Get(name)
		if spec.Priority < 1 || spec.Priority > 3 {
			return errors.ConfigError(fmt.Sprintf(
				"invalid priority for format %s: %d (allowed: 1..3)", name, spec.Priority))
		}
	}
	return nil
}

func (cv *configValidator) validateBuild() error {
	if cv.config.Build.MaxWorkers < 1 {
		return errors.ConfigError("max_workers must be at least 1")
	}
	if cv.config.Build.TaskTimeout != "" {
		if _, err := time.ParseDuration(cv.config.Build.TaskTimeout); err != nil {
			return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
				fmt.Sprintf("invalid task_timeout: %s", cv.config.Build.TaskTimeout))
		}
	}
	return nil
}

func (cv *configValidator) validateRetry() error {
	switch cv.config.Advanced.RetryBackoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		// Valid backoff strategies
	default:
		return errors.ConfigError(fmt.Sprintf(
			"invalid retry_backoff: %s (allowed: fixed|linear|exponential)", cv.config.Advanced.RetryBackoff))
	}

	initDur, err := time.ParseDuration(cv.config.Advanced.RetryInitialDelay)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("invalid retry_initial_delay: %s", cv.config.Advanced.RetryInitialDelay))
	}
	maxDur, err := time.ParseDuration(cv.config.Advanced.RetryMaxDelay)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("invalid retry_max_delay: %s", cv.config.Advanced.RetryMaxDelay))
	}
	if maxDur < initDur {
		return errors.ConfigError(fmt.Sprintf("retry_max_delay (%s) must be >= retry_initial_delay (%s)",
			cv.config.Advanced.RetryMaxDelay, cv.config.Advanced.RetryInitialDelay))
	}

	if cv.config.Advanced.RetryCount < 0 {
		return errors.ConfigError(fmt.Sprintf("retry_count cannot be negative: %d", cv.config.Advanced.RetryCount))
	}
	return nil
}
