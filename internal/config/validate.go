package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}

	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

// Validate validates the configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateVersioning(cfg.Versioning)
	v.validateTools(cfg.Tools)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rperrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

func (v *Validator) validateVersioning(cfg VersioningConfig) {
	if err := version.Prerelease(strings.TrimSpace(cfg.Prerelease)).Validate(); err != nil {
		v.errors.Addf("versioning.prerelease: %v", err)
	}
	if err := version.BuildMetadata(strings.TrimSpace(cfg.BuildMetadata)).Validate(); err != nil {
		v.errors.Addf("versioning.build_metadata: %v", err)
	}
	if cfg.IncrementPrerelease && strings.TrimSpace(cfg.Prerelease) != "" {
		v.errors.Addf("versioning.increment_prerelease: cannot be combined with versioning.prerelease")
	}
	if cfg.PreservePrerelease && cfg.IncrementPrerelease {
		v.errors.Warnf("versioning.preserve_prerelease: ignored when increment_prerelease applies")
	}
	if strings.ContainsAny(cfg.TagPrefix, " \t\r\n") {
		v.errors.Addf("versioning.tag_prefix: must not contain whitespace, got %q", cfg.TagPrefix)
	}
	// Note: Empty tag_prefix is valid (some repos use tags without prefix)
}

func (v *Validator) validateTools(cfg ToolsConfig) {
	if cfg.Timeout <= 0 {
		v.errors.Addf("tools.timeout: must be positive, got %s", cfg.Timeout)
	}
	for key, value := range map[string]string{
		"tools.maven":  cfg.Maven,
		"tools.gradle": cfg.Gradle,
		"tools.npm":    cfg.NPM,
		"tools.go":     cfg.Go,
		"tools.python": cfg.Python,
		"tools.git":    cfg.Git,
	} {
		if value != "" && strings.TrimSpace(value) == "" {
			v.errors.Addf("%s: must not be blank", key)
		}
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLevels, cfg.LogLevel)
	}

	if cfg.Verbose && cfg.LogLevel != "" && cfg.LogLevel != "debug" {
		v.errors.Warnf("output.verbose: overrides output.log_level %q with debug", cfg.LogLevel)
	}
}

// Validate validates the configuration using a new validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
