// Package config provides configuration management for nextversion.
package config

import "time"

// Config is the complete nextversion configuration.
type Config struct {
	// Versioning holds the resolution directives.
	Versioning VersioningConfig `mapstructure:"versioning" json:"versioning"`
	// Tools configures the external build tools used by descriptors.
	Tools ToolsConfig `mapstructure:"tools" json:"tools"`
	// Output configures console output.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// VersioningConfig holds version resolution settings.
type VersioningConfig struct {
	// StartTag replaces tag discovery with an explicit tag.
	StartTag string `mapstructure:"start_tag" json:"start_tag,omitempty"`
	// Prerelease is set on the next version (e.g. "rc.1").
	Prerelease string `mapstructure:"prerelease" json:"prerelease,omitempty"`
	// PreservePrerelease keeps the current prerelease on the next version.
	PreservePrerelease bool `mapstructure:"preserve_prerelease" json:"preserve_prerelease"`
	// IncrementPrerelease increments the current prerelease instead of bumping.
	IncrementPrerelease bool `mapstructure:"increment_prerelease" json:"increment_prerelease"`
	// BuildMetadata is set on the next version.
	BuildMetadata string `mapstructure:"build_metadata" json:"build_metadata,omitempty"`
	// WriteVersion writes the next version to the project manifest.
	WriteVersion bool `mapstructure:"write_version" json:"write_version"`
	// NonAnnotatedTag selects the highest of all tags instead of the nearest reachable one.
	NonAnnotatedTag bool `mapstructure:"non_annotated_tag" json:"non_annotated_tag"`
	// TagPrefix is stripped from tag names before parsing (default "v").
	// Tags without it are still read when they are bare versions.
	TagPrefix string `mapstructure:"tag_prefix" json:"tag_prefix"`
}

// ToolsConfig configures external build tools. Empty names use the platform default.
type ToolsConfig struct {
	// Timeout bounds a single tool invocation.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	Maven   string        `mapstructure:"maven" json:"maven,omitempty"`
	Gradle  string        `mapstructure:"gradle" json:"gradle,omitempty"`
	NPM     string        `mapstructure:"npm" json:"npm,omitempty"`
	Go      string        `mapstructure:"go" json:"go,omitempty"`
	Python  string        `mapstructure:"python" json:"python,omitempty"`
	Git     string        `mapstructure:"git" json:"git,omitempty"`
}

// OutputConfig configures output behavior.
type OutputConfig struct {
	// Format is the output format (text, json).
	Format string `mapstructure:"format" json:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" json:"verbose"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultToolTimeout is the default per-invocation build tool timeout.
const DefaultToolTimeout = 2 * time.Minute

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Versioning: VersioningConfig{
			TagPrefix: "v",
		},
		Tools: ToolsConfig{
			Timeout: DefaultToolTimeout,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// ConfigFileNames to search for.
var ConfigFileNames = []string{
	"nextversion",
	".nextversion",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
	"json",
	"toml",
}

// EnvPrefix is the prefix of environment variables overriding configuration,
// e.g. NEXTVERSION_VERSIONING_PRERELEASE.
const EnvPrefix = "NEXTVERSION"

// EnvFileName is the dotenv file loaded from the search paths.
const EnvFileName = ".env"
