package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
	envFiles    bool
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
		envFiles:    true,
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths replaces the directories searched for config and .env files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	if len(paths) > 0 {
		l.searchPaths = paths
	}
	return l
}

// WithoutEnvFiles disables .env loading.
func (l *Loader) WithoutEnvFiles() *Loader {
	l.envFiles = false
	return l
}

// Viper exposes the underlying viper instance so CLI flags can be bound to it.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads the configuration: defaults, then the config file, then
// NEXTVERSION_* environment variables (including those from .env files),
// then any bound flags.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if l.envFiles {
		if err := l.loadEnvFiles(); err != nil {
			return nil, rperrors.ConfigWrap(err, op, "failed to load .env file")
		}
	}

	if err := l.loadConfigFile(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to unmarshal config")
	}
	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("versioning.start_tag", defaults.Versioning.StartTag)
	l.v.SetDefault("versioning.prerelease", defaults.Versioning.Prerelease)
	l.v.SetDefault("versioning.preserve_prerelease", defaults.Versioning.PreservePrerelease)
	l.v.SetDefault("versioning.increment_prerelease", defaults.Versioning.IncrementPrerelease)
	l.v.SetDefault("versioning.build_metadata", defaults.Versioning.BuildMetadata)
	l.v.SetDefault("versioning.write_version", defaults.Versioning.WriteVersion)
	l.v.SetDefault("versioning.non_annotated_tag", defaults.Versioning.NonAnnotatedTag)
	l.v.SetDefault("versioning.tag_prefix", defaults.Versioning.TagPrefix)

	l.v.SetDefault("tools.timeout", defaults.Tools.Timeout)
	l.v.SetDefault("tools.maven", defaults.Tools.Maven)
	l.v.SetDefault("tools.gradle", defaults.Tools.Gradle)
	l.v.SetDefault("tools.npm", defaults.Tools.NPM)
	l.v.SetDefault("tools.go", defaults.Tools.Go)
	l.v.SetDefault("tools.python", defaults.Tools.Python)
	l.v.SetDefault("tools.git", defaults.Tools.Git)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
}

// loadEnvFiles loads .env files from the search paths without overriding
// variables already set in the process environment.
func (l *Loader) loadEnvFiles() error {
	var files []string
	for _, searchPath := range l.searchPaths {
		envFile := filepath.Join(searchPath, EnvFileName)
		if _, err := os.Stat(envFile); err == nil {
			files = append(files, envFile)
		}
	}
	if len(files) == 0 {
		return nil
	}
	return godotenv.Load(files...)
}

// loadConfigFile loads the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	configFile, err := FindConfigFile(l.searchPaths...)
	if err != nil {
		// No config file found - defaults apply.
		return nil
	}
	l.v.SetConfigFile(configFile)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", configFile, err)
	}
	return nil
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}

	return "", rperrors.New(rperrors.KindNotFound, "no config file found")
}
