// Package cli provides the command-line interface for nextversion.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/relicta-tech/nextversion/internal/config"
	"github.com/relicta-tech/nextversion/internal/container"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	workDir    string
	verbose    bool
	outputJSON bool
	noColor    bool
	logLevel   string

	// Global config
	cfg *config.Config

	// Logger
	logger *log.Logger

	// containerOptions are appended to the options every command builds its container with.
	containerOptions []container.Option

	// Styles
	styles = struct {
		Title   lipgloss.Style
		Success lipgloss.Style
		Error   lipgloss.Style
		Warning lipgloss.Style
		Info    lipgloss.Style
		Subtle  lipgloss.Style
		Bold    lipgloss.Style
	}{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nextversion",
	Short: "Compute the next semantic version from conventional commits",
	Long: `nextversion computes the next semantic version of a project.

It reads the current version from the project's build manifest (Maven,
Gradle, npm, Make, Python, Helm, Go or PHP) or from the latest git tag,
classifies the commits since that tag as conventional commits and bumps
the version accordingly.

Run 'nextversion next --write' to also store the new version in the manifest.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for version and help
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// JSON format and log level are configured in initConfig based on flags
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: nextversion.yaml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(detectCmd)
}

// projectDir returns the absolute project directory.
func projectDir() (string, error) {
	dir := workDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}

// loadConfig loads the configuration file and environment for the project directory.
func loadConfig() error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	loader := config.NewLoader().WithSearchPaths(dir)
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// validateConfig validates the configuration after flags were applied and
// logs validator warnings.
func validateConfig() error {
	validator := config.NewValidator()
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range validator.Warnings() {
		logger.Warn(w)
	}
	return nil
}

// applyGlobalFlags applies global CLI flags to the configuration.
func applyGlobalFlags(cmd *cobra.Command) {
	if verbose {
		cfg.Output.Verbose = true
	}

	if outputJSON {
		cfg.Output.Format = "json"
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Output.LogLevel = logLevel
	}

	if noColor {
		cfg.Output.Color = false
	}
	if !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// configureLoggerFormat configures the logger format based on settings.
func configureLoggerFormat() {
	if isJSONOutput() {
		logger.SetFormatter(log.JSONFormatter)
		logger.SetReportTimestamp(true)
		logger.SetReportCaller(true)
	} else {
		logger.SetFormatter(log.TextFormatter)
		logger.SetReportCaller(false)
	}
}

// configureLogLevel sets the logger level based on configuration.
func configureLogLevel() {
	switch cfg.Output.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if cfg.Output.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// initConfig reads in config file and ENV variables, then applies flags.
func initConfig(cmd *cobra.Command) error {
	if err := loadConfig(); err != nil {
		return err
	}

	applyGlobalFlags(cmd)
	applyVersioningFlags(cmd)

	configureLoggerFormat()
	configureLogLevel()

	return validateConfig()
}

// newApp builds the service container for the current configuration.
// Services log through the console logger.
func newApp() (*container.Container, error) {
	opts := append([]container.Option{
		container.WithLogger(slog.New(logger)),
	}, containerOptions...)
	return container.New(cfg, opts...)
}

// isJSONOutput returns true if JSON output is enabled.
func isJSONOutput() bool {
	if cfg == nil {
		return outputJSON
	}
	return outputJSON || cfg.Output.Format == "json"
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "nextversion %s\n", versionInfo.Version)
		if verbose {
			fmt.Fprintf(out, "  commit: %s\n", versionInfo.Commit)
			fmt.Fprintf(out, "  built:  %s\n", versionInfo.Date)
		}
	},
}
