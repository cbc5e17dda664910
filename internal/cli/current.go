package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the current version",
	Long: `Print the current version of the project.

The manifest version is used unless the latest tag is newer. Without a
manifest the latest tag is used, and without either the version is 0.0.0.`,
	Args: cobra.NoArgs,
	RunE: runCurrent,
}

func init() {
	addTagFlags(currentCmd)
}

// currentResult is the JSON output of the current command.
type currentResult struct {
	Version  string   `json:"version"`
	Source   string   `json:"source"`
	Project  string   `json:"project,omitempty"`
	Tag      string   `json:"tag,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// runCurrent implements the current command.
func runCurrent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir, err := projectDir()
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	h, err := loadHistory(ctx, app, dir)
	if err != nil {
		return fmt.Errorf("failed to read git history: %w", err)
	}

	current, err := app.CurrentVersion().Resolve(ctx, dir, h.LatestTag())
	if err != nil {
		return fmt.Errorf("failed to resolve current version: %w", err)
	}

	w := cmd.OutOrStdout()
	if isJSONOutput() {
		r := currentResult{
			Version:  current.Version.String(),
			Source:   string(current.Source),
			Project:  current.DescriptorType.String(),
			Warnings: current.Warnings,
		}
		if h.HasTag {
			r.Tag = h.Tag.Name
		}
		return writeJSON(w, r)
	}

	for _, warning := range current.Warnings {
		printWarning(cmd.ErrOrStderr(), warning)
	}
	_, err = fmt.Fprintln(w, current.Version.String())
	return err
}
