package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var detectAll bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show which project type is detected",
	Long: `Show the project type detected in the project directory and the
manifest files it reads. Types are tried in order and the first match wins;
use --all to list every matching type.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVarP(&detectAll, "all", "a", false, "list every matching project type")
}

// detectedProject is one entry of the detect command output.
type detectedProject struct {
	Type  string   `json:"type"`
	Files []string `json:"files"`
}

// detectResult is the JSON output of the detect command.
type detectResult struct {
	Dir      string            `json:"dir"`
	Detected bool              `json:"detected"`
	Projects []detectedProject `json:"projects"`
}

// runDetect implements the detect command.
func runDetect(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	registry := app.Registry()
	descriptors := registry.DetectAll(dir)
	if !detectAll && len(descriptors) > 1 {
		descriptors = descriptors[:1]
	}

	result := detectResult{Dir: dir, Detected: len(descriptors) > 0, Projects: []detectedProject{}}
	for _, d := range descriptors {
		files := d.Files(dir)
		for i, f := range files {
			if rel, err := filepath.Rel(dir, f); err == nil {
				files[i] = rel
			}
		}
		result.Projects = append(result.Projects, detectedProject{Type: d.Type().String(), Files: files})
	}

	w := cmd.OutOrStdout()
	if isJSONOutput() {
		return writeJSON(w, result)
	}

	if !result.Detected {
		printInfo(w, fmt.Sprintf("No supported project found in %s", dir))
		printSubtle(w, fmt.Sprintf("  supported types: %v", registry.Types()))
		return nil
	}
	for _, p := range result.Projects {
		printField(w, "Project type", p.Type)
		for _, f := range p.Files {
			printSubtle(w, "    "+f)
		}
	}
	return nil
}
