package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/nextversion/internal/application/versioning"
)

var nextQuiet bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute the next version",
	Long: `Compute the next version of the project.

The current version is read from the project manifest, or from the latest
tag when the manifest is behind it or there is none. Commits since the tag
are classified as conventional commits: a breaking change bumps the major
version, a feature the minor version and anything else the patch version.

With --write the next version is stored in the manifest.`,
	Example: `  nextversion next
  nextversion next --prerelease rc.1
  nextversion next --increment-prerelease --write
  nextversion next --json`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	addTagFlags(nextCmd)
	nextCmd.Flags().StringVarP(&versioningFlags.prerelease, "prerelease", "p", "", "prerelease identifier for the next version (e.g. alpha, rc.1)")
	nextCmd.Flags().BoolVar(&versioningFlags.preservePrerelease, "preserve-prerelease", false, "keep the current prerelease identifier")
	nextCmd.Flags().BoolVar(&versioningFlags.incrementPrerelease, "increment-prerelease", false, "increment the current prerelease instead of bumping the version")
	nextCmd.Flags().StringVarP(&versioningFlags.buildMetadata, "build-metadata", "b", "", "build metadata for the next version")
	nextCmd.Flags().BoolVarP(&versioningFlags.writeVersion, "write", "w", false, "write the next version to the project manifest")
	nextCmd.Flags().BoolVarP(&nextQuiet, "quiet", "q", false, "print only the next version")
}

// nextResult is the JSON output of the next command.
type nextResult struct {
	ID                    string   `json:"id"`
	Current               string   `json:"current"`
	Source                string   `json:"source"`
	Project               string   `json:"project,omitempty"`
	Tag                   string   `json:"tag,omitempty"`
	Next                  string   `json:"next"`
	Bump                  string   `json:"bump"`
	ClassificationSkipped bool     `json:"classification_skipped,omitempty"`
	Commits               int      `json:"commits"`
	Breaking              []string `json:"breaking,omitempty"`
	Features              []string `json:"features,omitempty"`
	Written               bool     `json:"written"`
	WriteMessage          string   `json:"write_message,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
}

func newNextResult(h history, out *versioning.ResolveVersionOutput) nextResult {
	r := nextResult{
		ID:                    out.ID,
		Current:               out.Current.Version.String(),
		Source:                string(out.Current.Source),
		Project:               out.Current.DescriptorType.String(),
		Next:                  out.Next.String(),
		Bump:                  out.Bump.String(),
		ClassificationSkipped: out.ClassificationSkipped,
		Commits:               len(h.Commits),
		Breaking:              out.Analysis.Breaking,
		Features:              out.Analysis.Features,
		Written:               out.Written,
		WriteMessage:          out.WriteMessage,
		Warnings:              out.Warnings,
	}
	if h.HasTag {
		r.Tag = h.Tag.Name
	}
	return r
}

// runNext implements the next command.
func runNext(cmd *cobra.Command, args []string) error {
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

	directives := app.Directives()
	if directives.StartTag != "" {
		directives.StartTag = h.Tag.Version
	}

	output, err := app.ResolveVersion().Execute(ctx, versioning.ResolveVersionInput{
		Dir:        dir,
		LatestTag:  h.LatestTag(),
		Commits:    h.Commits,
		Directives: directives,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve next version: %w", err)
	}

	w := cmd.OutOrStdout()
	switch {
	case isJSONOutput():
		return writeJSON(w, newNextResult(h, output))
	case nextQuiet:
		_, err := fmt.Fprintln(w, output.Next.String())
		return err
	}
	printNextText(w, h, output)
	return nil
}

func printNextText(w io.Writer, h history, out *versioning.ResolveVersionOutput) {
	printTitle(w, "Next Version")
	fmt.Fprintln(w)

	current := fmt.Sprintf("%s (%s)", out.Current.Version, out.Current.Source)
	if out.Current.DescriptorType != "" {
		current = fmt.Sprintf("%s (%s, %s project)", out.Current.Version, out.Current.Source, out.Current.DescriptorType)
	}
	printField(w, "Current version", current)
	if h.HasTag {
		printField(w, "Latest tag", h.Tag.Name)
	}
	printField(w, "Commits", fmt.Sprintf("%d", len(h.Commits)))
	if out.ClassificationSkipped {
		printField(w, "Bump type", "prerelease increment")
	} else {
		printField(w, "Bump type", out.Bump.String())
	}
	printField(w, "Next version", out.Next.String())
	fmt.Fprintln(w)

	for _, warning := range out.Warnings {
		printWarning(w, warning)
	}

	switch {
	case out.Written:
		printSuccess(w, out.WriteMessage)
	case out.WriteMessage != "":
		printInfo(w, out.WriteMessage)
	}

	if verbose {
		for _, c := range out.Analysis.Breaking {
			printSubtle(w, "  breaking: "+c)
		}
		for _, c := range out.Analysis.Features {
			printSubtle(w, "  feature:  "+c)
		}
	}
}
