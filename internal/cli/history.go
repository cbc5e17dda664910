package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/nextversion/internal/config"
	"github.com/relicta-tech/nextversion/internal/container"
	"github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/infrastructure/git"
)

// versioningFlags hold the per-command versioning flags. Only flags the user
// set override the configuration.
var versioningFlags struct {
	startTag            string
	nonAnnotatedTag     bool
	tagPrefix           string
	prerelease          string
	preservePrerelease  bool
	incrementPrerelease bool
	buildMetadata       string
	writeVersion        bool
}

// addTagFlags registers the tag discovery flags on cmd.
func addTagFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&versioningFlags.startTag, "start-tag", "", "tag to continue from instead of the discovered latest tag")
	cmd.Flags().BoolVar(&versioningFlags.nonAnnotatedTag, "non-annotated-tag", false, "use the highest of all tags instead of the nearest reachable one")
	cmd.Flags().StringVar(&versioningFlags.tagPrefix, "tag-prefix", "v", "prefix stripped from tag names")
}

// applyVersioningFlags copies the versioning flags the user set on cmd into the configuration.
func applyVersioningFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	v := &cfg.Versioning

	if flags.Changed("start-tag") {
		v.StartTag = versioningFlags.startTag
	}
	if flags.Changed("non-annotated-tag") {
		v.NonAnnotatedTag = versioningFlags.nonAnnotatedTag
	}
	if flags.Changed("tag-prefix") {
		v.TagPrefix = versioningFlags.tagPrefix
	}
	if flags.Changed("prerelease") {
		v.Prerelease = versioningFlags.prerelease
	}
	if flags.Changed("preserve-prerelease") {
		v.PreservePrerelease = versioningFlags.preservePrerelease
	}
	if flags.Changed("increment-prerelease") {
		v.IncrementPrerelease = versioningFlags.incrementPrerelease
	}
	if flags.Changed("build-metadata") {
		v.BuildMetadata = versioningFlags.buildMetadata
	}
	if flags.Changed("write") {
		v.WriteVersion = versioningFlags.writeVersion
	}
}

// tagHistory is the part of a git repository that tag discovery reads.
type tagHistory interface {
	LatestTag(ctx context.Context, nonAnnotated bool, prefix string) (git.Tag, bool, error)
	FindTag(ctx context.Context, name, prefix string) (git.Tag, bool, error)
	CommitMessages(ctx context.Context, since string) ([]string, error)
}

// history is the tag a resolution continues from and the commits made since.
type history struct {
	Tag        git.Tag
	HasTag     bool
	Commits    []string
	Repository bool
}

// LatestTag returns the tag version handed to the resolver, or "" without a tag.
func (h history) LatestTag() string {
	if !h.HasTag {
		return ""
	}
	return h.Tag.Version
}

// collectHistory finds the start tag, or the latest tag, and the commits since it.
func collectHistory(ctx context.Context, repo tagHistory, v config.VersioningConfig) (history, error) {
	const op = "cli.collectHistory"

	h := history{Repository: true}
	if v.StartTag != "" {
		tag, found, err := repo.FindTag(ctx, v.StartTag, v.TagPrefix)
		if err != nil {
			return history{}, err
		}
		if !found {
			return history{}, errors.E(errors.KindNotFound, op, fmt.Sprintf("start tag %q does not exist", v.StartTag))
		}
		h.Tag, h.HasTag = tag, true
	} else {
		tag, found, err := repo.LatestTag(ctx, v.NonAnnotatedTag, v.TagPrefix)
		if err != nil {
			return history{}, err
		}
		h.Tag, h.HasTag = tag, found
	}

	since := ""
	if h.HasTag {
		since = h.Tag.Hash
	}
	commits, err := repo.CommitMessages(ctx, since)
	if err != nil {
		return history{}, err
	}
	h.Commits = commits
	return h, nil
}

// loadHistory opens the repository containing dir and collects its history.
// Outside a repository the start tag, if any, is the only history.
func loadHistory(ctx context.Context, app *container.Container, dir string) (history, error) {
	repo, err := app.OpenRepository(dir)
	if err != nil {
		if !git.IsNotRepository(err) {
			return history{}, err
		}
		logger.Warn("not a git repository, resolving without tags or commits", "dir", dir)
		if start := cfg.Versioning.StartTag; start != "" {
			return history{
				Tag:    git.Tag{Name: start, Version: strings.TrimPrefix(start, cfg.Versioning.TagPrefix)},
				HasTag: true,
			}, nil
		}
		return history{}, nil
	}

	logger.Debug("opened repository", "root", repo.Root())
	return collectHistory(ctx, repo, cfg.Versioning)
}
