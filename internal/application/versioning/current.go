package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// Source names where the current version came from.
type Source string

// Version sources.
const (
	SourceManifest Source = "manifest"
	SourceTag      Source = "tag"
	SourceDefault  Source = "default"
)

// CurrentVersion is the reconciled version a resolution starts from.
type CurrentVersion struct {
	Version        version.SemanticVersion
	Source         Source
	DescriptorType project.Type
	Warnings       []string

	descriptor project.Descriptor
}

// Descriptor returns the descriptor matched for the directory, if any.
func (c CurrentVersion) Descriptor() (project.Descriptor, bool) {
	return c.descriptor, c.descriptor != nil
}

// CurrentVersionResolver reconciles the manifest version with the latest tag.
type CurrentVersionResolver struct {
	registry *project.Registry
	runner   project.CommandRunner
	logger   *slog.Logger
}

// NewCurrentVersionResolver creates a resolver over registry, running build
// tools through runner.
func NewCurrentVersionResolver(registry *project.Registry, runner project.CommandRunner, logger *slog.Logger) *CurrentVersionResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CurrentVersionResolver{
		registry: registry,
		runner:   runner,
		logger:   logger.With("component", "current_version"),
	}
}

// Resolve returns the authoritative current version of dir.
//
// Without a descriptor the tag decides, or 0.0.0 when there is no tag. With a
// descriptor the manifest decides unless the tag is strictly greater, in which
// case the tag wins and a drift warning is recorded.
func (r *CurrentVersionResolver) Resolve(ctx context.Context, dir, latestTag string) (CurrentVersion, error) {
	const op = "versioning.CurrentVersionResolver.Resolve"

	tag := strings.TrimSpace(latestTag)
	var (
		tagVersion version.SemanticVersion
		hasTag     bool
	)
	if tag != "" {
		v, err := version.Parse(tag)
		if err != nil {
			return CurrentVersion{}, rperrors.VersionWrap(err, op, fmt.Sprintf("latest tag %q is not a semantic version", tag))
		}
		tagVersion, hasTag = v, true
	}

	d, ok := r.registry.Detect(dir)
	if !ok {
		if !hasTag {
			r.logger.Debug("no project descriptor and no tag, starting from zero", "dir", dir)
			return CurrentVersion{Version: version.Zero, Source: SourceDefault}, nil
		}
		r.logger.Debug("no project descriptor, using tag", "dir", dir, "tag", tagVersion.String())
		return CurrentVersion{Version: tagVersion, Source: SourceTag}, nil
	}

	manifestVersion, err := d.ReadVersion(ctx, dir, r.runner)
	if err != nil {
		return CurrentVersion{}, rperrors.Wrap(err, rperrors.GetKind(err), op,
			fmt.Sprintf("failed to read %s project version", d.Type()))
	}

	current := CurrentVersion{
		Version:        manifestVersion,
		Source:         SourceManifest,
		DescriptorType: d.Type(),
		descriptor:     d,
	}
	if hasTag && tagVersion.GreaterThan(manifestVersion) {
		warning := fmt.Sprintf("%s manifest version %s is behind tag %s; using the tag", d.Type(), manifestVersion, tagVersion)
		r.logger.Warn("manifest version is behind latest tag",
			"project", d.Type().String(),
			"manifest_version", manifestVersion.String(),
			"tag_version", tagVersion.String())
		current.Version = tagVersion
		current.Source = SourceTag
		current.Warnings = append(current.Warnings, warning)
	}
	return current, nil
}
