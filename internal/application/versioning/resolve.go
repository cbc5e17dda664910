package versioning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/relicta-tech/nextversion/internal/domain/changes"
	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// NoDescriptorWriteMessage is reported when a write is requested but no
// project descriptor matched the directory.
const NoDescriptorWriteMessage = "Could not write the next version to the configuration file."

// Calculation is the result of applying commits and directives to a version.
type Calculation struct {
	Next                  version.SemanticVersion
	Bump                  version.BumpType
	ClassificationSkipped bool
	Analysis              changes.Analysis
}

// Calculate derives the next version from current. Directives must already be
// validated.
//
//  1. With IncrementPrerelease and a prerelease on current, the prerelease is
//     incremented and commits are not classified.
//  2. Otherwise commits are classified and current is bumped.
//  3. BuildMetadata is applied.
//  4. Outside increment mode, a prerelease on current is either preserved or,
//     without a new Prerelease, the release graduates to current's normal version.
//  5. Prerelease is applied last.
func Calculate(current version.SemanticVersion, commits []string, d Directives) (Calculation, error) {
	const op = "versioning.Calculate"

	d = d.Normalize()
	var c Calculation

	incrementing := d.IncrementPrerelease && current.IsPrerelease()
	if incrementing {
		next, err := current.IncrementPrerelease()
		if err != nil {
			return Calculation{}, rperrors.VersionWrap(err, op, "failed to increment prerelease")
		}
		c.Next = next
		c.Bump = version.BumpNone
		c.ClassificationSkipped = true
	} else {
		c.Analysis = changes.Analyze(commits)
		c.Bump = c.Analysis.Bump
		c.Next = version.Bump(current, c.Bump)
	}

	if d.BuildMetadata != "" {
		c.Next = c.Next.WithMetadata(d.BuildMetadata)
	}

	if !incrementing && current.IsPrerelease() {
		switch {
		case d.PreservePrerelease:
			c.Next = c.Next.WithPrerelease(current.Prerelease())
		case d.Prerelease == "":
			// Graduation drops current's metadata but re-applies the requested
			// BuildMetadata from step 3, so "-b ci.42" survives "0.2.0-alpha" -> "0.2.0+ci.42".
			c.Next = current.NormalVersion().WithMetadata(d.BuildMetadata)
		}
	}

	if d.Prerelease != "" {
		c.Next = c.Next.WithPrerelease(d.Prerelease)
	}
	return c, nil
}

// ResolveVersionInput represents input for the ResolveVersion use case.
type ResolveVersionInput struct {
	Dir        string
	LatestTag  string
	Commits    []string
	Directives Directives
}

// ResolveVersionOutput represents output of the ResolveVersion use case.
type ResolveVersionOutput struct {
	ID                    string
	Current               CurrentVersion
	Next                  version.SemanticVersion
	Bump                  version.BumpType
	ClassificationSkipped bool
	Analysis              changes.Analysis
	WriteMessage          string
	Written               bool
	Warnings              []string
}

// ResolveVersionUseCase computes the next version and optionally writes it back.
type ResolveVersionUseCase struct {
	resolver *CurrentVersionResolver
	runner   project.CommandRunner
	logger   *slog.Logger
}

// NewResolveVersionUseCase creates a new ResolveVersionUseCase.
func NewResolveVersionUseCase(resolver *CurrentVersionResolver, runner project.CommandRunner, logger *slog.Logger) *ResolveVersionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveVersionUseCase{
		resolver: resolver,
		runner:   runner,
		logger:   logger.With("usecase", "resolve_version"),
	}
}

// Execute executes the resolve version use case.
func (uc *ResolveVersionUseCase) Execute(ctx context.Context, input ResolveVersionInput) (*ResolveVersionOutput, error) {
	const op = "versioning.ResolveVersionUseCase.Execute"

	if err := input.Directives.Validate(); err != nil {
		return nil, err
	}
	d := input.Directives.Normalize()

	id := uuid.NewString()
	logger := uc.logger.With("resolution_id", id)

	latestTag := input.LatestTag
	if d.StartTag != "" {
		latestTag = d.StartTag
	}

	current, err := uc.resolver.Resolve(ctx, input.Dir, latestTag)
	if err != nil {
		return nil, err
	}

	calc, err := Calculate(current.Version, input.Commits, d)
	if err != nil {
		return nil, err
	}

	output := &ResolveVersionOutput{
		ID:                    id,
		Current:               current,
		Next:                  calc.Next,
		Bump:                  calc.Bump,
		ClassificationSkipped: calc.ClassificationSkipped,
		Analysis:              calc.Analysis,
	}
	output.Warnings = append(output.Warnings, current.Warnings...)

	for _, w := range calc.Analysis.Warnings {
		logger.Warn("non-compliant breaking change footer is not counted as breaking",
			"keyword", w.Keyword,
			"commit", w.Header,
			"expected", changes.BreakingChangeFooter)
		output.Warnings = append(output.Warnings,
			fmt.Sprintf("footer %q in %q is not a breaking change marker; use %q", w.Keyword, w.Header, changes.BreakingChangeFooter))
	}

	logger.Debug("calculated next version",
		"current", current.Version.String(),
		"source", string(current.Source),
		"bump", calc.Bump.String(),
		"next", calc.Next.String(),
		"classification_skipped", calc.ClassificationSkipped,
		"commits", len(input.Commits))

	if !d.WriteVersion {
		return output, nil
	}

	descriptor, ok := current.Descriptor()
	if !ok {
		logger.Info(NoDescriptorWriteMessage, "dir", input.Dir)
		output.WriteMessage = NoDescriptorWriteMessage
		return output, nil
	}

	msg, err := descriptor.WriteVersion(ctx, input.Dir, calc.Next, uc.runner)
	if err != nil {
		return nil, rperrors.Wrap(err, rperrors.GetKind(err), op,
			fmt.Sprintf("failed to write version %s to %s project", calc.Next, descriptor.Type()))
	}
	logger.Info("wrote next version", "project", descriptor.Type().String(), "version", calc.Next.String())
	output.WriteMessage = msg
	output.Written = true
	return output, nil
}
