package manifest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

const composerFile = "composer.json"

// Composer handles PHP packages. Packagist derives versions from tags, so a
// composer.json without a version falls back to the latest git tag.
type Composer struct {
	git string
}

// NewComposer creates a composer.json descriptor using git for the tag fallback.
func NewComposer(git string) *Composer {
	return &Composer{git: git}
}

// Type implements project.Descriptor.
func (c *Composer) Type() project.Type { return project.TypePHP }

// Detect implements project.Descriptor.
func (c *Composer) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, composerFile))
}

// Files implements project.Descriptor.
func (c *Composer) Files(dir string) []string {
	return []string{filepath.Join(dir, composerFile)}
}

// ReadVersion implements project.Descriptor.
func (c *Composer) ReadVersion(ctx context.Context, dir string, runner project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Composer.ReadVersion"

	raw, err := readJSONVersion(op, filepath.Join(dir, composerFile))
	if err != nil {
		return version.Zero, err
	}
	if raw != "" {
		return parseVersion(op, raw, composerFile)
	}

	tag, err := runner.Run(ctx, dir, c.git, "describe", "--abbrev=0", "--tags")
	if err != nil {
		if !gitRanWithoutTag(err) {
			return version.Zero, toolFailure(op, c.git, err)
		}
		return version.Zero, rperrors.FieldMissingWrap(err, op,
			fmt.Sprintf("%s has no version and no git tag was found", composerFile))
	}
	return parseVersion(op, lastLine(tag), "git tag")
}

// gitRanWithoutTag reports whether err is git describe exiting non-zero,
// which is how it reports a repository without tags. Other runner failures,
// such as git missing from PATH, carry no positive exit code.
func gitRanWithoutTag(err error) bool {
	if !rperrors.IsKind(err, rperrors.KindExternalTool) {
		return false
	}
	code, ok := rperrors.Detail(err, rperrors.DetailExitCode)
	if !ok {
		return false
	}
	n, ok := code.(int)
	return ok && n > 0
}

// WriteVersion patches an explicit top-level version property and is a no-op
// otherwise.
func (c *Composer) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.Composer.WriteVersion"

	path := filepath.Join(dir, composerFile)
	loc, err := locateJSONVersion(op, path)
	if err != nil {
		return "", err
	}
	if !loc.found || loc.value == "" {
		return fmt.Sprintf("%s has no version property; the version comes from the git tag %s", composerFile, v.TagString()), nil
	}

	ok, err := patchJSONVersion(path, loc, v.String())
	if err != nil {
		return "", patchFailure(op, path, err)
	}
	if !ok {
		return "", fieldMissing(op, composerFile)
	}
	return updated(path, v), nil
}
