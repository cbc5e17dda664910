package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/fileutil"
)

const goModFile = "go.mod"

// goReleaseTag matches the release tags considered by the Go descriptor:
// vMAJOR.MINOR.PATCH with an optional -alpha.N or -beta.N suffix.
var goReleaseTag = regexp.MustCompile(`^v\d+\.\d+\.\d+(-(alpha|beta)\.\d+)?$`)

// GoModule handles Go modules. A module's version is its VCS tag, so writing
// is a verified no-op.
type GoModule struct {
	command string
}

// NewGoModule creates a Go module descriptor invoking command.
func NewGoModule(command string) *GoModule {
	return &GoModule{command: command}
}

// Type implements project.Descriptor.
func (g *GoModule) Type() project.Type { return project.TypeGo }

// Detect implements project.Descriptor.
func (g *GoModule) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, goModFile))
}

// Files implements project.Descriptor.
func (g *GoModule) Files(dir string) []string {
	return []string{filepath.Join(dir, goModFile)}
}

// ReadVersion lists the module's published versions with "go list -m -versions"
// and returns the last release tag.
func (g *GoModule) ReadVersion(ctx context.Context, dir string, runner project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.GoModule.ReadVersion"

	modulePath, err := g.modulePath(op, dir)
	if err != nil {
		return version.Zero, err
	}

	out, err := runner.Run(ctx, dir, g.command, "list", "-m", "-versions", modulePath)
	if err != nil {
		return version.Zero, toolFailure(op, g.command, err)
	}

	latest := ""
	for _, token := range strings.Fields(out) {
		if goReleaseTag.MatchString(token) && semver.IsValid(token) {
			latest = token
		}
	}
	if latest == "" {
		return version.Zero, rperrors.FieldMissingWrap(project.ErrVersionFieldMissing, op,
			fmt.Sprintf("go list reported no released version for %s", modulePath))
	}
	return parseVersion(op, strings.TrimPrefix(latest, "v"), "go list")
}

// WriteVersion checks that go.mod is valid and leaves it unchanged.
func (g *GoModule) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.GoModule.WriteVersion"

	modulePath, err := g.modulePath(op, dir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is versioned by its git tag; tag the release as %s", modulePath, v.TagString()), nil
}

func (g *GoModule) modulePath(op, dir string) (string, error) {
	path := filepath.Join(dir, goModFile)
	data, err := fileutil.ReadFileLimited(path, maxManifestSize)
	if err != nil {
		return "", readFailure(op, path, err)
	}

	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return "", rperrors.Wrap(err, rperrors.KindValidation, op, "failed to parse "+goModFile)
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return "", rperrors.Wrap(project.ErrVersionFieldMissing, rperrors.KindValidation, op, "go.mod has no module directive")
	}
	return f.Module.Mod.Path, nil
}
