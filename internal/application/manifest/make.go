package manifest

import (
	"context"
	"path/filepath"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
)

const makefileName = "Makefile"

// Make handles projects declaring a VERSION variable at the top level of a Makefile.
type Make struct{}

// NewMake creates a Makefile descriptor.
func NewMake() *Make {
	return &Make{}
}

// Type implements project.Descriptor.
func (m *Make) Type() project.Type { return project.TypeMake }

// Detect implements project.Descriptor.
func (m *Make) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, makefileName))
}

// Files implements project.Descriptor.
func (m *Make) Files(dir string) []string {
	return []string{filepath.Join(dir, makefileName)}
}

// ReadVersion implements project.Descriptor.
func (m *Make) ReadVersion(_ context.Context, dir string, _ project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Make.ReadVersion"

	path := filepath.Join(dir, makefileName)
	raw, found, err := ScanVersion(path, MatchPrefix, "version")
	if err != nil {
		return version.Zero, readFailure(op, path, err)
	}
	if !found {
		return version.Zero, fieldMissing(op, makefileName)
	}
	return parseVersion(op, raw, makefileName)
}

// WriteVersion implements project.Descriptor.
func (m *Make) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.Make.WriteVersion"

	path := filepath.Join(dir, makefileName)
	ok, err := PatchVersion(path, v.String(), MatchPrefix, "version")
	if err != nil {
		return "", patchFailure(op, path, err)
	}
	if !ok {
		return "", fieldMissing(op, makefileName)
	}
	return updated(path, v), nil
}
