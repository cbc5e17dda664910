// Package project defines the contract for build manifests that carry a
// project version, and the ordered registry used to detect them.
package project

import (
	"context"

	"github.com/relicta-tech/nextversion/internal/domain/version"
)

// Type identifies a project ecosystem.
type Type string

// Supported project types.
const (
	TypeMaven  Type = "maven"
	TypeGradle Type = "gradle"
	TypeNPM    Type = "npm"
	TypeMake   Type = "make"
	TypePython Type = "python"
	TypeHelm   Type = "helm"
	TypeGo     Type = "go"
	TypePHP    Type = "php"
)

// String returns the string representation of the project type.
func (t Type) String() string {
	return string(t)
}

// CommandRunner executes an external build tool in a directory and returns
// its trimmed standard output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// Descriptor reads and writes the version of one kind of project.
// Implementations are stateless.
type Descriptor interface {
	// Type returns the ecosystem this descriptor handles.
	Type() Type

	// Detect reports whether dir contains this descriptor's marker file.
	Detect(dir string) bool

	// ReadVersion returns the version currently declared by the project.
	ReadVersion(ctx context.Context, dir string, runner CommandRunner) (version.SemanticVersion, error)

	// WriteVersion persists v and returns a confirmation message.
	WriteVersion(ctx context.Context, dir string, v version.SemanticVersion, runner CommandRunner) (string, error)

	// Files returns the manifest files this descriptor reads or writes in dir.
	Files(dir string) []string
}
