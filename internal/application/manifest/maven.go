package manifest

import (
	"context"
	"path/filepath"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
)

const pomFile = "pom.xml"

// Maven handles projects built with Maven. The version is read and written
// through the mvn executable so inherited and property-based versions resolve.
type Maven struct {
	command string
}

// NewMaven creates a Maven descriptor invoking command.
func NewMaven(command string) *Maven {
	return &Maven{command: command}
}

// Type implements project.Descriptor.
func (m *Maven) Type() project.Type { return project.TypeMaven }

// Detect implements project.Descriptor.
func (m *Maven) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, pomFile))
}

// Files implements project.Descriptor.
func (m *Maven) Files(dir string) []string {
	return []string{filepath.Join(dir, pomFile)}
}

// ReadVersion evaluates project.version with the help plugin.
func (m *Maven) ReadVersion(ctx context.Context, dir string, runner project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Maven.ReadVersion"

	out, err := runner.Run(ctx, dir, m.command, "help:evaluate", "-Dexpression=project.version", "-q", "-DforceStdout")
	if err != nil {
		return version.Zero, toolFailure(op, m.command, err)
	}
	raw := lastLine(out)
	if raw == "" {
		return version.Zero, fieldMissing(op, pomFile)
	}
	return parseVersion(op, raw, pomFile)
}

// WriteVersion sets the version with the versions plugin without backup POMs.
func (m *Maven) WriteVersion(ctx context.Context, dir string, v version.SemanticVersion, runner project.CommandRunner) (string, error) {
	const op = "manifest.Maven.WriteVersion"

	if _, err := runner.Run(ctx, dir, m.command, "versions:set", "-DnewVersion="+v.String(), "-DgenerateBackupPoms=false"); err != nil {
		return "", toolFailure(op, m.command, err)
	}
	return updated(filepath.Join(dir, pomFile), v), nil
}
