package manifest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
)

const (
	gradleBuildFile    = "build.gradle"
	gradleKotlinFile   = "build.gradle.kts"
	gradlePropertyFile = "gradle.properties"

	// gradleUnspecified is what Gradle reports when no version is set.
	gradleUnspecified = "unspecified"
)

// Gradle handles Gradle builds. The version is read from the evaluated
// project properties and written to gradle.properties.
type Gradle struct {
	command string
}

// NewGradle creates a Gradle descriptor invoking command.
func NewGradle(command string) *Gradle {
	return &Gradle{command: command}
}

// Type implements project.Descriptor.
func (g *Gradle) Type() project.Type { return project.TypeGradle }

// Detect implements project.Descriptor.
func (g *Gradle) Detect(dir string) bool {
	return len(existing(dir, gradleBuildFile, gradleKotlinFile)) > 0
}

// Files implements project.Descriptor.
func (g *Gradle) Files(dir string) []string {
	files := existing(dir, gradleBuildFile, gradleKotlinFile)
	return append(files, filepath.Join(dir, gradlePropertyFile))
}

// ReadVersion runs "gradle -q properties" and reads its version: line.
func (g *Gradle) ReadVersion(ctx context.Context, dir string, runner project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Gradle.ReadVersion"

	out, err := runner.Run(ctx, dir, g.command, "-q", "properties")
	if err != nil {
		return version.Zero, toolFailure(op, g.command, err)
	}

	for _, line := range strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n") {
		if !strings.HasPrefix(line, "version:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "version:"))
		if raw == "" || raw == gradleUnspecified {
			break
		}
		return parseVersion(op, raw, "gradle properties")
	}
	return version.Zero, fieldMissing(op, "gradle properties")
}

// WriteVersion patches the version key of gradle.properties.
func (g *Gradle) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.Gradle.WriteVersion"

	path := filepath.Join(dir, gradlePropertyFile)
	ok, err := PatchVersion(path, v.String(), MatchContains, "version")
	if err != nil {
		return "", patchFailure(op, path, err)
	}
	if !ok {
		return "", fieldMissing(op, gradlePropertyFile)
	}
	return updated(path, v), nil
}
