package manifest

import (
	"context"
	"path/filepath"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
)

const packageJSONFile = "package.json"

// NPM handles Node.js packages. package.json is read directly and written
// through npm so lock files stay consistent.
type NPM struct {
	command string
}

// NewNPM creates an npm descriptor invoking command.
func NewNPM(command string) *NPM {
	return &NPM{command: command}
}

// Type implements project.Descriptor.
func (n *NPM) Type() project.Type { return project.TypeNPM }

// Detect implements project.Descriptor.
func (n *NPM) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, packageJSONFile))
}

// Files implements project.Descriptor.
func (n *NPM) Files(dir string) []string {
	return []string{filepath.Join(dir, packageJSONFile)}
}

// ReadVersion reads the version property of package.json.
func (n *NPM) ReadVersion(_ context.Context, dir string, _ project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.NPM.ReadVersion"

	raw, err := readJSONVersion(op, filepath.Join(dir, packageJSONFile))
	if err != nil {
		return version.Zero, err
	}
	if raw == "" {
		return version.Zero, fieldMissing(op, packageJSONFile)
	}
	return parseVersion(op, raw, packageJSONFile)
}

// WriteVersion runs "npm version" without creating a git tag.
func (n *NPM) WriteVersion(ctx context.Context, dir string, v version.SemanticVersion, runner project.CommandRunner) (string, error) {
	const op = "manifest.NPM.WriteVersion"

	if _, err := runner.Run(ctx, dir, n.command, "version", v.String(), "--no-git-tag-version", "--allow-same-version"); err != nil {
		return "", toolFailure(op, n.command, err)
	}
	return updated(filepath.Join(dir, packageJSONFile), v), nil
}
