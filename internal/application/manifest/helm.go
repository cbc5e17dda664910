package manifest

import (
	"context"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/fileutil"
)

const (
	chartFile       = "Chart.yaml"
	chartVersionKey = "version"
)

// Helm handles Helm charts. Only the top-level version key of Chart.yaml is
// touched; appVersion, comments and key order are preserved.
type Helm struct{}

// NewHelm creates a Helm chart descriptor.
func NewHelm() *Helm {
	return &Helm{}
}

// Type implements project.Descriptor.
func (h *Helm) Type() project.Type { return project.TypeHelm }

// Detect implements project.Descriptor.
func (h *Helm) Detect(dir string) bool {
	return fileExists(filepath.Join(dir, chartFile))
}

// Files implements project.Descriptor.
func (h *Helm) Files(dir string) []string {
	return []string{filepath.Join(dir, chartFile)}
}

// ReadVersion implements project.Descriptor.
func (h *Helm) ReadVersion(_ context.Context, dir string, _ project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Helm.ReadVersion"

	node, err := chartVersionNode(op, filepath.Join(dir, chartFile))
	if err != nil {
		return version.Zero, err
	}
	return parseVersion(op, node.Value, chartFile)
}

// WriteVersion rewrites the line holding the top-level version value.
func (h *Helm) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.Helm.WriteVersion"

	path := filepath.Join(dir, chartFile)
	node, err := chartVersionNode(op, path)
	if err != nil {
		return "", err
	}

	ok, err := patchAssignment(path, v.String(), func(lineNo int, a assignment) bool {
		return lineNo == node.Line
	})
	if err != nil {
		return "", patchFailure(op, path, err)
	}
	if !ok {
		return "", fieldMissing(op, chartFile)
	}
	return updated(path, v), nil
}

// chartVersionNode returns the scalar node of the top-level version key.
func chartVersionNode(op, path string) (*yaml.Node, error) {
	data, err := fileutil.ReadFileLimited(path, maxManifestSize)
	if err != nil {
		return nil, readFailure(op, path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, rperrors.Wrap(err, rperrors.KindValidation, op, "failed to parse "+chartFile)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fieldMissing(op, chartFile)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fieldMissing(op, chartFile)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Value != chartVersionKey {
			continue
		}
		if value.Kind != yaml.ScalarNode || value.Value == "" {
			break
		}
		return value, nil
	}
	return nil, fieldMissing(op, chartFile)
}
