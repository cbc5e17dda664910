// Package manifest implements project descriptors for the supported build
// ecosystems and the line-oriented patcher they use to rewrite versions.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// maxManifestSize bounds manifests parsed in memory (JSON, YAML, TOML, go.mod).
const maxManifestSize = 10 << 20

// Tools holds the executable names used by tool-backed descriptors.
type Tools struct {
	Maven  string `mapstructure:"maven" json:"maven,omitempty"`
	Gradle string `mapstructure:"gradle" json:"gradle,omitempty"`
	NPM    string `mapstructure:"npm" json:"npm,omitempty"`
	Go     string `mapstructure:"go" json:"go,omitempty"`
	Python string `mapstructure:"python" json:"python,omitempty"`
	Git    string `mapstructure:"git" json:"git,omitempty"`
}

// DefaultTools returns the platform executable names for goos.
func DefaultTools(goos string) Tools {
	t := Tools{
		Maven:  "mvn",
		Gradle: "gradle",
		NPM:    "npm",
		Go:     "go",
		Python: "python3",
		Git:    "git",
	}
	if goos == "windows" {
		t.Maven = "mvn.cmd"
		t.Gradle = "gradle.bat"
		t.NPM = "npm.cmd"
		t.Python = "python"
	}
	return t
}

// Merge returns t with every non-empty field of overrides applied.
func (t Tools) Merge(overrides Tools) Tools {
	pick := func(base, override string) string {
		if strings.TrimSpace(override) != "" {
			return override
		}
		return base
	}
	return Tools{
		Maven:  pick(t.Maven, overrides.Maven),
		Gradle: pick(t.Gradle, overrides.Gradle),
		NPM:    pick(t.NPM, overrides.NPM),
		Go:     pick(t.Go, overrides.Go),
		Python: pick(t.Python, overrides.Python),
		Git:    pick(t.Git, overrides.Git),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func existing(dir string, names ...string) []string {
	var files []string
	for _, name := range names {
		if p := filepath.Join(dir, name); fileExists(p) {
			files = append(files, p)
		}
	}
	return files
}

// parseVersion parses raw as read from source, wrapping failures as KindVersion.
func parseVersion(op, raw, source string) (version.SemanticVersion, error) {
	v, err := version.Parse(strings.TrimSpace(raw))
	if err != nil {
		return version.Zero, rperrors.VersionWrap(err, op, fmt.Sprintf("malformed version in %s", source))
	}
	return v, nil
}

func fieldMissing(op, source string) error {
	return rperrors.FieldMissingWrap(project.ErrVersionFieldMissing, op,
		fmt.Sprintf("no version field found in %s", source))
}

// toolFailure adds op context to a runner error while keeping its kind.
func toolFailure(op, tool string, err error) error {
	kind := rperrors.GetKind(err)
	if kind == rperrors.KindUnknown {
		kind = rperrors.KindExternalTool
	}
	return rperrors.Wrap(err, kind, op, fmt.Sprintf("%s failed", tool))
}

func readFailure(op, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return rperrors.FieldMissingWrap(err, op, fmt.Sprintf("%s does not exist", filepath.Base(path)))
	}
	return rperrors.IOWrap(err, op, fmt.Sprintf("failed to read %s", filepath.Base(path)))
}

func patchFailure(op, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return rperrors.FieldMissingWrap(err, op, fmt.Sprintf("%s does not exist", filepath.Base(path)))
	}
	return rperrors.IOWrap(err, op, fmt.Sprintf("failed to update %s", filepath.Base(path)))
}

func updated(path string, v version.SemanticVersion) string {
	return fmt.Sprintf("Updated %s to version %s", filepath.Base(path), v)
}

// lastLine returns the last non-blank line of tool output.
func lastLine(out string) string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
