package manifest

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/fileutil"
)

// Python manifests in detection order.
const (
	setupPyFile   = "setup.py"
	setupCfgFile  = "setup.cfg"
	pyprojectFile = "pyproject.toml"
)

// TOML tables that may carry the version in pyproject.toml, in lookup order.
const (
	pyprojectTable = "project"
	poetryTable    = "tool.poetry"
)

// Python handles setuptools and PEP 621 / Poetry projects. The first existing
// manifest among setup.py, setup.cfg and pyproject.toml is used.
type Python struct {
	command string
}

// NewPython creates a Python descriptor invoking command for setup.py.
func NewPython(command string) *Python {
	return &Python{command: command}
}

// Type implements project.Descriptor.
func (p *Python) Type() project.Type { return project.TypePython }

// Detect implements project.Descriptor.
func (p *Python) Detect(dir string) bool {
	return p.manifest(dir) != ""
}

// Files implements project.Descriptor.
func (p *Python) Files(dir string) []string {
	if m := p.manifest(dir); m != "" {
		return []string{filepath.Join(dir, m)}
	}
	return nil
}

func (p *Python) manifest(dir string) string {
	for _, name := range []string{setupPyFile, setupCfgFile, pyprojectFile} {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

// ReadVersion implements project.Descriptor.
func (p *Python) ReadVersion(ctx context.Context, dir string, runner project.CommandRunner) (version.SemanticVersion, error) {
	const op = "manifest.Python.ReadVersion"

	name := p.manifest(dir)
	path := filepath.Join(dir, name)

	var raw string
	switch name {
	case setupPyFile:
		out, err := runner.Run(ctx, dir, p.command, setupPyFile, "--version")
		if err != nil {
			return version.Zero, toolFailure(op, p.command, err)
		}
		raw = lastLine(out)
	case setupCfgFile:
		value, found, err := ScanVersion(path, MatchPrefix, "version")
		if err != nil {
			return version.Zero, readFailure(op, path, err)
		}
		if found {
			raw = value
		}
	case pyprojectFile:
		value, _, _, err := readPyprojectVersion(op, path)
		if err != nil {
			return version.Zero, err
		}
		raw = value
	default:
		return version.Zero, fieldMissing(op, "python project")
	}

	if strings.TrimSpace(raw) == "" {
		return version.Zero, fieldMissing(op, name)
	}
	return parseVersion(op, raw, name)
}

// WriteVersion patches the version line of the detected manifest.
func (p *Python) WriteVersion(_ context.Context, dir string, v version.SemanticVersion, _ project.CommandRunner) (string, error) {
	const op = "manifest.Python.WriteVersion"

	name := p.manifest(dir)
	path := filepath.Join(dir, name)

	var (
		ok  bool
		err error
	)
	switch name {
	case setupPyFile:
		// setup() keyword arguments are indented; only literal strings are rewritten.
		ok, err = patchAssignment(path, v.String(), func(_ int, a assignment) bool {
			return a.quote != 0 && keyMatches(a.key, MatchContains, []string{"version"})
		})
	case setupCfgFile:
		ok, err = PatchVersion(path, v.String(), MatchPrefix, "version")
	case pyprojectFile:
		var (
			table   string
			dynamic bool
		)
		if _, table, dynamic, err = readPyprojectVersion(op, path); err != nil {
			return "", err
		}
		if dynamic {
			return "", rperrors.UnsupportedWrap(project.ErrUnsupportedOperation, op,
				"pyproject.toml declares version as dynamic; update its build backend source instead")
		}
		if table == "" {
			return "", fieldMissing(op, pyprojectFile)
		}
		ok, err = patchTableVersion(path, table, v.String())
	default:
		return "", fieldMissing(op, "python project")
	}

	if err != nil {
		return "", patchFailure(op, path, err)
	}
	if !ok {
		return "", fieldMissing(op, name)
	}
	return updated(path, v), nil
}

type pyproject struct {
	Project struct {
		Version string   `toml:"version"`
		Dynamic []string `toml:"dynamic"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// readPyprojectVersion returns the static version and the table declaring it.
// dynamic is set when project.dynamic lists "version" and no static version exists.
func readPyprojectVersion(op, path string) (value, table string, dynamic bool, err error) {
	data, err := fileutil.ReadFileLimited(path, maxManifestSize)
	if err != nil {
		return "", "", false, readFailure(op, path, err)
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", "", false, rperrors.Wrap(err, rperrors.KindValidation, op, "failed to parse "+pyprojectFile)
	}

	switch {
	case doc.Project.Version != "":
		return doc.Project.Version, pyprojectTable, false, nil
	case doc.Tool.Poetry.Version != "":
		return doc.Tool.Poetry.Version, poetryTable, false, nil
	}
	return "", "", slices.Contains(doc.Project.Dynamic, "version"), nil
}

// patchTableVersion rewrites the version key inside the given TOML table.
func patchTableVersion(path, table, newVersion string) (bool, error) {
	current := ""
	return fileutil.RewriteLines(path, func(_ int, line string) (string, bool) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			current = tableName(trimmed)
			return "", false
		}
		if current != table {
			return "", false
		}
		a, ok := parseAssignment(line)
		if !ok || !keyMatches(strings.TrimLeft(a.key, " \t"), MatchPrefix, []string{"version"}) {
			return "", false
		}
		return a.replace(line, newVersion), true
	})
}

// tableName extracts "tool.poetry" from a header such as "[ tool . poetry ] # comment".
// Array-of-tables headers return "".
func tableName(header string) string {
	if strings.HasPrefix(header, "[[") {
		return ""
	}
	end := strings.IndexByte(header, ']')
	if end < 0 {
		return ""
	}
	parts := strings.Split(header[1:end], ".")
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"'`)
	}
	return strings.Join(parts, ".")
}
