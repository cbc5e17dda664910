package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

type fakeCall struct {
	dir  string
	name string
	args []string
}

// fakeRunner answers commands from a table keyed by "name arg1 arg2 ...".
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []fakeCall
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeRunner) on(cmd, out string) *fakeRunner {
	f.outputs[cmd] = out
	return f
}

func (f *fakeRunner) fail(cmd string, err error) *fakeRunner {
	f.errs[cmd] = err
	return f
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (string, error) {
	f.calls = append(f.calls, fakeCall{dir: dir, name: name, args: args})
	key := strings.Join(append([]string{name}, args...), " ")
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	if out, ok := f.outputs[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unexpected command %q", key)
}

func (f *fakeRunner) lastCall() string {
	if len(f.calls) == 0 {
		return ""
	}
	c := f.calls[len(f.calls)-1]
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

func toolError(msg string) error {
	return rperrors.ExternalToolWrap(errors.New("exit status 1"), "process.ExecRunner.Run", msg).
		WithDetail(rperrors.DetailExitCode, 1)
}

func assertFieldMissing(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, rperrors.KindFieldMissing, rperrors.GetKind(err), "error: %v", err)
}

func TestDefaultTools(t *testing.T) {
	linux := DefaultTools("linux")
	assert.Equal(t, "mvn", linux.Maven)
	assert.Equal(t, "python3", linux.Python)
	assert.Equal(t, "git", linux.Git)

	windows := DefaultTools("windows")
	assert.Equal(t, "mvn.cmd", windows.Maven)
	assert.Equal(t, "gradle.bat", windows.Gradle)
	assert.Equal(t, "npm.cmd", windows.NPM)
	assert.Equal(t, "python", windows.Python)

	merged := linux.Merge(Tools{Maven: "./mvnw", Gradle: "  "})
	assert.Equal(t, "./mvnw", merged.Maven)
	assert.Equal(t, "gradle", merged.Gradle)
}

func TestRegistryOrder(t *testing.T) {
	reg, err := NewRegistry(DefaultTools("linux"))
	require.NoError(t, err)
	assert.Equal(t, []project.Type{
		project.TypeMaven, project.TypeGradle, project.TypeNPM, project.TypeMake,
		project.TypePython, project.TypeHelm, project.TypeGo, project.TypePHP,
	}, reg.Types())

	dir := t.TempDir()
	writeFile(t, dir, "Makefile", "VERSION = 1.0.0\n")
	writeFile(t, dir, "package.json", `{"version": "2.0.0"}`)

	d, ok := reg.Detect(dir)
	require.True(t, ok)
	assert.Equal(t, project.TypeNPM, d.Type())
}

func TestMaven(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := NewMaven("mvn")

	assert.False(t, m.Detect(dir))
	writeFile(t, dir, "pom.xml", "<project/>")
	assert.True(t, m.Detect(dir))
	assert.Equal(t, []string{filepath.Join(dir, "pom.xml")}, m.Files(dir))

	runner := newFakeRunner().
		on("mvn help:evaluate -Dexpression=project.version -q -DforceStdout", "[INFO] noise\n1.4.0\n").
		on("mvn versions:set -DnewVersion=1.5.0 -DgenerateBackupPoms=false", "")

	v, err := m.ReadVersion(ctx, dir, runner)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", v.String())
	assert.Equal(t, dir, runner.calls[0].dir)

	msg, err := m.WriteVersion(ctx, dir, version.MustParse("1.5.0"), runner)
	require.NoError(t, err)
	assert.Equal(t, "Updated pom.xml to version 1.5.0", msg)
}

func TestMaven_ToolFailureKeepsKind(t *testing.T) {
	cmd := "mvn help:evaluate -Dexpression=project.version -q -DforceStdout"
	runner := newFakeRunner().fail(cmd, toolError("mvn exited with code 1"))

	_, err := NewMaven("mvn").ReadVersion(context.Background(), t.TempDir(), runner)
	require.Error(t, err)
	assert.Equal(t, rperrors.KindExternalTool, rperrors.GetKind(err))
}

func TestMaven_SnapshotIsMalformed(t *testing.T) {
	cmd := "mvn help:evaluate -Dexpression=project.version -q -DforceStdout"
	runner := newFakeRunner().on(cmd, "1.0-SNAPSHOT")

	_, err := NewMaven("mvn").ReadVersion(context.Background(), t.TempDir(), runner)
	require.Error(t, err)
	assert.Equal(t, rperrors.KindVersion, rperrors.GetKind(err))
}

func TestGradle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	g := NewGradle("gradle")

	writeFile(t, dir, "build.gradle.kts", "plugins { java }\n")
	assert.True(t, g.Detect(dir))
	assert.Equal(t, []string{
		filepath.Join(dir, "build.gradle.kts"),
		filepath.Join(dir, "gradle.properties"),
	}, g.Files(dir))

	runner := newFakeRunner().on("gradle -q properties", "name: app\nversion: 0.3.1\n")
	v, err := g.ReadVersion(ctx, dir, runner)
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", v.String())

	props := writeFile(t, dir, "gradle.properties", "org.gradle.jvmargs=-Xmx2g\nkotlinVersion=1.9.0\nversion=0.3.1\n")
	msg, err := g.WriteVersion(ctx, dir, version.MustParse("0.4.0"), runner)
	require.NoError(t, err)
	assert.Equal(t, "Updated gradle.properties to version 0.4.0", msg)
	assert.Equal(t, "org.gradle.jvmargs=-Xmx2g\nkotlinVersion=1.9.0\nversion=0.4.0\n", readFile(t, props))
}

func TestGradle_Unspecified(t *testing.T) {
	runner := newFakeRunner().on("gradle -q properties", "version: unspecified\n")
	_, err := NewGradle("gradle").ReadVersion(context.Background(), t.TempDir(), runner)
	assertFieldMissing(t, err)
}

func TestGradle_WriteWithoutProperties(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.gradle", "")

	_, err := NewGradle("gradle").WriteVersion(context.Background(), dir, version.MustParse("1.0.0"), newFakeRunner())
	assertFieldMissing(t, err)
}

func TestNPM(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	n := NewNPM("npm")

	writeFile(t, dir, "package.json", `{"name": "app", "version": "2.1.0"}`)
	assert.True(t, n.Detect(dir))

	v, err := n.ReadVersion(ctx, dir, newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", v.String())

	runner := newFakeRunner().on("npm version 2.2.0 --no-git-tag-version --allow-same-version", "v2.2.0")
	msg, err := n.WriteVersion(ctx, dir, version.MustParse("2.2.0"), runner)
	require.NoError(t, err)
	assert.Equal(t, "Updated package.json to version 2.2.0", msg)
	assert.Equal(t, "npm version 2.2.0 --no-git-tag-version --allow-same-version", runner.lastCall())
}

func TestNPM_ReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    rperrors.Kind
	}{
		{"no version", `{"name": "app"}`, rperrors.KindFieldMissing},
		{"invalid json", `{"version": `, rperrors.KindValidation},
		{"malformed version", `{"version": "1.0"}`, rperrors.KindVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", tt.content)

			_, err := NewNPM("npm").ReadVersion(context.Background(), dir, newFakeRunner())
			require.Error(t, err)
			assert.Equal(t, tt.kind, rperrors.GetKind(err))
		})
	}
}

func TestMake(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := NewMake()

	content := "BINARY = app\nVERSION ?= 0.1.0\n\nrelease:\n\t@echo $(VERSION)\n"
	path := writeFile(t, dir, "Makefile", content)

	v, err := m.ReadVersion(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v.String())

	_, err = m.WriteVersion(ctx, dir, version.MustParse("0.1.1"), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(content, "0.1.0", "0.1.1", 1), readFile(t, path))

	// Writing the same version twice yields the same file.
	_, err = m.WriteVersion(ctx, dir, version.MustParse("0.1.1"), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(content, "0.1.0", "0.1.1", 1), readFile(t, path))
}

func TestMake_NoVersionLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Makefile", "all:\n\tgo build\n")

	_, err := NewMake().ReadVersion(context.Background(), dir, nil)
	assertFieldMissing(t, err)

	_, err = NewMake().WriteVersion(context.Background(), dir, version.MustParse("1.0.0"), nil)
	assertFieldMissing(t, err)
	assert.Equal(t, "all:\n\tgo build\n", readFile(t, path))
}

func TestPython_SetupPy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewPython("python3")

	content := "from setuptools import setup\n\nsetup(\n    name=\"pkg\",\n    version=\"0.9.0\",\n    python_requires=\">=3.8\",\n)\n"
	path := writeFile(t, dir, "setup.py", content)
	writeFile(t, dir, "pyproject.toml", "[build-system]\nrequires = [\"setuptools\"]\n")

	assert.Equal(t, []string{path}, p.Files(dir))

	runner := newFakeRunner().on("python3 setup.py --version", "0.9.0\n")
	v, err := p.ReadVersion(ctx, dir, runner)
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", v.String())

	_, err = p.WriteVersion(ctx, dir, version.MustParse("1.0.0"), runner)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(content, "0.9.0", "1.0.0", 1), readFile(t, path))
}

func TestPython_SetupCfg(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewPython("python3")

	path := writeFile(t, dir, "setup.cfg", "[metadata]\nname = pkg\nversion = 2.0.0\n")

	v, err := p.ReadVersion(ctx, dir, newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v.String())

	_, err = p.WriteVersion(ctx, dir, version.MustParse("2.0.1"), newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "[metadata]\nname = pkg\nversion = 2.0.1\n", readFile(t, path))
}

func TestPython_Pyproject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		read    string
		want    string
	}{
		{
			name:    "pep 621",
			content: "[tool.black]\ntarget-version = \"py38\"\n\n[project]\nname = \"pkg\"\nversion = \"0.5.0\"\n",
			read:    "0.5.0",
			want:    "[tool.black]\ntarget-version = \"py38\"\n\n[project]\nname = \"pkg\"\nversion = \"0.6.0\"\n",
		},
		{
			name:    "poetry",
			content: "[tool.poetry]\nname = \"pkg\"\nversion = \"0.5.0\" # managed\n\n[tool.poetry.dependencies]\npython = \"^3.10\"\n",
			read:    "0.5.0",
			want:    "[tool.poetry]\nname = \"pkg\"\nversion = \"0.6.0\" # managed\n\n[tool.poetry.dependencies]\npython = \"^3.10\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			path := writeFile(t, dir, "pyproject.toml", tt.content)
			p := NewPython("python3")

			v, err := p.ReadVersion(ctx, dir, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.read, v.String())

			_, err = p.WriteVersion(ctx, dir, version.MustParse("0.6.0"), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, readFile(t, path))
		})
	}
}

func TestPython_DynamicVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[project]\nname = \"pkg\"\ndynamic = [\"version\"]\n")

	_, err := NewPython("python3").ReadVersion(context.Background(), dir, nil)
	assertFieldMissing(t, err)

	_, err = NewPython("python3").WriteVersion(context.Background(), dir, version.MustParse("1.0.0"), nil)
	require.Error(t, err)
	assert.Equal(t, rperrors.KindUnsupported, rperrors.GetKind(err))
	assert.ErrorIs(t, err, project.ErrUnsupportedOperation)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "tool.poetry", tableName("[ tool . poetry ] # comment"))
	assert.Equal(t, "project", tableName(`["project"]`))
	assert.Equal(t, "", tableName("[[tool.poetry.source]]"))
	assert.Equal(t, "", tableName("[broken"))
}

func TestHelm(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	h := NewHelm()

	content := "apiVersion: v2\nname: app\n# chart version\nversion: 0.2.0\nappVersion: \"1.16.0\"\ndependencies:\n  - name: redis\n    version: 17.0.0\n"
	path := writeFile(t, dir, "Chart.yaml", content)
	assert.True(t, h.Detect(dir))

	v, err := h.ReadVersion(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", v.String())

	msg, err := h.WriteVersion(ctx, dir, version.MustParse("0.3.0-alpha.1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Updated Chart.yaml to version 0.3.0-alpha.1", msg)
	assert.Equal(t, strings.Replace(content, "version: 0.2.0", "version: 0.3.0-alpha.1", 1), readFile(t, path))
}

func TestHelm_OnlyNestedVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Chart.yaml", "name: app\ndependencies:\n  - name: redis\n    version: 17.0.0\n")

	_, err := NewHelm().ReadVersion(context.Background(), dir, nil)
	assertFieldMissing(t, err)
}

func TestGoModule(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	g := NewGoModule("go")

	path := writeFile(t, dir, "go.mod", "module example.com/lib\n\ngo 1.22\n")
	assert.True(t, g.Detect(dir))

	runner := newFakeRunner().on("go list -m -versions example.com/lib",
		"example.com/lib v0.1.0 v0.2.0-beta.1 v0.2.0-rc.1 v0.2.0 v0.3.0-alpha.2")

	v, err := g.ReadVersion(ctx, dir, runner)
	require.NoError(t, err)
	assert.Equal(t, "0.3.0-alpha.2", v.String())

	msg, err := g.WriteVersion(ctx, dir, version.MustParse("0.3.0"), runner)
	require.NoError(t, err)
	assert.Contains(t, msg, "v0.3.0")
	assert.Equal(t, "module example.com/lib\n\ngo 1.22\n", readFile(t, path))
}

func TestGoModule_NoReleases(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/lib\n")

	runner := newFakeRunner().on("go list -m -versions example.com/lib", "example.com/lib")
	_, err := NewGoModule("go").ReadVersion(context.Background(), dir, runner)
	assertFieldMissing(t, err)
}

func TestGoModule_InvalidGoMod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "go 1.22\n")

	_, err := NewGoModule("go").ReadVersion(context.Background(), dir, newFakeRunner())
	require.Error(t, err)
	assert.Equal(t, rperrors.KindValidation, rperrors.GetKind(err))
}

func TestComposer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewComposer("git")

	content := "{\n    \"name\": \"vendor/pkg\",\n    \"version\": \"1.1.0\",\n    \"require\": {\"php\": \">=8.1\"}\n}\n"
	path := writeFile(t, dir, "composer.json", content)

	v, err := c.ReadVersion(ctx, dir, newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.String())

	_, err = c.WriteVersion(ctx, dir, version.MustParse("1.2.0"), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(content, "1.1.0", "1.2.0", 1), readFile(t, path))
}

func TestComposer_TagFallback(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewComposer("git")

	content := "{\"name\": \"vendor/pkg\"}\n"
	path := writeFile(t, dir, "composer.json", content)

	runner := newFakeRunner().on("git describe --abbrev=0 --tags", "v3.0.1\n")
	v, err := c.ReadVersion(ctx, dir, runner)
	require.NoError(t, err)
	assert.Equal(t, "3.0.1", v.String())

	msg, err := c.WriteVersion(ctx, dir, version.MustParse("3.1.0"), nil)
	require.NoError(t, err)
	assert.Contains(t, msg, "v3.1.0")
	assert.Equal(t, content, readFile(t, path))
}

func TestComposer_NoTag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "composer.json", "{}")

	runner := newFakeRunner().fail("git describe --abbrev=0 --tags", toolError("fatal: No names found"))
	_, err := NewComposer("git").ReadVersion(context.Background(), dir, runner)
	assertFieldMissing(t, err)
}

func TestComposer_GitUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "composer.json", "{}")

	notFound := rperrors.ExternalToolWrap(errors.New("executable file not found"), "process.ExecRunner.Run",
		"git describe --abbrev=0 --tags: command not found in PATH").WithDetail(rperrors.DetailExitCode, -1)
	runner := newFakeRunner().fail("git describe --abbrev=0 --tags", notFound)

	_, err := NewComposer("git").ReadVersion(context.Background(), dir, runner)
	require.Error(t, err)
	assert.Equal(t, rperrors.KindExternalTool, rperrors.GetKind(err))
	code, ok := rperrors.Detail(err, rperrors.DetailExitCode)
	require.True(t, ok)
	assert.Equal(t, -1, code)
}

func TestComposer_WriteNestedVersionFirst(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewComposer("git")

	content := `{
    "name": "vendor/pkg",
    "repositories": [
        {"type": "package", "package": {"name": "vendor/dep", "version": "9.9.9"}}
    ],
    "version": "1.0.0"
}
`
	path := writeFile(t, dir, "composer.json", content)

	_, err := c.WriteVersion(ctx, dir, version.MustParse("1.1.0"), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(content, `"version": "1.0.0"`, `"version": "1.1.0"`, 1), readFile(t, path))

	v, err := c.ReadVersion(ctx, dir, newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.String())
}

func TestComposer_WriteSingleLine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewComposer("git")

	path := writeFile(t, dir, "composer.json", "{\"extra\":{\"version\":\"0.0.1\"},\"version\":\"2.0.0\"}\r\n")

	_, err := c.WriteVersion(ctx, dir, version.MustParse("2.1.0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "{\"extra\":{\"version\":\"0.0.1\"},\"version\":\"2.1.0\"}\r\n", readFile(t, path))
}

func TestFindJSONVersion(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		found   bool
		value   string
		line    int
		column  int
		wantErr bool
	}{
		{name: "absent", data: `{"name": "x"}`},
		{name: "null", data: `{"version": null}`},
		{name: "nested only", data: "{\n  \"a\": {\"version\": \"1.0.0\"}\n}", found: false},
		{name: "crlf", data: "{\r\n  \"version\": \"1.2.3\"\r\n}", found: true, value: "1.2.3", line: 2, column: 13},
		{name: "last duplicate wins", data: `{"version": "1.0.0", "version": "2.0.0"}`, found: true, value: "2.0.0", line: 1, column: 32},
		{name: "not a string", data: `{"version": 1}`, wantErr: true},
		{name: "not an object", data: `["version"]`, wantErr: true},
		{name: "trailing data", data: `{"version": "1.0.0"} {}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := findJSONVersion([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found, loc.found)
			if !tt.found {
				return
			}
			assert.Equal(t, tt.value, loc.value)
			assert.Equal(t, tt.line, loc.line)
			assert.Equal(t, tt.column, loc.column)
		})
	}
}

func TestDescriptors_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []project.Descriptor{NewMake(), NewHelm(), NewNPM("npm"), NewComposer("git")} {
		t.Run(d.Type().String(), func(t *testing.T) {
			assert.False(t, d.Detect(dir))
			_, err := d.ReadVersion(context.Background(), dir, newFakeRunner())
			assertFieldMissing(t, err)
		})
	}
}
