package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nextversion/internal/application/versioning"
	"github.com/relicta-tech/nextversion/internal/config"
	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	"github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/infrastructure/git"
	"github.com/relicta-tech/nextversion/internal/infrastructure/process"
)

type recordingRunner struct {
	calls []string
}

func (r *recordingRunner) Run(_ context.Context, _, name string, _ ...string) (string, error) {
	r.calls = append(r.calls, name)
	return "", nil
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestNew_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.Timeout = 5 * time.Second

	c, err := New(cfg, WithGOOS("linux"))
	require.NoError(t, err)

	runner, ok := c.Runner().(*process.ExecRunner)
	require.True(t, ok, "default runner should be the exec runner")
	assert.Equal(t, 5*time.Second, runner.Timeout())

	assert.Same(t, cfg, c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.CurrentVersion())
	assert.NotNil(t, c.ResolveVersion())
	assert.Equal(t, "mvn", c.Tools().Maven)
	assert.Equal(t, []project.Type{
		project.TypeMaven, project.TypeGradle, project.TypeNPM, project.TypeMake,
		project.TypePython, project.TypeHelm, project.TypeGo, project.TypePHP,
	}, c.Registry().Types())
}

func TestNew_ToolOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.Maven = "/opt/maven/bin/mvn"
	cfg.Tools.Python = "python3.12"

	c, err := New(cfg, WithGOOS("windows"), WithRunner(&recordingRunner{}))
	require.NoError(t, err)

	tools := c.Tools()
	assert.Equal(t, "/opt/maven/bin/mvn", tools.Maven)
	assert.Equal(t, "python3.12", tools.Python)
	assert.Equal(t, "gradle.bat", tools.Gradle)
	assert.Equal(t, "npm.cmd", tools.NPM)
}

func TestDirectives(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Versioning = config.VersioningConfig{
		StartTag:            "1.0.0",
		Prerelease:          "rc",
		PreservePrerelease:  true,
		BuildMetadata:       "build.7",
		WriteVersion:        true,
		NonAnnotatedTag:     true,
		IncrementPrerelease: false,
		TagPrefix:           "v",
	}

	c, err := New(cfg, WithRunner(&recordingRunner{}))
	require.NoError(t, err)

	assert.Equal(t, versioning.Directives{
		StartTag:           "1.0.0",
		Prerelease:         version.Prerelease("rc"),
		PreservePrerelease: true,
		BuildMetadata:      version.BuildMetadata("build.7"),
		WriteVersion:       true,
		NonAnnotatedTag:    true,
	}, c.Directives())
}

func TestResolveVersion_UsesInjectedRunner(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("VERSION = 1.4.0\n"), 0o644))

	runner := &recordingRunner{}
	c, err := New(config.DefaultConfig(), WithRunner(runner))
	require.NoError(t, err)

	out, err := c.ResolveVersion().Execute(context.Background(), versioning.ResolveVersionInput{
		Dir:     dir,
		Commits: []string{"feat: add target"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", out.Next.String())
	assert.Equal(t, project.TypeMake, out.Current.DescriptorType)
	assert.Empty(t, runner.calls, "make projects are read without tools")
}

func TestOpenRepository_NotARepository(t *testing.T) {
	c, err := New(config.DefaultConfig(), WithRunner(&recordingRunner{}))
	require.NoError(t, err)

	_, err = c.OpenRepository(t.TempDir())
	require.Error(t, err)
	assert.True(t, git.IsNotRepository(err))
}
