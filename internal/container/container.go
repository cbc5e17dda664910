// Package container wires nextversion services from configuration.
package container

import (
	"log/slog"
	"runtime"

	"github.com/relicta-tech/nextversion/internal/application/manifest"
	"github.com/relicta-tech/nextversion/internal/application/versioning"
	"github.com/relicta-tech/nextversion/internal/config"
	"github.com/relicta-tech/nextversion/internal/domain/project"
	"github.com/relicta-tech/nextversion/internal/domain/version"
	"github.com/relicta-tech/nextversion/internal/errors"
	"github.com/relicta-tech/nextversion/internal/infrastructure/git"
	"github.com/relicta-tech/nextversion/internal/infrastructure/process"
)

// Container holds the services built for one CLI invocation.
type Container struct {
	config *config.Config
	logger *slog.Logger
	goos   string

	// Infrastructure layer
	runner project.CommandRunner
	tools  manifest.Tools

	// Domain layer
	registry *project.Registry

	// Application layer
	currentVersion   *versioning.CurrentVersionResolver
	resolveVersionUC *versioning.ResolveVersionUseCase
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunner replaces the os/exec command runner.
func WithRunner(runner project.CommandRunner) Option {
	return func(c *Container) {
		c.runner = runner
	}
}

// WithGOOS selects the platform used for default tool names.
func WithGOOS(goos string) Option {
	return func(c *Container) {
		c.goos = goos
	}
}

// New creates a container with the given configuration and initializes every layer.
func New(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.Config("container.New", "configuration is required")
	}

	c := &Container{
		config: cfg,
		logger: slog.Default(),
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}
	c.initApplicationLayer()
	return c, nil
}

// initInfrastructure builds the command runner and the descriptor registry.
func (c *Container) initInfrastructure() error {
	if c.runner == nil {
		c.runner = process.NewExecRunner(
			process.WithTimeout(c.config.Tools.Timeout),
			process.WithLogger(c.logger.With("component", "process")),
		)
	}

	c.tools = manifest.DefaultTools(c.goos).Merge(manifest.Tools{
		Maven:  c.config.Tools.Maven,
		Gradle: c.config.Tools.Gradle,
		NPM:    c.config.Tools.NPM,
		Go:     c.config.Tools.Go,
		Python: c.config.Tools.Python,
		Git:    c.config.Tools.Git,
	})

	registry, err := manifest.NewRegistry(c.tools)
	if err != nil {
		return errors.InternalWrap(err, "container.initInfrastructure", "failed to build project registry")
	}
	c.registry = registry
	return nil
}

func (c *Container) initApplicationLayer() {
	c.currentVersion = versioning.NewCurrentVersionResolver(c.registry, c.runner, c.logger)
	c.resolveVersionUC = versioning.NewResolveVersionUseCase(c.currentVersion, c.runner, c.logger)
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Tools returns the resolved build tool names.
func (c *Container) Tools() manifest.Tools {
	return c.tools
}

// Runner returns the command runner.
func (c *Container) Runner() project.CommandRunner {
	return c.runner
}

// Registry returns the project descriptor registry.
func (c *Container) Registry() *project.Registry {
	return c.registry
}

// CurrentVersion returns the current version resolver.
func (c *Container) CurrentVersion() *versioning.CurrentVersionResolver {
	return c.currentVersion
}

// ResolveVersion returns the resolve version use case.
func (c *Container) ResolveVersion() *versioning.ResolveVersionUseCase {
	return c.resolveVersionUC
}

// Directives converts the versioning configuration into resolution directives.
func (c *Container) Directives() versioning.Directives {
	v := c.config.Versioning
	return versioning.Directives{
		StartTag:            v.StartTag,
		Prerelease:          version.Prerelease(v.Prerelease),
		PreservePrerelease:  v.PreservePrerelease,
		IncrementPrerelease: v.IncrementPrerelease,
		BuildMetadata:       version.BuildMetadata(v.BuildMetadata),
		WriteVersion:        v.WriteVersion,
		NonAnnotatedTag:     v.NonAnnotatedTag,
	}
}

// OpenRepository opens the git repository containing dir.
func (c *Container) OpenRepository(dir string) (*git.Repository, error) {
	return git.Open(dir, git.WithLogger(c.logger.With("component", "git")))
}
