package manifest

import (
	"github.com/relicta-tech/nextversion/internal/domain/project"
)

// Descriptors returns one descriptor per supported ecosystem in detection
// order: maven, gradle, npm, make, python, helm, go, php.
func Descriptors(tools Tools) []project.Descriptor {
	return []project.Descriptor{
		NewMaven(tools.Maven),
		NewGradle(tools.Gradle),
		NewNPM(tools.NPM),
		NewMake(),
		NewPython(tools.Python),
		NewHelm(),
		NewGoModule(tools.Go),
		NewComposer(tools.Git),
	}
}

// NewRegistry builds the detection registry for tools.
func NewRegistry(tools Tools) (*project.Registry, error) {
	return project.NewRegistry(Descriptors(tools)...)
}
