// Package versioning resolves the current and next version of a project.
package versioning

import (
	"strings"

	"github.com/relicta-tech/nextversion/internal/domain/version"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// Directives are the user-supplied adjustments applied to a resolution.
type Directives struct {
	// StartTag replaces the discovered latest tag when set.
	StartTag string `json:"start_tag,omitempty"`
	// Prerelease is set on the next version, overriding any preserved one.
	Prerelease version.Prerelease `json:"prerelease,omitempty"`
	// PreservePrerelease carries the current prerelease over to the next version.
	PreservePrerelease bool `json:"preserve_prerelease,omitempty"`
	// IncrementPrerelease increments the current prerelease instead of bumping.
	IncrementPrerelease bool `json:"increment_prerelease,omitempty"`
	// BuildMetadata is set on the next version.
	BuildMetadata version.BuildMetadata `json:"build_metadata,omitempty"`
	// WriteVersion writes the next version back to the detected manifest.
	WriteVersion bool `json:"write_version,omitempty"`
	// NonAnnotatedTag considers lightweight tags during tag discovery.
	NonAnnotatedTag bool `json:"non_annotated_tag,omitempty"`
}

// Normalize trims blank values so whitespace-only labels count as unset.
func (d Directives) Normalize() Directives {
	d.StartTag = strings.TrimSpace(d.StartTag)
	d.Prerelease = version.Prerelease(strings.TrimSpace(string(d.Prerelease)))
	d.BuildMetadata = version.BuildMetadata(strings.TrimSpace(string(d.BuildMetadata)))
	return d
}

// Validate checks the identifiers and rejects contradictory flags.
func (d Directives) Validate() error {
	const op = "versioning.Directives.Validate"

	d = d.Normalize()
	if err := d.Prerelease.Validate(); err != nil {
		return rperrors.ValidationWrap(err, op, "invalid prerelease directive")
	}
	if err := d.BuildMetadata.Validate(); err != nil {
		return rperrors.ValidationWrap(err, op, "invalid build metadata directive")
	}
	if d.IncrementPrerelease && d.Prerelease != "" {
		return rperrors.Validation(op, "increment-prerelease cannot be combined with an explicit prerelease")
	}
	if d.StartTag != "" {
		if _, err := version.Parse(d.StartTag); err != nil {
			return rperrors.ValidationWrap(err, op, "start tag is not a semantic version")
		}
	}
	return nil
}
