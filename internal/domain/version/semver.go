// Package version provides domain types for semantic versioning.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SemanticVersion is a value object representing a semantic version.
// All operations return new instances.
type SemanticVersion struct {
	major      uint64
	minor      uint64
	patch      uint64
	prerelease Prerelease
	metadata   BuildMetadata
}

// Prerelease represents the prerelease portion of a semantic version,
// a dot-separated list of identifiers.
type Prerelease string

// BuildMetadata represents the build metadata portion of a semantic version.
type BuildMetadata string

// Common prerelease identifiers.
const (
	PrereleaseAlpha Prerelease = "alpha"
	PrereleaseBeta  Prerelease = "beta"
	PrereleaseRC    Prerelease = "rc"
)

var (
	// semverRegex validates semantic version strings. A leading "v" is accepted
	// so git tags can be parsed directly.
	semverRegex = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

	identifierRegex = regexp.MustCompile(`^[0-9A-Za-z-]+$`)

	// Zero is the zero version (0.0.0).
	Zero = SemanticVersion{major: 0, minor: 0, patch: 0}

	// Initial is the initial version (0.1.0).
	Initial = SemanticVersion{major: 0, minor: 1, patch: 0}
)

// NewSemanticVersion creates a new SemanticVersion value object.
func NewSemanticVersion(major, minor, patch uint64) SemanticVersion {
	return SemanticVersion{
		major: major,
		minor: minor,
		patch: patch,
	}
}

// Parse parses a semantic version string into a SemanticVersion value object.
// The returned error wraps ErrInvalidVersion.
func Parse(s string) (SemanticVersion, error) {
	matches := semverRegex.FindStringSubmatch(s)
	if matches == nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	major, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: major component of %q: %v", ErrInvalidVersion, s, err)
	}

	minor, err := strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: minor component of %q: %v", ErrInvalidVersion, s, err)
	}

	patch, err := strconv.ParseUint(matches[3], 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: patch component of %q: %v", ErrInvalidVersion, s, err)
	}

	pre := Prerelease(matches[4])
	if err := pre.Validate(); err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}

	return SemanticVersion{
		major:      major,
		minor:      minor,
		patch:      patch,
		prerelease: pre,
		metadata:   BuildMetadata(matches[5]),
	}, nil
}

// MustParse parses a semantic version string and panics if invalid.
// Use only for known-good version strings.
func MustParse(s string) SemanticVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major version component.
func (v SemanticVersion) Major() uint64 {
	return v.major
}

// Minor returns the minor version component.
func (v SemanticVersion) Minor() uint64 {
	return v.minor
}

// Patch returns the patch version component.
func (v SemanticVersion) Patch() uint64 {
	return v.patch
}

// Prerelease returns the prerelease identifier.
func (v SemanticVersion) Prerelease() Prerelease {
	return v.prerelease
}

// Metadata returns the build metadata.
func (v SemanticVersion) Metadata() BuildMetadata {
	return v.metadata
}

// IsPrerelease returns true if this is a prerelease version.
func (v SemanticVersion) IsPrerelease() bool {
	return v.prerelease != ""
}

// IsZero returns true if this is the zero version.
func (v SemanticVersion) IsZero() bool {
	return v.major == 0 && v.minor == 0 && v.patch == 0 && v.prerelease == "" && v.metadata == ""
}

// String returns the canonical representation MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD].
func (v SemanticVersion) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)

	if v.prerelease != "" {
		sb.WriteString("-")
		sb.WriteString(string(v.prerelease))
	}

	if v.metadata != "" {
		sb.WriteString("+")
		sb.WriteString(string(v.metadata))
	}

	return sb.String()
}

// TagString returns the version with 'v' prefix for git tags.
func (v SemanticVersion) TagString() string {
	return "v" + v.String()
}

// WithPrerelease returns a new version with the specified prerelease identifier.
func (v SemanticVersion) WithPrerelease(pre Prerelease) SemanticVersion {
	v.prerelease = pre
	return v
}

// WithMetadata returns a new version with the specified build metadata.
func (v SemanticVersion) WithMetadata(meta BuildMetadata) SemanticVersion {
	v.metadata = meta
	return v
}

// WithoutPrerelease returns a new version without the prerelease identifier.
func (v SemanticVersion) WithoutPrerelease() SemanticVersion {
	v.prerelease = ""
	return v
}

// WithoutMetadata returns a new version without the build metadata.
func (v SemanticVersion) WithoutMetadata() SemanticVersion {
	v.metadata = ""
	return v
}

// NormalVersion returns MAJOR.MINOR.PATCH with prerelease and metadata dropped.
func (v SemanticVersion) NormalVersion() SemanticVersion {
	return NewSemanticVersion(v.major, v.minor, v.patch)
}

// IncrementPrerelease increments the last numeric prerelease identifier,
// or appends ".1" when the last identifier is alphanumeric:
//
//	1.0.0-alpha   -> 1.0.0-alpha.1
//	1.0.0-alpha.1 -> 1.0.0-alpha.2
//
// Build metadata is dropped. Returns ErrNoPrerelease for a normal version.
func (v SemanticVersion) IncrementPrerelease() (SemanticVersion, error) {
	if v.prerelease == "" {
		return v, fmt.Errorf("%w: %s", ErrNoPrerelease, v)
	}

	ids := v.prerelease.Identifiers()
	last := ids[len(ids)-1]
	if isNumeric(last) {
		n, err := strconv.ParseUint(last, 10, 64)
		if err != nil {
			return v, fmt.Errorf("%w: prerelease identifier %q: %v", ErrInvalidVersion, last, err)
		}
		ids[len(ids)-1] = strconv.FormatUint(n+1, 10)
	} else {
		ids = append(ids, "1")
	}

	return SemanticVersion{
		major:      v.major,
		minor:      v.minor,
		patch:      v.patch,
		prerelease: Prerelease(strings.Join(ids, ".")),
	}, nil
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// Build metadata is ignored.
func (v SemanticVersion) Compare(other SemanticVersion) int {
	if c := compareUint(v.major, other.major); c != 0 {
		return c
	}
	if c := compareUint(v.minor, other.minor); c != 0 {
		return c
	}
	if c := compareUint(v.patch, other.patch); c != 0 {
		return c
	}

	// A version without prerelease has higher precedence than one with prerelease
	if v.prerelease == "" && other.prerelease != "" {
		return 1
	}
	if v.prerelease != "" && other.prerelease == "" {
		return -1
	}
	return v.prerelease.Compare(other.prerelease)
}

// LessThan returns true if v < other.
func (v SemanticVersion) LessThan(other SemanticVersion) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v SemanticVersion) GreaterThan(other SemanticVersion) bool {
	return v.Compare(other) > 0
}

// Equal returns true if two versions are equal (ignoring metadata).
func (v SemanticVersion) Equal(other SemanticVersion) bool {
	return v.Compare(other) == 0
}

// Equals returns true if two versions are exactly equal (including metadata).
func (v SemanticVersion) Equals(other SemanticVersion) bool {
	return v == other
}

// Identifiers splits the prerelease into its dot-separated identifiers.
func (p Prerelease) Identifiers() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// Validate reports whether p is a well-formed identifier list. Numeric
// identifiers must not carry leading zeros.
func (p Prerelease) Validate() error {
	if p == "" {
		return nil
	}
	for _, id := range p.Identifiers() {
		if !identifierRegex.MatchString(id) {
			return fmt.Errorf("%w: prerelease identifier %q", ErrInvalidIdentifier, id)
		}
		if isNumeric(id) && len(id) > 1 && id[0] == '0' {
			return fmt.Errorf("%w: numeric prerelease identifier %q has a leading zero", ErrInvalidIdentifier, id)
		}
	}
	return nil
}

// Compare orders two non-empty prereleases by semver precedence.
func (p Prerelease) Compare(other Prerelease) int {
	a, b := p.Identifiers(), other.Identifiers()
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Validate reports whether m is a well-formed identifier list.
func (m BuildMetadata) Validate() error {
	if m == "" {
		return nil
	}
	for _, id := range strings.Split(string(m), ".") {
		if !identifierRegex.MatchString(id) {
			return fmt.Errorf("%w: build metadata identifier %q", ErrInvalidIdentifier, id)
		}
	}
	return nil
}

func compareIdentifier(a, b string) int {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		// Compare by length first so arbitrarily long numbers order correctly.
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case an:
		return -1
	case bn:
		return 1
	}
	return strings.Compare(a, b)
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
