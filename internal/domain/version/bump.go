package version

import (
	"fmt"
)

// BumpType represents the severity of a version bump.
// Severities are totally ordered: none < patch < minor < major.
type BumpType string

const (
	// BumpNone leaves the version unchanged.
	BumpNone BumpType = "none"
	// BumpPatch indicates a patch version bump (bug fixes).
	BumpPatch BumpType = "patch"
	// BumpMinor indicates a minor version bump (new features).
	BumpMinor BumpType = "minor"
	// BumpMajor indicates a major version bump (breaking changes).
	BumpMajor BumpType = "major"
)

// IsValid returns true if the bump type is valid.
func (b BumpType) IsValid() bool {
	switch b {
	case BumpNone, BumpPatch, BumpMinor, BumpMajor:
		return true
	default:
		return false
	}
}

// String returns the string representation of the bump type.
func (b BumpType) String() string {
	return string(b)
}

func (b BumpType) rank() int {
	switch b {
	case BumpPatch:
		return 1
	case BumpMinor:
		return 2
	case BumpMajor:
		return 3
	default:
		return 0
	}
}

// Compare orders two bump types by severity.
func (b BumpType) Compare(other BumpType) int {
	return compareUint(uint64(b.rank()), uint64(other.rank()))
}

// MaxBump returns the most severe of the given bump types, or BumpNone.
func MaxBump(types ...BumpType) BumpType {
	highest := BumpNone
	for _, t := range types {
		if t.Compare(highest) > 0 {
			highest = t
		}
	}
	return highest
}

// ParseBumpType parses a string into a BumpType.
func ParseBumpType(s string) (BumpType, error) {
	bt := BumpType(s)
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: %q (must be none, patch, minor, or major)", ErrInvalidBumpType, s)
	}
	return bt, nil
}

// Bump applies a bump of the given severity. Any increment clears the
// prerelease and build metadata; BumpNone returns v unchanged.
func Bump(v SemanticVersion, b BumpType) SemanticVersion {
	switch b {
	case BumpMajor:
		return NewSemanticVersion(v.major+1, 0, 0)
	case BumpMinor:
		return NewSemanticVersion(v.major, v.minor+1, 0)
	case BumpPatch:
		return NewSemanticVersion(v.major, v.minor, v.patch+1)
	default:
		return v
	}
}
