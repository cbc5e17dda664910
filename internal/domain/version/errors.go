package version

import "errors"

// Domain errors for version operations.
var (
	// ErrInvalidVersion indicates a malformed version string.
	ErrInvalidVersion = errors.New("invalid semantic version")

	// ErrInvalidIdentifier indicates a malformed prerelease or build identifier.
	ErrInvalidIdentifier = errors.New("invalid semantic version identifier")

	// ErrInvalidBumpType indicates an invalid bump type.
	ErrInvalidBumpType = errors.New("invalid bump type")

	// ErrNoPrerelease indicates a prerelease increment on a normal version.
	ErrNoPrerelease = errors.New("version has no prerelease to increment")
)
