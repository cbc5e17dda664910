package project

import "errors"

// Domain errors for project descriptors.
var (
	// ErrVersionFieldMissing indicates a manifest has no recognizable version field.
	ErrVersionFieldMissing = errors.New("version field missing")

	// ErrUnsupportedOperation indicates a descriptor cannot perform the operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrDuplicateType indicates two descriptors registered for the same type.
	ErrDuplicateType = errors.New("duplicate project type")
)
