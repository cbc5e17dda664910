// Package errors provides structured error types for nextversion.
// It implements error classification, wrapping, and redaction of secrets
// echoed by external build tools.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfig indicates a configuration error.
	KindConfig
	// KindGit indicates a git operation error.
	KindGit
	// KindVersion indicates a malformed or unusable version.
	KindVersion
	// KindIO indicates a file I/O error.
	KindIO
	// KindValidation indicates a validation error.
	KindValidation
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindExternalTool indicates a build tool failed, timed out or was interrupted.
	KindExternalTool
	// KindFieldMissing indicates a manifest has no recognizable version field.
	KindFieldMissing
	// KindUnsupported indicates an operation a project type cannot perform.
	KindUnsupported
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindGit:
		return "git"
	case KindVersion:
		return "version"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExternalTool:
		return "external_tool"
	case KindFieldMissing:
		return "field_missing"
	case KindUnsupported:
		return "unsupported"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Detail keys attached to external tool errors.
const (
	DetailCommand  = "command"
	DetailExitCode = "exit_code"
	DetailStderr   = "stderr"
)

// Error is the standard error type for nextversion.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Recoverable indicates the user can fix the input and retry.
	Recoverable bool
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// A target without Op matches by Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// E is a convenience function to create errors with various arguments.
// Arguments can be of type Kind, string (operation, then message), error,
// map[string]any (details) or bool (recoverable).
func E(args ...any) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else if e.Message == "" {
				e.Message = a
			}
		case *Error:
			e.Err = a
			if e.Kind == KindUnknown {
				e.Kind = a.Kind
			}
		case error:
			e.Err = a
		case map[string]any:
			e.Details = a
		case bool:
			e.Recoverable = a
		}
	}
	return e
}

// GetKind returns the Kind of the outermost *Error in the chain,
// or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable returns true if the error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Detail returns a detail value from the first *Error in the chain carrying key.
func Detail(err error, key string) (any, bool) {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil, false
		}
		if v, ok := e.Details[key]; ok {
			return v, true
		}
		err = e.Err
	}
	return nil, false
}

// Common error constructors for frequently used error types.

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Op:      op,
		Message: message,
	}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// VersionWrap wraps an error as a versioning error.
func VersionWrap(err error, op, message string) *Error {
	return Wrap(err, KindVersion, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{
		Kind:        KindValidation,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// ValidationWrap wraps an error as a validation error.
func ValidationWrap(err error, op, message string) *Error {
	e := Wrap(err, KindValidation, op, message)
	e.Recoverable = true
	return e
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// ExternalToolWrap wraps a build tool failure.
func ExternalToolWrap(err error, op, message string) *Error {
	return Wrap(err, KindExternalTool, op, message)
}

// FieldMissingWrap wraps an error as a missing version field error.
func FieldMissingWrap(err error, op, message string) *Error {
	return Wrap(err, KindFieldMissing, op, message)
}

// UnsupportedWrap wraps an error as an unsupported operation error.
func UnsupportedWrap(err error, op, message string) *Error {
	return Wrap(err, KindUnsupported, op, message)
}

// InternalWrap wraps an error as an internal error.
func InternalWrap(err error, op, message string) *Error {
	return Wrap(err, KindInternal, op, message)
}

// Sensitive data redaction patterns for build tool output.
// Word boundaries (\b) are used where applicable so patterns match complete tokens.
var sensitivePatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	// GitHub tokens: ghp_..., gho_..., ghs_..., ghr_...
	{regexp.MustCompile(`\bgh[posh]_[a-zA-Z0-9]{36,}\b`), "[REDACTED]"},
	// npm automation tokens
	{regexp.MustCompile(`\bnpm_[a-zA-Z0-9]{36,}\b`), "[REDACTED]"},
	// Generic bearer tokens
	{regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9_.-]{20,}`), "[REDACTED]"},
	// Basic auth in repository URLs, as printed by mvn and gradle
	{regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`), "://[REDACTED]@"},
}

// RedactSensitive removes credentials from tool output before it is surfaced.
func RedactSensitive(s string) string {
	result := s
	for _, p := range sensitivePatterns {
		result = p.re.ReplaceAllString(result, p.replacement)
	}
	return result
}
