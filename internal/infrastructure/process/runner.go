// Package process runs external build tools for project descriptors.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/relicta-tech/nextversion/internal/domain/project"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// DefaultTimeout bounds a single build tool invocation.
const DefaultTimeout = 2 * time.Minute

// waitDelay bounds how long Run waits for output pipes held open by
// grandchildren after the tool itself has exited or been killed.
const waitDelay = 2 * time.Second

// maxStderrInMessage caps the stderr excerpt embedded in error messages.
// The full (redacted) stderr is kept in the error details.
const maxStderrInMessage = 512

// ExecRunner runs commands with os/exec under a timeout.
type ExecRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

var _ project.CommandRunner = (*ExecRunner)(nil)

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithTimeout sets the per-command timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ExecRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewExecRunner creates a runner with DefaultTimeout.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "process"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the per-command timeout.
func (r *ExecRunner) Timeout() time.Duration {
	return r.timeout
}

// withTimeout applies the runner timeout unless ctx already has a shorter deadline.
func (r *ExecRunner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < r.timeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Run executes name with args in dir and returns its trimmed stdout.
// Failures, timeouts and cancellation are reported as KindExternalTool errors
// carrying the command line, exit code and redacted stderr.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	const op = "process.Run"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("command finished",
		"command", commandLine,
		"dir", dir,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return "", r.failure(ctx, op, commandLine, err, stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecRunner) failure(ctx context.Context, op, commandLine string, err error, stderr string) error {
	stderr = rperrors.RedactSensitive(strings.TrimSpace(stderr))
	exitCode := -1

	var message string
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		message = fmt.Sprintf("%s timed out after %s", commandLine, r.timeout)
		err = errors.Join(err, ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		message = fmt.Sprintf("%s was interrupted", commandLine)
		err = errors.Join(err, ctx.Err())
	case errors.Is(err, exec.ErrNotFound):
		message = fmt.Sprintf("%s: command not found in PATH", commandLine)
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitCode()
		message = fmt.Sprintf("%s exited with code %d", commandLine, exitCode)
	default:
		message = fmt.Sprintf("%s failed to start", commandLine)
	}

	if stderr != "" {
		message += ": " + truncate(stderr, maxStderrInMessage)
	}

	return rperrors.ExternalToolWrap(err, op, message).
		WithDetail(rperrors.DetailCommand, commandLine).
		WithDetail(rperrors.DetailExitCode, exitCode).
		WithDetail(rperrors.DetailStderr, stderr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
