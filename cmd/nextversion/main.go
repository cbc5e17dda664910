// Package main is the entry point for the nextversion CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/nextversion/internal/cli"
	rperrors "github.com/relicta-tech/nextversion/internal/errors"
	buildinfo "github.com/relicta-tech/nextversion/internal/version"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for running build tools to stop.
const shutdownTimeout = 30 * time.Second

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cli.SetVersionInfo(buildinfo.Resolve(version), commit, date)

	code := run(context.Background(), sigChan, cli.ExecuteContext, func() { signal.Stop(sigChan) }, os.Stderr, os.Exit)
	os.Exit(code)
}

// run executes the CLI and returns the process exit code. The first signal
// cancels the context; a second signal or the shutdown timeout calls exit.
func run(ctx context.Context, sigChan <-chan os.Signal, execute func(context.Context) error, cleanup func(), stderr io.Writer, exit func(int)) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Handle shutdown signals in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-done:
			return
		}
		fmt.Fprintf(stderr, "\nReceived signal %v, stopping...\n", sig)
		cancel()

		shutdownTimer := time.NewTimer(shutdownTimeout)
		defer shutdownTimer.Stop()

		select {
		case <-done:
		case <-shutdownTimer.C:
			fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
			exit(1)
		case sig = <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exit(1)
		}
	}()

	var exitCode int
	if err := execute(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "Operation canceled")
			exitCode = 130 // Standard exit code for SIGINT
		} else {
			// Print the error since SilenceErrors is enabled in cobra
			fmt.Fprintf(stderr, "Error: %v\n", err)
			printErrorDetails(stderr, err)
			exitCode = 1
		}
	}

	close(done)
	wg.Wait()
	cleanup()
	return exitCode
}

// printErrorDetails prints the failing build tool invocation, if any, and a
// usage hint for errors the user can fix by changing flags or configuration.
func printErrorDetails(w io.Writer, err error) {
	if command, ok := rperrors.Detail(err, rperrors.DetailCommand); ok {
		fmt.Fprintf(w, "  command:   %v\n", command)
		if code, ok := rperrors.Detail(err, rperrors.DetailExitCode); ok {
			fmt.Fprintf(w, "  exit code: %v\n", code)
		}
	}
	if rperrors.IsRecoverable(err) {
		fmt.Fprintln(w, "Run 'nextversion --help' for usage.")
	}
}
