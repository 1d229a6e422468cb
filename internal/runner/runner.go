// Package runner executes the Unity editor process with a bounded runtime
// and capped output capture. A non-zero editor exit is a normal Result;
// only a failure to execute the binary at all is an error.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Runner executes one editor invocation at a time.
type Runner struct {
	Workspace string // working directory for the editor process
	Timeout   time.Duration
	MaxOutput int // per-stream capture cap in bytes
}

// Result is the outcome of one completed editor invocation.
type Result struct {
	RunID     string
	ExitCode  int
	Stdout    []byte
	Stderr    []byte
	Truncated bool // either stream hit the capture cap
}

// Run executes argv[0] with the remaining arguments and waits for it to
// exit. The context bounds the run together with the configured timeout;
// on expiry the process is killed and its exit code reported as usual.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Binary not found or not executable.
			return nil, fmt.Errorf("executing %s: %w", argv[0], runErr)
		}
	}

	return &Result{
		RunID:     uuid.New().String(),
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput,
	}, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest while still reporting full writes to avoid short-write errors.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
