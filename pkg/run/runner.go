// Package run wraps os/exec behind a small interface so subprocess-heavy
// code can be tested with a stub runner.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result holds the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Opts holds optional parameters for command execution.
type Opts struct {
	Dir string            // working directory
	Env map[string]string // extra environment variables, overlaid on the parent env
}

// CommandRunner executes external commands.
//
// Run returns a Result with ExitCode set whenever the process actually ran,
// even if it exited non-zero. An error is returned only for launch failures
// (binary not found, context canceled, io failure).
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, opts Opts) (Result, error)
}

// RealRunner is the production CommandRunner backed by os/exec.
type RealRunner struct{}

// NewRealRunner creates a RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and captures stdout/stderr as text.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts Opts) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("running %s: %w", name, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("running %s: %w", name, err)
	}

	return result, nil
}
