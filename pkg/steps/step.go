package steps

import (
	"context"

	"github.com/velaos/vela-deploy/pkg/run"
)

// StepContext provides the runtime context for a step.
type StepContext struct {
	WorkDir     string            // directory holding the collaborator scripts
	Interpreter string            // python interpreter resolved by preflight
	Runner      run.CommandRunner // subprocess runner
	Env         map[string]string // extra environment for collaborators
}

// StepResult holds the output of a completed step.
type StepResult struct {
	Stdout string
	Stderr string

	// Skipped is set when an optional step's script was absent and the
	// step was bypassed with a notice instead of running.
	Skipped bool
	Reason  string
}

// Step is the interface all pipeline steps implement.
type Step interface {
	Name() string
	Title() string
	Run(ctx context.Context, sctx StepContext) (*StepResult, error)
}
