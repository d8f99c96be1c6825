// Package deploy executes a plan's steps sequentially, short-circuiting on
// the first failure.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/steps"
)

// Status of a single step after a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusNotRun    Status = "not run"
)

// StepOutcome records what happened to one step.
type StepOutcome struct {
	Name   string
	Title  string
	Status Status
	Reason string
}

// Outcome summarizes a pipeline run. Steps appear in plan order; every
// scheduled step has an entry even when the run stops early.
type Outcome struct {
	Steps     []StepOutcome
	Completed int // steps that ran and succeeded
}

// Failed returns the failed step, if any.
func (o *Outcome) Failed() *StepOutcome {
	for i := range o.Steps {
		if o.Steps[i].Status == StatusFailed {
			return &o.Steps[i]
		}
	}
	return nil
}

// Options adjusts a run.
type Options struct {
	// Skip maps step names to a human-readable reason; matching steps are
	// recorded as skipped without running.
	Skip map[string]string
}

// Run executes the plan's steps in order. The first step error stops the
// pipeline: later steps are recorded as not run and the error is returned
// alongside the partial outcome.
func Run(ctx context.Context, plan *api.Plan, sctx steps.StepContext, opts Options) (*Outcome, error) {
	outcome := &Outcome{}

	for i, cfg := range plan.Steps {
		step, err := steps.NewStep(cfg)
		if err != nil {
			return outcome, fmt.Errorf("creating step %q: %w", cfg.Name, err)
		}

		if reason, ok := opts.Skip[cfg.Name]; ok {
			slog.Info("step skipped", "step", cfg.Name, "reason", reason)
			outcome.Steps = append(outcome.Steps, StepOutcome{
				Name: cfg.Name, Title: step.Title(), Status: StatusSkipped, Reason: reason,
			})
			continue
		}

		slog.Info("running step", "step", cfg.Name, "title", step.Title())

		result, err := step.Run(ctx, sctx)
		if err != nil {
			outcome.Steps = append(outcome.Steps, StepOutcome{
				Name: cfg.Name, Title: step.Title(), Status: StatusFailed, Reason: err.Error(),
			})
			markNotRun(outcome, plan.Steps[i+1:])
			return outcome, fmt.Errorf("step %q failed: %w", cfg.Name, err)
		}

		if result.Skipped {
			outcome.Steps = append(outcome.Steps, StepOutcome{
				Name: cfg.Name, Title: step.Title(), Status: StatusSkipped, Reason: result.Reason,
			})
			continue
		}

		outcome.Steps = append(outcome.Steps, StepOutcome{
			Name: cfg.Name, Title: step.Title(), Status: StatusSucceeded,
		})
		outcome.Completed++
	}

	return outcome, nil
}

func markNotRun(outcome *Outcome, rest []api.StepConfig) {
	for _, cfg := range rest {
		title := cfg.Title
		if title == "" {
			title = cfg.Name
		}
		outcome.Steps = append(outcome.Steps, StepOutcome{
			Name: cfg.Name, Title: title, Status: StatusNotRun,
		})
	}
}
