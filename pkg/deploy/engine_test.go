package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/run"
	"github.com/velaos/vela-deploy/pkg/steps"
)

// scriptRunner fakes collaborator processes keyed by script basename.
type scriptRunner struct {
	results map[string]run.Result
	invoked []string
}

func (s *scriptRunner) Run(_ context.Context, _ string, args []string, _ run.Opts) (run.Result, error) {
	script := filepath.Base(args[0])
	s.invoked = append(s.invoked, script)
	return s.results[script], nil
}

func testPlan(t *testing.T) (*api.Plan, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{api.FolderBootloaderScript, api.EnvBootloaderScript} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("print('ok')\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return api.DefaultPlan(), dir
}

func stepContext(dir string, runner run.CommandRunner) steps.StepContext {
	return steps.StepContext{WorkDir: dir, Interpreter: "python3", Runner: runner}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	plan, dir := testPlan(t)
	runner := &scriptRunner{results: map[string]run.Result{
		api.FolderBootloaderScript: {Stdout: "folders created\n"},
		api.EnvBootloaderScript:    {Stdout: "venv ready\n"},
	}}

	outcome, err := Run(context.Background(), plan, stepContext(dir, runner), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Completed != 2 {
		t.Errorf("completed = %d, want 2", outcome.Completed)
	}
	for _, s := range outcome.Steps {
		if s.Status != StatusSucceeded {
			t.Errorf("step %q status = %q, want succeeded", s.Name, s.Status)
		}
	}
	if len(runner.invoked) != 2 {
		t.Errorf("invoked = %v", runner.invoked)
	}
}

func TestRun_FirstStepFailureShortCircuits(t *testing.T) {
	plan, dir := testPlan(t)
	runner := &scriptRunner{results: map[string]run.Result{
		api.FolderBootloaderScript: {Stderr: "disk full\n", ExitCode: 1},
	}}

	outcome, err := Run(context.Background(), plan, stepContext(dir, runner), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), api.StepNameFolders) {
		t.Errorf("error should name the failed step, got: %v", err)
	}

	if got := runner.invoked; len(got) != 1 || got[0] != api.FolderBootloaderScript {
		t.Errorf("second collaborator must not run, invoked = %v", got)
	}
	if outcome.Completed != 0 {
		t.Errorf("completed = %d, want 0", outcome.Completed)
	}

	if len(outcome.Steps) != 2 {
		t.Fatalf("every scheduled step needs an entry, got %d", len(outcome.Steps))
	}
	if outcome.Steps[0].Status != StatusFailed {
		t.Errorf("first step status = %q", outcome.Steps[0].Status)
	}
	if outcome.Steps[1].Status != StatusNotRun {
		t.Errorf("second step status = %q", outcome.Steps[1].Status)
	}
}

func TestRun_SecondStepFailureIsPartialSuccess(t *testing.T) {
	plan, dir := testPlan(t)
	runner := &scriptRunner{results: map[string]run.Result{
		api.FolderBootloaderScript: {Stdout: "folders created\n"},
		api.EnvBootloaderScript:    {Stderr: "pip exploded\n", ExitCode: 3},
	}}

	outcome, err := Run(context.Background(), plan, stepContext(dir, runner), Options{})
	if err == nil {
		t.Fatal("expected error")
	}

	if outcome.Completed != 1 {
		t.Errorf("completed = %d, want 1", outcome.Completed)
	}
	failed := outcome.Failed()
	if failed == nil || failed.Name != api.StepNamePythonEnv {
		t.Errorf("failed step = %+v", failed)
	}
}

func TestRun_SkipOption(t *testing.T) {
	plan, dir := testPlan(t)
	runner := &scriptRunner{results: map[string]run.Result{
		api.FolderBootloaderScript: {Stdout: "folders created\n"},
	}}

	outcome, err := Run(context.Background(), plan, stepContext(dir, runner), Options{
		Skip: map[string]string{api.StepNamePythonEnv: "skipped by flag (--skip-env)"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := runner.invoked; len(got) != 1 || got[0] != api.FolderBootloaderScript {
		t.Errorf("skipped collaborator must not run, invoked = %v", got)
	}
	if outcome.Steps[1].Status != StatusSkipped {
		t.Errorf("second step status = %q", outcome.Steps[1].Status)
	}
	if !strings.Contains(outcome.Steps[1].Reason, "--skip-env") {
		t.Errorf("skip reason = %q", outcome.Steps[1].Reason)
	}
	if outcome.Completed != 1 {
		t.Errorf("completed = %d, want 1", outcome.Completed)
	}
}

func TestRun_MissingOptionalScriptContinues(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, api.FolderBootloaderScript), []byte("print('ok')\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	plan := api.DefaultPlan()
	plan.Steps[1].Optional = true

	runner := &scriptRunner{results: map[string]run.Result{
		api.FolderBootloaderScript: {Stdout: "folders created\n"},
	}}

	outcome, err := Run(context.Background(), plan, stepContext(dir, runner), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Steps[1].Status != StatusSkipped {
		t.Errorf("second step status = %q, want skipped", outcome.Steps[1].Status)
	}
	if outcome.Completed != 1 {
		t.Errorf("completed = %d, want 1", outcome.Completed)
	}
}

func TestRun_UnknownStepType(t *testing.T) {
	plan := &api.Plan{
		Steps: []api.StepConfig{{Name: "a", Type: "teleport", Script: "a.py"}},
	}

	_, err := Run(context.Background(), plan, stepContext(t.TempDir(), &scriptRunner{}), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "creating step") {
		t.Errorf("unexpected error: %v", err)
	}
}
