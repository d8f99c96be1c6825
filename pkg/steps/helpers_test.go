package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/velaos/vela-deploy/pkg/run"
)

// writeTestScript drops a placeholder collaborator script into dir.
func writeTestScript(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("print('ok')\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

// call records one invocation seen by the stub runner.
type call struct {
	Name string
	Args []string
	Opts run.Opts
}

// stubRunner returns canned results and records every invocation.
type stubRunner struct {
	result run.Result
	err    error
	calls  []call
}

func (s *stubRunner) Run(_ context.Context, name string, args []string, opts run.Opts) (run.Result, error) {
	s.calls = append(s.calls, call{Name: name, Args: args, Opts: opts})
	return s.result, s.err
}
