package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/run"
)

// ExitError reports a bootloader script that ran but exited non-zero.
type ExitError struct {
	Script string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited %d", e.Script, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\nstderr: " + s
	}
	return msg
}

type bootloaderStep struct {
	cfg api.StepConfig
}

// NewBootloaderStep creates a step that invokes a collaborator script as
// `<interpreter> <script> <args...>`, blocking with output captured.
func NewBootloaderStep(cfg api.StepConfig) Step {
	return &bootloaderStep{cfg: cfg}
}

func (s *bootloaderStep) Name() string { return s.cfg.Name }

func (s *bootloaderStep) Title() string {
	if s.cfg.Title != "" {
		return s.cfg.Title
	}
	return s.cfg.Name
}

func (s *bootloaderStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	script := s.cfg.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(sctx.WorkDir, script)
	}

	if _, err := os.Stat(script); err != nil {
		if errors.Is(err, fs.ErrNotExist) && s.cfg.Optional {
			slog.Info("step skipped, script not found", "step", s.cfg.Name, "script", s.cfg.Script)
			return &StepResult{Skipped: true, Reason: s.cfg.Script + " not found"}, nil
		}
		return nil, fmt.Errorf("script %s: %w", s.cfg.Script, err)
	}

	args := append([]string{script}, s.cfg.Args...)

	slog.Info("step starting", "step", s.cfg.Name, "title", s.Title())
	slog.Info("command", "interpreter", sctx.Interpreter, "args", strings.Join(args, " "))

	result, err := sctx.Runner.Run(ctx, sctx.Interpreter, args, run.Opts{
		Dir: sctx.WorkDir,
		Env: sctx.Env,
	})
	if err != nil {
		logOutput(slog.LevelError, s.cfg.Name, result)
		return nil, fmt.Errorf("launching %s: %w", s.cfg.Script, err)
	}

	if result.ExitCode != 0 {
		slog.Error("step failed", "step", s.cfg.Name, "exitCode", result.ExitCode)
		logOutput(slog.LevelError, s.cfg.Name, result)
		return nil, &ExitError{Script: s.cfg.Script, Code: result.ExitCode, Stderr: result.Stderr}
	}

	logOutput(slog.LevelInfo, s.cfg.Name, result)
	slog.Info("step succeeded", "step", s.cfg.Name)

	return &StepResult{Stdout: result.Stdout, Stderr: result.Stderr}, nil
}

// logOutput surfaces captured collaborator output line by line, stdout at
// the given level and stderr one notch higher (warn for info).
func logOutput(level slog.Level, step string, result run.Result) {
	stderrLevel := level
	if level == slog.LevelInfo {
		stderrLevel = slog.LevelWarn
	}
	logLines(level, step, "stdout", result.Stdout)
	logLines(stderrLevel, step, "stderr", result.Stderr)
}

func logLines(level slog.Level, step, stream, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		slog.Log(context.Background(), level, line, "step", step, "stream", stream)
	}
}
