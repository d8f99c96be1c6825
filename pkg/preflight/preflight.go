// Package preflight verifies local preconditions before any deploy step is
// attempted: the collaborator interpreter, write access to the work
// directory, and the presence of the required sibling files.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/run"
)

// MinInterpreterVersion is the oldest Python the bootloader scripts support.
var MinInterpreterVersion = semver.MustParse("3.8.0")

const probeDirname = ".write_probe__remove_me"

// Result aggregates the outcome of all precondition checks.
type Result struct {
	InterpreterPath    string
	InterpreterVersion string

	VersionOK  bool
	WritableOK bool

	// MissingFiles lists required-file patterns with no match, in plan order.
	MissingFiles []string
}

// OK reports whether every check passed.
func (r *Result) OK() bool {
	return r.VersionOK && r.WritableOK && len(r.MissingFiles) == 0
}

// Run executes all precondition checks against dir. Every check runs even
// after an earlier one fails so the operator sees the full picture. The
// returned error covers unexpected failures only; an ordinary "check failed"
// outcome is reported through the Result.
func Run(ctx context.Context, runner run.CommandRunner, dir string, requires []api.RequiredFile) (*Result, error) {
	res := &Result{}

	slog.Info("checking system requirements", "dir", dir)

	path, version, err := CheckInterpreter(ctx, runner)
	if err != nil {
		slog.Error("[ERROR] interpreter check failed", "error", err)
	} else {
		res.InterpreterPath = path
		res.InterpreterVersion = version.Original()
		if version.LessThan(MinInterpreterVersion) {
			slog.Error("[ERROR] interpreter too old", "interpreter", path, "version", version.Original(), "minimum", MinInterpreterVersion.Original())
		} else {
			res.VersionOK = true
			slog.Info("[OK] interpreter", "interpreter", path, "version", version.Original())
		}
	}

	writable, err := CheckWritable(dir)
	if err != nil {
		return nil, fmt.Errorf("probing write permission in %s: %w", dir, err)
	}
	res.WritableOK = writable
	if writable {
		slog.Info("[OK] work directory is writable", "dir", dir)
	} else {
		slog.Error("[ERROR] no write permission in work directory", "dir", dir)
	}

	missing, err := CheckRequiredFiles(dir, requires)
	if err != nil {
		return nil, err
	}
	res.MissingFiles = missing

	return res, nil
}

// CheckInterpreter locates the Python interpreter on PATH and determines its
// version by running `--version` through the runner.
func CheckInterpreter(ctx context.Context, runner run.CommandRunner) (string, *semver.Version, error) {
	path, err := findInterpreter()
	if err != nil {
		return "", nil, err
	}

	result, err := runner.Run(ctx, path, []string{"--version"}, run.Opts{})
	if err != nil {
		return "", nil, fmt.Errorf("running %s --version: %w", path, err)
	}
	if result.ExitCode != 0 {
		return "", nil, fmt.Errorf("%s --version exited %d: %s", path, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	version, err := parseVersionOutput(result.Stdout, result.Stderr)
	if err != nil {
		return "", nil, fmt.Errorf("interpreter %s: %w", path, err)
	}

	return path, version, nil
}

func findInterpreter() (string, error) {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH")
}

// parseVersionOutput extracts a semver from `python --version` output.
// Python 3.4+ prints to stdout; older interpreters print to stderr.
func parseVersionOutput(stdout, stderr string) (*semver.Version, error) {
	out := strings.TrimSpace(stdout)
	if out == "" {
		out = strings.TrimSpace(stderr)
	}

	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected version output %q", out)
	}

	version, err := semver.NewVersion(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", fields[1], err)
	}
	return version, nil
}

// CheckWritable probes dir by creating and removing a scoped temporary
// directory. Permission denials return (false, nil); anything else
// unexpected propagates as an error.
func CheckWritable(dir string) (bool, error) {
	probe := filepath.Join(dir, probeDirname)

	if err := os.Mkdir(probe, 0o750); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return false, nil
		}
		if errors.Is(err, fs.ErrExist) {
			// Stale probe from an interrupted run; reuse it.
			return removeProbe(probe)
		}
		return false, err
	}

	return removeProbe(probe)
}

func removeProbe(probe string) (bool, error) {
	if err := os.Remove(probe); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CheckRequiredFiles evaluates each required pattern against dir and returns
// the patterns with no match, in plan order. Each entry is logged as it is
// checked.
func CheckRequiredFiles(dir string, requires []api.RequiredFile) ([]string, error) {
	fsys := os.DirFS(dir)

	var missing []string
	for _, req := range requires {
		matches, err := doublestar.Glob(fsys, req.Pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", req.Pattern, err)
		}
		if len(matches) == 0 {
			slog.Error("[MISSING] required file", "pattern", req.Pattern)
			missing = append(missing, req.Pattern)
			continue
		}
		slog.Info("[OK] required file", "pattern", req.Pattern, "matches", len(matches))
	}

	return missing, nil
}
