package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/velaos/vela-deploy/pkg/api"
	"github.com/velaos/vela-deploy/pkg/deploy"
	"github.com/velaos/vela-deploy/pkg/logging"
	"github.com/velaos/vela-deploy/pkg/preflight"
	"github.com/velaos/vela-deploy/pkg/report"
	"github.com/velaos/vela-deploy/pkg/run"
	"github.com/velaos/vela-deploy/pkg/steps"
)

var version = "dev"

// Exit codes are part of the operator contract: 0 for full success or
// help-only, 1 for everything else. No finer-grained taxonomy.
const exitFailure = 1

var (
	deployFlag  bool
	helpOnly    bool
	skipEnv     bool
	verbose     bool
	planFile    string
	workDir     string
	loggingType string
	logLevel    string
	logFile     string
	showVersion bool
)

func init() {
	flag.BoolVar(
		&deployFlag,
		"deploy",
		false,
		"execute the deployment (default when no flag is given)")
	flag.BoolVar(
		&helpOnly,
		"help-only",
		false,
		"print the pipeline description and exit without deploying")
	flag.BoolVar(
		&skipEnv,
		"skip-env",
		false,
		"run the folder step only, skip Python environment setup")
	flag.BoolVar(
		&verbose,
		"verbose",
		false,
		"debug-level logging")
	flag.StringVar(
		&planFile,
		"plan",
		"",
		"YAML plan file overriding the built-in deploy plan")
	flag.StringVar(
		&workDir,
		"dir",
		".",
		"work directory holding the bootloader scripts and config")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.StringVar(
		&logFile,
		"log-file",
		"deployment.log",
		"transcript file, empty disables")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if helpOnly {
		printHelpBanner()
		os.Exit(0)
	}

	if verbose {
		logLevel = "debug"
	}

	if err := logging.Initialize(loggingType, logLevel, logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}

	slog.Info("deploy orchestrator starting", "version", version)

	includeEnv()
	resolveWorkDir()

	plan := loadPlan()

	skip := map[string]string{}
	requires := plan.Requires
	if skipEnv {
		skip[api.StepNamePythonEnv] = "skipped by flag (--skip-env)"
		requires = plan.WithoutStep(api.StepNamePythonEnv).Requires
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := run.NewRealRunner()

	pf := runPreflight(ctx, runner, requires)

	sctx := steps.StepContext{
		WorkDir:     workDir,
		Interpreter: pf.InterpreterPath,
		Runner:      runner,
	}

	outcome, err := deploy.Run(ctx, plan, sctx, deploy.Options{Skip: skip})
	if err != nil {
		reportFailure(ctx, outcome, err)
		os.Exit(exitFailure)
	}

	printSummary(outcome)
	slog.Info("done")
}

func printHelpBanner() {
	plan := api.DefaultPlan()
	if planFile != "" {
		if p, err := api.LoadPlan(planFile); err == nil {
			plan = p
		}
	}

	banner, err := report.HelpBanner(plan)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
	fmt.Print(banner)
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitFailure)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}

	if coreDir := os.Getenv("VELA_CORE_DIR"); coreDir != "" {
		slog.Info("VELA_CORE_DIR set", "dir", coreDir)
	} else {
		slog.Info("VELA_CORE_DIR not set (local mode)")
	}
}

func resolveWorkDir() {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		slog.Error("failed to resolve work directory", "dir", workDir, "error", err)
		os.Exit(exitFailure)
	}
	workDir = abs

	st, err := os.Stat(workDir)
	if err != nil {
		slog.Error("failed to check work directory", "dir", workDir, "error", err)
		os.Exit(exitFailure)
	}
	if !st.IsDir() {
		slog.Error("-dir is not a directory", "dir", workDir)
		os.Exit(exitFailure)
	}

	slog.Info("work directory", "dir", workDir)
}

func loadPlan() *api.Plan {
	if planFile == "" {
		return api.DefaultPlan()
	}

	plan, err := api.LoadPlan(planFile)
	if err != nil {
		slog.Error("failed to load plan file", "filename", planFile, "error", err)
		os.Exit(exitFailure)
	}
	slog.Info("using plan file", "filename", plan.FilePath)
	return plan
}

func runPreflight(ctx context.Context, runner run.CommandRunner, requires []api.RequiredFile) *preflight.Result {
	pf, err := preflight.Run(ctx, runner, workDir, requires)
	if err != nil {
		slog.Error("precondition check failed unexpectedly", "error", err)
		os.Exit(exitFailure)
	}

	if !pf.OK() {
		fmt.Println("\n[ERROR] System requirements not met. See the log above.")
		if !skipEnv && slices.Contains(pf.MissingFiles, api.EnvBootloaderScript) {
			fmt.Println("Tip: " + api.EnvBootloaderScript + " not found; rerun with --skip-env or add the file.")
		}
		os.Exit(exitFailure)
	}

	return pf
}

func reportFailure(ctx context.Context, outcome *deploy.Outcome, err error) {
	if ctx.Err() != nil {
		fmt.Printf("\n[ABORTED] Interrupted by operator after %d of %d step(s) completed.\n",
			outcome.Completed, len(outcome.Steps))
		return
	}

	slog.Error("deployment failed", "error", err)

	if outcome.Completed == 0 {
		fmt.Println("\n[ERROR] Step 1 failed. No deployment progress was made.")
		return
	}

	failed := outcome.Failed()
	name := "a later step"
	if failed != nil {
		name = failed.Title
	}
	fmt.Printf("\n[FAILED] %s failed. %d earlier step(s) completed successfully; the environment is in a known-incomplete state.\n",
		name, outcome.Completed)
}

func printSummary(outcome *deploy.Outcome) {
	banner, err := report.Summary(outcome, logFile)
	if err != nil {
		slog.Error("failed to render summary", "error", err)
		os.Exit(exitFailure)
	}
	fmt.Print(banner)
}
