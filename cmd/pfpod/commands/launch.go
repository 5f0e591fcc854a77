package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/installer"
	"github.com/Salourh/partfield-deploy/internal/launcher"
	"github.com/Salourh/partfield-deploy/internal/lockfile"
	"github.com/Salourh/partfield-deploy/internal/printer"
	"github.com/Salourh/partfield-deploy/internal/runner"
)

var (
	launchPort    int
	launchJobsDir string
	launchShare   bool
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Preflight the workspace and start the web UI",
	Long: `Fast-path startup for an installed pod: re-apply the OS packages the
platform does not persist, verify every launch precondition, then hand
off to the PartField Gradio server.

On the very first boot (no completion marker) the full install runs
automatically. On any fatal condition - install failure, preflight
failure, or server exit - the process does not terminate: it enters
the awaiting-operator state with a /healthz endpoint so the pod stays
attachable for debugging.`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().IntVar(&launchPort, "port", 0, "Bind port for the web UI (overrides config)")
	launchCmd.Flags().StringVar(&launchJobsDir, "jobs-dir", "", "Job output directory (overrides config)")
	launchCmd.Flags().BoolVar(&launchShare, "share", false, "Enable Gradio public sharing")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, env, log, cleanup, err := loadContext()
	if err != nil {
		return err
	}
	defer cleanup()

	if launchPort != 0 {
		cfg.Port = launchPort
	}
	if launchJobsDir != "" {
		cfg.JobsDir = launchJobsDir
		env.JobsDir = launchJobsDir
	}
	if launchShare {
		cfg.Share = true
	}

	release, err := lockfile.Acquire(env.LockPath)
	if err != nil {
		return printer.Error(
			"workspace is locked",
			fmt.Sprintf("%v", err),
			[]string{
				"Wait for the other pfpod process to finish",
				"If no other process is running, remove the stale lock: rm " + env.LockPath,
			})
	}
	defer release()

	l := &launcher.Launcher{
		Cfg:     cfg,
		Env:     env,
		Log:     log,
		Runner:  runner.Exec{},
		Install: installer.New(cfg, env, log).Run,
	}

	if err := l.Prepare(ctx); err != nil {
		printer.Warning("launch aborted: %v\n", err)
		if remedy := remedyFor(err); remedy != "" {
			printer.Info("Suggested fix: %s\n", remedy)
		}
		launcher.NewOperatorGate(cfg.HealthPort, err.Error(), log).Await()
	}

	code, serveErr := l.Serve(ctx)
	reason := fmt.Sprintf("server exited with code %d", code)
	if serveErr != nil {
		printer.Warning("server exited: code %d (%v)\n", code, serveErr)
	} else {
		printer.Info("Server exited cleanly (code %d)\n", code)
	}

	// Deliberate: no automatic restart. The pod stays up with the
	// failure context intact instead of crash-looping.
	launcher.NewOperatorGate(cfg.HealthPort, reason, log).Await()
	return nil
}

func remedyFor(err error) string {
	var preflight *launcher.PreflightError
	if errors.As(err, &preflight) {
		return preflight.Remedy
	}
	return ""
}
