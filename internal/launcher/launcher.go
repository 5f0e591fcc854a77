// Package launcher is the fast-path startup role: verify the
// completed installation, re-apply the non-persisted OS packages,
// preflight the workspace, and hand off to the Gradio server. Any
// fatal condition ends in the explicit awaiting-operator state rather
// than process exit, so the pod stays attachable for debugging.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Salourh/partfield-deploy/internal/config"
	"github.com/Salourh/partfield-deploy/internal/environment"
	"github.com/Salourh/partfield-deploy/internal/marker"
	"github.com/Salourh/partfield-deploy/internal/printer"
	"github.com/Salourh/partfield-deploy/internal/runner"
)

// Launcher coordinates preflight and server handoff. Install is
// injected so the first-boot path can run the full installer without
// a package cycle, and so tests can substitute it.
type Launcher struct {
	Cfg     *config.Config
	Env     *environment.Environment
	Log     *slog.Logger
	Runner  runner.Runner
	Install func(ctx context.Context) error
}

// Prepare brings a freshly restarted (or freshly provisioned) pod to
// a launchable state. Returns an error describing the fatal condition
// when the pod cannot be launched.
func (l *Launcher) Prepare(ctx context.Context) error {
	// First boot of a fresh pod: no marker means the persistent
	// volume has never been installed into.
	if !marker.Exists(l.Env.MarkerPath) {
		printer.Info("No installation marker found - running full install first\n")
		l.Log.Info("marker absent, invoking installer", "marker", l.Env.MarkerPath)
		if err := l.Install(ctx); err != nil {
			return fmt.Errorf("first-boot install failed: %w", err)
		}
	}

	// OS-level shared libraries do not survive pod restarts (only
	// the workspace volume persists). Reinstall best-effort; they
	// are often still present in the image layer.
	l.reinstallOSPackages(ctx)

	if err := l.Preflight(ctx); err != nil {
		return err
	}

	if removed := l.pruneJobs(); removed > 0 {
		printer.Info("Pruned %d expired job director%s\n", removed, plural(removed, "y", "ies"))
	}

	return nil
}

// Serve hands off to the long-running Gradio server and blocks until
// it exits. Returns the server's exit code.
func (l *Launcher) Serve(ctx context.Context) (int, error) {
	args := []string{
		l.Env.ServerFile,
		"--port", strconv.Itoa(l.Cfg.Port),
		"--jobs-dir", l.Env.JobsDir,
	}
	if l.Cfg.Share {
		args = append(args, "--share")
	}

	printer.Step("Starting PartField web UI on port %d\n", l.Cfg.Port)
	l.Log.Info("handing off to server", "entry", l.Env.ServerFile, "port", l.Cfg.Port, "jobs_dir", l.Env.JobsDir)

	err := l.Runner.Run(ctx, l.Env.AppDir, l.Env.Python, args...)
	code := runner.ExitCode(err)
	if err != nil {
		return code, err
	}
	return 0, nil
}

// reinstallOSPackages re-applies the apt packages the hosting
// platform loses on restart. Failures are warnings: the libraries may
// already be present, and preflight catches real breakage.
func (l *Launcher) reinstallOSPackages(ctx context.Context) {
	if len(l.Cfg.AptPackages) == 0 {
		return
	}

	args := append([]string{"install", "-y", "--no-install-recommends"}, l.Cfg.AptPackages...)
	if err := l.Runner.Run(ctx, l.Env.Workspace, "apt-get", args...); err != nil {
		l.Log.Warn("apt package reinstall failed", "error", err)
		printer.Warning("could not reinstall OS packages (%v) - continuing, they may already be present\n", err)
		return
	}
	l.Log.Info("OS packages reinstalled", "packages", l.Cfg.AptPackages)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
