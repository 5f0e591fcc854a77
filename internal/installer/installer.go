// Package installer drives the one-time idempotent setup of the
// PartField application: source clone, venv creation, pinned
// dependency install, model checkpoint download, verification, and
// the final completion marker write.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Salourh/partfield-deploy/internal/config"
	"github.com/Salourh/partfield-deploy/internal/environment"
	"github.com/Salourh/partfield-deploy/internal/marker"
	"github.com/Salourh/partfield-deploy/internal/printer"
	"github.com/Salourh/partfield-deploy/internal/runner"
)

// Phase is one step of the install state machine. Done is the
// idempotence guard: a phase whose work already survives on disk is
// skipped on re-invocation, which makes retrying a failed run safe.
type Phase struct {
	Name   string
	Remedy string
	Done   func(env *environment.Environment) bool
	Run    func(ctx context.Context) error
}

// PhaseError names the phase that aborted the run and the command
// that retries it.
type PhaseError struct {
	Phase  string
	Remedy string
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("install phase %q failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Installer holds the collaborators of an install run. Runner and
// Client are swappable for tests.
type Installer struct {
	Cfg    *config.Config
	Env    *environment.Environment
	Log    *slog.Logger
	Runner runner.Runner
	Client *http.Client

	// gpuWarned records that GPU verification produced a warning
	// rather than a failure (normal on non-GPU build hosts).
	gpuWarned bool
}

// New creates an Installer with production collaborators.
func New(cfg *config.Config, env *environment.Environment, log *slog.Logger) *Installer {
	return &Installer{
		Cfg:    cfg,
		Env:    env,
		Log:    log,
		Runner: runner.Exec{},
		Client: &http.Client{Timeout: cfg.Download.Timeout},
	}
}

// Run executes the install state machine. Re-running after a
// successful install is a no-op: the marker check fires before any
// phase, so no network or install side effects occur.
func (in *Installer) Run(ctx context.Context) error {
	if marker.Exists(in.Env.MarkerPath) {
		in.Log.Info("installation already complete", "marker", in.Env.MarkerPath)
		printer.Success("PartField already installed (marker: %s)\n", in.Env.MarkerPath)
		return nil
	}

	start := time.Now()
	for _, phase := range in.phases() {
		if phase.Done != nil && phase.Done(in.Env) {
			in.Log.Info("phase already satisfied, skipping", "phase", phase.Name)
			printer.Success("%s (already done)\n", phase.Name)
			continue
		}

		printer.Step("%s...\n", phase.Name)
		in.Log.Info("phase starting", "phase", phase.Name)

		if err := phase.Run(ctx); err != nil {
			in.Log.Error("phase failed", "phase", phase.Name, "error", err)
			return &PhaseError{Phase: phase.Name, Remedy: phase.Remedy, Err: err}
		}

		in.Log.Info("phase complete", "phase", phase.Name)
		printer.Success("%s\n", phase.Name)
	}

	// Marker write is the final action. Everything before it can be
	// retried; once the marker lands, install is observably complete.
	rec := marker.Record{
		SchemaVersion: marker.SchemaVersion,
		InstalledAt:   time.Now(),
		RunID:         uuid.New().String(),
		VenvPath:      in.Env.VenvDir,
		ModelPath:     in.Env.ModelPath,
	}
	if err := marker.Write(in.Env.MarkerPath, rec); err != nil {
		return &PhaseError{Phase: "write-marker", Remedy: "pfpod install", Err: err}
	}

	in.Log.Info("installation complete", "duration", time.Since(start).String(), "run_id", rec.RunID)
	printer.Success("Installation complete in %s\n", time.Since(start).Round(time.Second))
	if in.gpuWarned {
		printer.Warning("GPU was not queryable during verification; fine on a build host, investigate on a GPU pod\n")
	}
	return nil
}
