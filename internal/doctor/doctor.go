// Package doctor is the read-only diagnostics role: it probes every
// resource the installer and launcher depend on and emits a
// structured pass/warn/fail report. It mutates nothing and is safe to
// run while an install or launch is in progress, though results may
// reflect a transient state.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Salourh/partfield-deploy/internal/config"
	"github.com/Salourh/partfield-deploy/internal/environment"
	"github.com/Salourh/partfield-deploy/internal/printer"
	"github.com/Salourh/partfield-deploy/internal/runner"
)

// Status of a single check.
const (
	StatusOK   = "OK"
	StatusWarn = "WARN"
	StatusFail = "FAIL"
)

// Result captures a single check outcome.
type Result struct {
	Name   string
	Status string
	Detail string
}

// Report is the full, ephemeral diagnostic view.
type Report struct {
	Results []Result
}

// Counts returns (ok, warn, fail) totals.
func (r *Report) Counts() (int, int, int) {
	var ok, warn, fail int
	for _, res := range r.Results {
		switch res.Status {
		case StatusOK:
			ok++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}
	return ok, warn, fail
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	_, _, fail := r.Counts()
	return fail > 0
}

// remediation maps failing check names to the corrective command.
var remediation = map[string]string{
	"marker":           "pfpod install",
	"workspace-files":  "pfpod reset && pfpod install",
	"model-checkpoint": "pfpod install",
	"virtualenv":       "pfpod install",
	"python-imports":   "pfpod reset && pfpod install",
	"disk-space":       "free space on the workspace volume or resize the pod volume",
	"server-port":      "pfpod launch",
	"server-process":   "pfpod launch",
}

// Doctor runs the probe suite. Runner and Client are swappable for
// tests.
type Doctor struct {
	Cfg    *config.Config
	Env    *environment.Environment
	Log    *slog.Logger
	Runner runner.Runner
	Client *http.Client
}

// New creates a Doctor with production collaborators.
func New(cfg *config.Config, env *environment.Environment, log *slog.Logger) *Doctor {
	return &Doctor{
		Cfg:    cfg,
		Env:    env,
		Log:    log,
		Runner: runner.Exec{},
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Run executes every check in fixed order. Checks never short-circuit
// each other; a missing venv still lets the network checks run.
func (d *Doctor) Run(ctx context.Context) *Report {
	checks := []func(ctx context.Context) Result{
		d.checkHost,
		d.checkDiskSpace,
		d.checkGPUHardware,
		d.checkMarker,
		d.checkWorkspaceFiles,
		d.checkModel,
		d.checkVenv,
		d.checkImports,
		d.checkGPUFromVenv,
		d.checkNetworkSource,
		d.checkNetworkModelHost,
		d.checkServerPort,
		d.checkServerProcess,
	}

	report := &Report{}
	for _, check := range checks {
		res := check(ctx)
		report.Results = append(report.Results, res)
		d.Log.Info("diagnostic check", "name", res.Name, "status", res.Status, "detail", res.Detail)
	}
	return report
}

// Print renders the report with aggregate counts and, when anything
// failed, the remediation table for the observed failures.
func (r *Report) Print() {
	printer.Println()
	for _, res := range r.Results {
		printer.Check(res.Status, res.Name, res.Detail)
	}

	ok, warn, fail := r.Counts()
	printer.Println()
	printer.Info("%d ok, %d warnings, %d failures\n", ok, warn, fail)

	if fail == 0 {
		printer.Success("environment looks healthy\n")
		return
	}

	printer.Println()
	printer.Info("Remediation:\n")
	for _, res := range r.Results {
		if res.Status != StatusFail {
			continue
		}
		cmd, found := remediation[res.Name]
		if !found {
			cmd = "see detail above"
		}
		printer.Printf("  %-30s %s\n", res.Name, cmd)
	}
}

func okf(name, format string, a ...any) Result {
	return Result{Name: name, Status: StatusOK, Detail: fmt.Sprintf(format, a...)}
}

func warnf(name, format string, a ...any) Result {
	return Result{Name: name, Status: StatusWarn, Detail: fmt.Sprintf(format, a...)}
}

func failf(name, format string, a ...any) Result {
	return Result{Name: name, Status: StatusFail, Detail: fmt.Sprintf(format, a...)}
}
