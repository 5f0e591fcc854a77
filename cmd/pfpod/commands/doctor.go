package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/doctor"
	"github.com/Salourh/partfield-deploy/internal/printer"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Inspect the deployment and report pass/warn/fail",
	Long: `Probe every resource the installer and launcher depend on: disk,
GPU, the completion marker, workspace files, the model checkpoint, the
virtualenv and its imports, outbound network, the server port and the
server process.

Read-only: safe to run at any time, including while an install or
launch is in progress.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, env, log, cleanup, err := loadContext()
	if err != nil {
		return err
	}
	defer cleanup()

	printer.Step("Running diagnostic checks against %s\n", env.Workspace)

	report := doctor.New(cfg, env, log).Run(ctx)
	report.Print()

	if report.Failed() {
		return fmt.Errorf("diagnostics reported failures")
	}
	return nil
}
