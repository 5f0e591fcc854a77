package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/installer"
	"github.com/Salourh/partfield-deploy/internal/lockfile"
	"github.com/Salourh/partfield-deploy/internal/printer"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision the workspace (idempotent)",
	Long: `Run the one-time setup: clone the PartField source, create the
pinned virtualenv, install dependency groups in their required order,
download the model checkpoint, verify every critical import, and write
the completion marker.

Re-running after a successful install is always a safe no-op. After a
failure, re-running resumes: phases whose work already survives on
disk are skipped.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, env, log, cleanup, err := loadContext()
	if err != nil {
		return err
	}
	defer cleanup()

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

	if err := installer.New(cfg, env, log).Run(ctx); err != nil {
		var phaseErr *installer.PhaseError
		if errors.As(err, &phaseErr) {
			return printer.Error(
				fmt.Sprintf("install failed in phase %q", phaseErr.Phase),
				phaseErr.Err.Error(),
				[]string{"Fix the cause above, then retry: " + phaseErr.Remedy},
			)
		}
		return err
	}

	return nil
}
