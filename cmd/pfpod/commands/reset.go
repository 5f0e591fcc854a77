package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/lockfile"
	"github.com/Salourh/partfield-deploy/internal/marker"
	"github.com/Salourh/partfield-deploy/internal/printer"
)

var (
	resetAll bool
	resetYes bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the completion marker to force reinstallation",
	Long: `Delete the installation marker so the next 'pfpod install' runs the
full state machine again. This is the only way to force a reinstall;
install never triggers one on its own.

With --all, the cloned source tree and virtualenv (including the model
checkpoint) are removed too.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Also remove the source tree and virtualenv")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	_, env, log, cleanup, err := loadContext()
	if err != nil {
		return err
	}
	defer cleanup()

	if !resetYes {
		what := "the installation marker"
		if resetAll {
			what = "the marker, source tree, virtualenv AND model checkpoint"
		}
		fmt.Printf("This will remove %s. Continue? [y/N] ", what)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			printer.Info("Aborted.\n")
			return nil
		}
	}

	release, err := lockfile.Acquire(env.LockPath)
	if err != nil {
		return printer.Error(
			"workspace is locked",
			fmt.Sprintf("%v", err),
			[]string{"Stop the running pfpod process before resetting"})
	}
	defer release()

	if err := marker.Remove(env.MarkerPath); err != nil {
		return err
	}
	log.Info("marker removed", "path", env.MarkerPath)
	printer.Success("Removed marker %s\n", env.MarkerPath)

	if resetAll {
		for _, path := range []string{env.AppDir, env.VenvDir} {
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			log.Info("removed", "path", path)
			printer.Success("Removed %s\n", path)
		}
	}

	printer.Info("\nNext: pfpod install\n")
	return nil
}
