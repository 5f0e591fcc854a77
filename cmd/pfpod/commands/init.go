package commands

import (
	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/scaffold"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter pfpod.yml in the current directory",
	Long: `Create pfpod.yml and .env.example with every configuration value at
its built-in default, ready to edit.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing pfpod.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(".", initForce); err != nil {
		return err
	}
	scaffold.PrintSuccess()
	return nil
}
