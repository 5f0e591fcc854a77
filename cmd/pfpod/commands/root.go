package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Salourh/partfield-deploy/internal/config"
	"github.com/Salourh/partfield-deploy/internal/environment"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pfpod",
	Short: "pfpod - PartField GPU pod deployment toolkit",
	Long: `pfpod provisions and runs the PartField 3D part-segmentation web UI
on a rented GPU pod.

The workspace volume persists across pod restarts; OS-level packages do
not. pfpod manages exactly that split: a one-time idempotent install
into the workspace, a fast launch path that re-applies the ephemeral
pieces, and a read-only doctor that inspects the result.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "pfpod.yml", "Path to the pfpod configuration file")
}

// loadContext resolves config, environment and logger for a command.
// The cleanup function closes the log file.
func loadContext() (*config.Config, *environment.Environment, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(`configuration error

%v

Check %s and PFPOD_* environment variables, or regenerate defaults:
  pfpod init --force`, err, configPath)
	}

	env := environment.Resolve(cfg)

	// Workspace must exist before the log file inside it can open;
	// harmless if already present.
	_ = os.MkdirAll(env.Workspace, 0755)

	log, cleanup := config.SetupLogger(env.LogFile, config.ParseLogLevel(cfg.LogLevel))
	return cfg, env, log, cleanup, nil
}
