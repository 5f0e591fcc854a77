// Package environment resolves every path and binary the installer,
// launcher and doctor operate on into one explicit value, constructed
// once at process start. Phases and checks receive it as a parameter
// instead of reading ambient process state.
package environment

import (
	"path/filepath"

	"github.com/Salourh/partfield-deploy/internal/config"
)

// Environment holds the resolved filesystem layout of a deployment.
type Environment struct {
	// Workspace is the persistent volume root.
	Workspace string

	// AppDir is the cloned PartField source tree.
	AppDir string

	// EntryFile is the inference entry point inside AppDir; its
	// absence marks a corrupt clone.
	EntryFile string

	// ServerFile is the Gradio web UI script the launcher hands off to.
	ServerFile string

	// DemoConfig is the inference config the app requires at startup.
	DemoConfig string

	// ModelPath is the checkpoint location inside AppDir.
	ModelPath string

	// VenvDir is the isolated runtime environment.
	VenvDir string

	// Python and Pip are the venv-local binaries. SystemPython is the
	// interpreter used to create the venv in the first place.
	Python       string
	Pip          string
	SystemPython string

	// JobsDir accumulates per-run output directories.
	JobsDir string

	// MarkerPath is the installation completion marker.
	MarkerPath string

	// LockPath is the advisory lock taken by mutating commands.
	LockPath string

	// LogFile is the JSON log written alongside terminal output.
	LogFile string
}

// Resolve builds the Environment from a validated config.
func Resolve(cfg *config.Config) *Environment {
	appDir := filepath.Join(cfg.Workspace, "partfield")
	venvDir := filepath.Join(cfg.Workspace, "partfield-venv")

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.Workspace, "pfpod.log")
	}

	return &Environment{
		Workspace:    cfg.Workspace,
		AppDir:       appDir,
		EntryFile:    filepath.Join(appDir, "partfield_inference.py"),
		ServerFile:   filepath.Join(appDir, "gradio_app.py"),
		DemoConfig:   filepath.Join(appDir, "configs", "final", "demo.yaml"),
		ModelPath:    filepath.Join(appDir, "model", "model_objaverse.ckpt"),
		VenvDir:      venvDir,
		Python:       filepath.Join(venvDir, "bin", "python"),
		Pip:          filepath.Join(venvDir, "bin", "pip"),
		SystemPython: cfg.PythonBin,
		JobsDir:      cfg.JobsDir,
		MarkerPath:   filepath.Join(cfg.Workspace, ".partfield_installed"),
		LockPath:     filepath.Join(cfg.Workspace, ".pfpod.lock"),
		LogFile:      logFile,
	}
}
