package installer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Salourh/partfield-deploy/internal/environment"
	"github.com/Salourh/partfield-deploy/internal/printer"
)

// phases returns the ordered install state machine. Order matters:
// the dependency groups exist specifically so that packages with
// loose torch constraints can never end up resolving after the
// pinned CUDA build.
func (in *Installer) phases() []Phase {
	return []Phase{
		{
			Name:   "clone-source",
			Remedy: "pfpod install",
			Done:   sourceReady,
			Run:    in.cloneSource,
		},
		{
			Name:   "create-venv",
			Remedy: "pfpod install",
			Done: func(env *environment.Environment) bool {
				return fileExists(env.Python)
			},
			Run: in.createVenv,
		},
		{
			Name:   "install-core-deps",
			Remedy: "pfpod install",
			Run:    in.installCoreDeps,
		},
		{
			Name:   "install-domain-deps",
			Remedy: "pfpod install",
			Run:    in.installDomainDeps,
		},
		{
			Name:   "fetch-model",
			Remedy: "pfpod install",
			Done: func(env *environment.Environment) bool {
				return fileAtLeast(env.ModelPath, in.Cfg.ModelMinBytes)
			},
			Run: in.fetchModel,
		},
		{
			Name:   "verify-install",
			Remedy: "pfpod doctor",
			Run:    in.verifyInstall,
		},
	}
}

// sourceReady is the clone guard: the directory alone is not enough,
// the entry file must be present too. A directory without it is a
// stale or interrupted clone.
func sourceReady(env *environment.Environment) bool {
	return dirExists(env.AppDir) && fileExists(env.EntryFile)
}

func (in *Installer) cloneSource(ctx context.Context) error {
	if dirExists(in.Env.AppDir) {
		// Self-healing: directory exists but the entry file does not.
		// Remove the corrupt copy and reclone.
		in.Log.Warn("source tree missing entry file, recloning", "dir", in.Env.AppDir)
		printer.Warning("existing source tree is corrupt, removing %s\n", in.Env.AppDir)
		if err := os.RemoveAll(in.Env.AppDir); err != nil {
			return fmt.Errorf("failed to remove corrupt source tree: %w", err)
		}
	}

	args := []string{"clone", "--depth", "1"}
	if in.Cfg.RepoBranch != "" {
		args = append(args, "--branch", in.Cfg.RepoBranch)
	}
	args = append(args, in.Cfg.RepoURL, in.Env.AppDir)

	if err := in.Runner.Run(ctx, in.Env.Workspace, "git", args...); err != nil {
		return fmt.Errorf("failed to clone %s: %w", in.Cfg.RepoURL, err)
	}

	if !fileExists(in.Env.EntryFile) {
		return fmt.Errorf("clone succeeded but entry file %s is missing; wrong repo_url?", in.Env.EntryFile)
	}
	return nil
}

func (in *Installer) createVenv(ctx context.Context) error {
	if err := in.Runner.Run(ctx, in.Env.Workspace, in.Env.SystemPython, "-m", "venv", in.Env.VenvDir); err != nil {
		return fmt.Errorf("failed to create venv with %s: %w", in.Env.SystemPython, err)
	}
	if err := in.Runner.Run(ctx, in.Env.Workspace, in.Env.Pip, "install", "--upgrade", "pip", "wheel"); err != nil {
		return fmt.Errorf("failed to upgrade pip: %w", err)
	}
	return nil
}

// installCoreDeps installs the pinned CUDA torch build first, from
// its own index, before anything else can influence resolution.
func (in *Installer) installCoreDeps(ctx context.Context) error {
	pins := in.Cfg.Pins
	return in.pipInstall(ctx, []string{pins.Torch, "--index-url", pins.TorchIndexURL})
}

// installDomainDeps installs the fragile domain pins in order, then
// the GPU extension from the wheel index matched to the torch build,
// then gradio, and finally force-reinstalls the torch pin. The re-pin
// is not redundant: gradio and the domain packages declare loose
// torch constraints and pip will happily swap the CUDA build for a
// CPU one while resolving them.
func (in *Installer) installDomainDeps(ctx context.Context) error {
	pins := in.Cfg.Pins

	for _, pin := range pins.Domain {
		if err := in.pipInstall(ctx, []string{pin}); err != nil {
			return err
		}
	}

	if err := in.pipInstall(ctx, []string{pins.Scatter, "-f", pins.ScatterIndexURL}); err != nil {
		return err
	}

	if err := in.pipInstall(ctx, []string{pins.Gradio}); err != nil {
		return err
	}

	return in.pipInstall(ctx, []string{"--force-reinstall", "--no-deps", pins.Torch, "--index-url", pins.TorchIndexURL})
}

func (in *Installer) pipInstall(ctx context.Context, args []string) error {
	full := append([]string{"install"}, args...)
	in.Log.Info("pip install", "args", strings.Join(args, " "))
	if err := in.Runner.Run(ctx, in.Env.AppDir, in.Env.Pip, full...); err != nil {
		return fmt.Errorf("pip install %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}

// verifyInstall imports every critical dependency in a fresh
// interpreter. Import failures fail the phase; an unqueryable GPU is
// only a warning since installs commonly run on non-GPU build hosts.
func (in *Installer) verifyInstall(ctx context.Context) error {
	for _, mod := range in.Cfg.Pins.CriticalImports {
		script := fmt.Sprintf("import %s; print(getattr(%s, '__version__', 'unknown'))", mod, mod)
		version, err := in.Runner.Output(ctx, in.Env.AppDir, in.Env.Python, "-c", script)
		if err != nil {
			return fmt.Errorf("critical import %q failed: %w", mod, err)
		}
		in.Log.Info("verified import", "module", mod, "version", version)
		printer.Detail("%s %s", mod, version)
	}

	avail, err := in.Runner.Output(ctx, in.Env.AppDir, in.Env.Python, "-c", "import torch; print(torch.cuda.is_available())")
	if err != nil || avail != "True" {
		in.gpuWarned = true
		in.Log.Warn("GPU not queryable from venv", "result", avail, "error", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileAtLeast(path string, minBytes int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() >= minBytes
}
