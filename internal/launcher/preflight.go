package launcher

import (
	"context"
	"fmt"
	"os"
)

// PreflightError names the specific precondition that failed and the
// command that fixes it. The launcher never starts the server past a
// failed preflight, regardless of marker state.
type PreflightError struct {
	Cause  string
	Detail string
	Remedy string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight failed: %s (%s)", e.Cause, e.Detail)
}

// Preflight re-validates everything the server needs before handoff.
// The marker says the install finished once; preflight says the
// workspace is still intact now.
func (l *Launcher) Preflight(ctx context.Context) error {
	type check struct {
		cause  string
		remedy string
		ok     func() (bool, string)
	}

	checks := []check{
		{
			cause:  "application source not found",
			remedy: "pfpod install",
			ok: func() (bool, string) {
				return dirExists(l.Env.AppDir), l.Env.AppDir
			},
		},
		{
			cause:  "inference entry file not found",
			remedy: "pfpod reset && pfpod install",
			ok: func() (bool, string) {
				return fileExists(l.Env.EntryFile), l.Env.EntryFile
			},
		},
		{
			cause:  "gradio app not found",
			remedy: "pfpod reset && pfpod install",
			ok: func() (bool, string) {
				return fileExists(l.Env.ServerFile), l.Env.ServerFile
			},
		},
		{
			cause:  "demo config not found",
			remedy: "pfpod reset && pfpod install",
			ok: func() (bool, string) {
				return fileExists(l.Env.DemoConfig), l.Env.DemoConfig
			},
		},
		{
			cause:  "model checkpoint not found",
			remedy: "pfpod install",
			ok: func() (bool, string) {
				return fileExists(l.Env.ModelPath), l.Env.ModelPath
			},
		},
		{
			cause:  "model checkpoint truncated",
			remedy: "pfpod install",
			ok: func() (bool, string) {
				info, err := os.Stat(l.Env.ModelPath)
				if err != nil {
					return false, l.Env.ModelPath
				}
				return info.Size() >= l.Cfg.ModelMinBytes,
					fmt.Sprintf("%s: %d bytes, need >= %d", l.Env.ModelPath, info.Size(), l.Cfg.ModelMinBytes)
			},
		},
		{
			cause:  "virtualenv not found",
			remedy: "pfpod install",
			ok: func() (bool, string) {
				return fileExists(l.Env.Python), l.Env.Python
			},
		},
	}

	for _, c := range checks {
		ok, detail := c.ok()
		if !ok {
			l.Log.Error("preflight check failed", "cause", c.cause, "detail", detail)
			return &PreflightError{Cause: c.cause, Detail: detail, Remedy: c.remedy}
		}
	}

	// Critical imports in-process (venv interpreter). Catches the
	// pip-resolver drift that file checks cannot see.
	for _, mod := range l.Cfg.Pins.CriticalImports {
		script := fmt.Sprintf("import %s", mod)
		if _, err := l.Runner.Output(ctx, l.Env.AppDir, l.Env.Python, "-c", script); err != nil {
			l.Log.Error("preflight import failed", "module", mod, "error", err)
			return &PreflightError{
				Cause:  fmt.Sprintf("critical import %q failed", mod),
				Detail: err.Error(),
				Remedy: "pfpod reset && pfpod install",
			}
		}
	}

	l.Log.Info("preflight passed")
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
