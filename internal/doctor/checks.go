package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Salourh/partfield-deploy/internal/marker"
)

const (
	diskFailBytes = 5 * 1024 * 1024 * 1024
	diskWarnBytes = 20 * 1024 * 1024 * 1024
)

func (d *Doctor) checkHost(ctx context.Context) Result {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return warnf("host", "could not read host info: %v", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return okf("host", "%s %s", info.Platform, info.PlatformVersion)
	}
	return okf("host", "%s %s, %.1f GiB RAM", info.Platform, info.PlatformVersion,
		float64(vm.Total)/(1024*1024*1024))
}

func (d *Doctor) checkDiskSpace(ctx context.Context) Result {
	usage, err := disk.UsageWithContext(ctx, d.Env.Workspace)
	if err != nil {
		return warnf("disk-space", "could not stat %s: %v", d.Env.Workspace, err)
	}
	free := float64(usage.Free) / (1024 * 1024 * 1024)
	switch {
	case usage.Free < diskFailBytes:
		return failf("disk-space", "%.1f GiB free on %s (need at least 5 GiB)", free, d.Env.Workspace)
	case usage.Free < diskWarnBytes:
		return warnf("disk-space", "%.1f GiB free on %s (model + deps need ~20 GiB)", free, d.Env.Workspace)
	}
	return okf("disk-space", "%.1f GiB free on %s", free, d.Env.Workspace)
}

// checkGPUHardware asks the driver directly. Absence is a warning,
// not a failure: doctor may legitimately run on a CPU-only build
// host.
func (d *Doctor) checkGPUHardware(ctx context.Context) Result {
	out, err := d.Runner.Output(ctx, "", "nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader")
	if err != nil {
		return warnf("gpu", "nvidia-smi not available: %v", err)
	}
	return okf("gpu", strings.ReplaceAll(out, "\n", "; "))
}

func (d *Doctor) checkMarker(ctx context.Context) Result {
	if !marker.Exists(d.Env.MarkerPath) {
		return failf("marker", "no installation marker at %s", d.Env.MarkerPath)
	}
	rec, err := marker.Read(d.Env.MarkerPath)
	if err != nil {
		return failf("marker", "marker unreadable: %v", err)
	}
	return okf("marker", "schema v%d, installed %s", rec.SchemaVersion,
		rec.InstalledAt.Format(time.RFC3339))
}

func (d *Doctor) checkWorkspaceFiles(ctx context.Context) Result {
	required := map[string]string{
		"app dir":     d.Env.AppDir,
		"entry file":  d.Env.EntryFile,
		"gradio app":  d.Env.ServerFile,
		"demo config": d.Env.DemoConfig,
	}
	var missing []string
	for name, path := range required {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", name, path))
		}
	}
	if len(missing) > 0 {
		return failf("workspace-files", "missing: %s", strings.Join(missing, ", "))
	}

	detail := "all critical files present"
	// Best effort: report which revision of the app is deployed.
	if rev, err := d.Runner.Output(ctx, d.Env.AppDir, "git", "rev-parse", "--short", "HEAD"); err == nil {
		detail = fmt.Sprintf("all critical files present (source at %s)", rev)
	}
	return okf("workspace-files", detail)
}

func (d *Doctor) checkModel(ctx context.Context) Result {
	info, err := os.Stat(d.Env.ModelPath)
	if err != nil {
		return failf("model-checkpoint", "not found at %s", d.Env.ModelPath)
	}
	if info.Size() < d.Cfg.ModelMinBytes {
		return failf("model-checkpoint", "%d bytes, below minimum %d (truncated download?)",
			info.Size(), d.Cfg.ModelMinBytes)
	}
	return okf("model-checkpoint", "%.1f MiB at %s", float64(info.Size())/(1024*1024), d.Env.ModelPath)
}

func (d *Doctor) checkVenv(ctx context.Context) Result {
	if _, err := os.Stat(d.Env.Python); err != nil {
		return failf("virtualenv", "no interpreter at %s", d.Env.Python)
	}
	out, err := d.Runner.Output(ctx, "", d.Env.Python, "--version")
	if err != nil {
		return failf("virtualenv", "interpreter present but not runnable: %v", err)
	}
	return okf("virtualenv", "%s at %s", out, d.Env.VenvDir)
}

func (d *Doctor) checkImports(ctx context.Context) Result {
	if _, err := os.Stat(d.Env.Python); err != nil {
		return failf("python-imports", "skipped: no virtualenv interpreter")
	}

	var versions, failures []string
	for _, mod := range d.Cfg.Pins.CriticalImports {
		script := fmt.Sprintf("import %s; print(getattr(%s, '__version__', 'unknown'))", mod, mod)
		out, err := d.Runner.Output(ctx, d.Env.AppDir, d.Env.Python, "-c", script)
		if err != nil {
			failures = append(failures, mod)
			continue
		}
		versions = append(versions, fmt.Sprintf("%s %s", mod, out))
	}
	if len(failures) > 0 {
		return failf("python-imports", "failed: %s", strings.Join(failures, ", "))
	}
	return okf("python-imports", strings.Join(versions, ", "))
}

func (d *Doctor) checkGPUFromVenv(ctx context.Context) Result {
	if _, err := os.Stat(d.Env.Python); err != nil {
		return warnf("gpu-from-venv", "skipped: no virtualenv interpreter")
	}
	out, err := d.Runner.Output(ctx, d.Env.AppDir, d.Env.Python, "-c",
		"import torch; print(torch.cuda.is_available())")
	if err != nil {
		return warnf("gpu-from-venv", "torch query failed: %v", err)
	}
	if out != "True" {
		return warnf("gpu-from-venv", "torch.cuda.is_available() = %s", out)
	}
	return okf("gpu-from-venv", "CUDA available from the venv")
}

func (d *Doctor) checkNetworkSource(ctx context.Context) Result {
	return d.reachability(ctx, "network-source", d.Cfg.RepoURL)
}

func (d *Doctor) checkNetworkModelHost(ctx context.Context) Result {
	return d.reachability(ctx, "network-model-host", d.Cfg.ModelURL)
}

// reachability probes the host behind a configured URL. Warnings
// only: a completed install serves fine offline.
func (d *Doctor) reachability(ctx context.Context, name, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return warnf(name, "unparseable URL %q", rawURL)
	}
	target := fmt.Sprintf("%s://%s/", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return warnf(name, "bad probe request: %v", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return warnf(name, "%s unreachable: %v", u.Host, err)
	}
	resp.Body.Close()
	return okf(name, "%s reachable (%s)", u.Host, resp.Status)
}

func (d *Doctor) checkServerPort(ctx context.Context) Result {
	addr := fmt.Sprintf("127.0.0.1:%d", d.Cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return warnf("server-port", "nothing listening on %s", addr)
	}
	conn.Close()
	return okf("server-port", "%s accepting connections", addr)
}

func (d *Doctor) checkServerProcess(ctx context.Context) Result {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return warnf("server-process", "could not list processes: %v", err)
	}
	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, "gradio_app.py") {
			return okf("server-process", "running (pid %d)", p.Pid)
		}
	}
	return warnf("server-process", "gradio_app.py is not running")
}
