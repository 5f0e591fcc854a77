package launcher

import (
	"os"
	"path/filepath"

	"github.com/Salourh/partfield-deploy/internal/timespec"
)

// pruneJobs removes job output directories older than the configured
// expiry. Each inference run leaves a per-run subdirectory under the
// jobs dir; nothing else cleans them up on a long-lived pod.
func (l *Launcher) pruneJobs() int {
	cutoff, err := timespec.ParseCutoff(l.Cfg.JobExpiry)
	if err != nil {
		// Validate catches this at config load; belt and braces here.
		l.Log.Warn("invalid job_expiry, skipping prune", "value", l.Cfg.JobExpiry)
		return 0
	}

	entries, err := os.ReadDir(l.Env.JobsDir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(l.Env.JobsDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				l.Log.Warn("failed to prune job directory", "path", path, "error", err)
				continue
			}
			l.Log.Info("pruned expired job directory", "path", path)
			removed++
		}
	}
	return removed
}
