package launcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneJobs_RemovesOnlyExpiredDirectories(t *testing.T) {
	l, _ := newTestLauncher(t)
	l.Cfg.JobExpiry = "24h"

	old := filepath.Join(l.Env.JobsDir, "job-old")
	fresh := filepath.Join(l.Env.JobsDir, "job-fresh")
	require.NoError(t, os.MkdirAll(old, 0755))
	require.NoError(t, os.MkdirAll(fresh, 0755))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	assert.Equal(t, 1, l.pruneJobs())
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}

func TestPruneJobs_IgnoresPlainFiles(t *testing.T) {
	l, _ := newTestLauncher(t)
	l.Cfg.JobExpiry = "24h"

	logFile := filepath.Join(l.Env.JobsDir, "server.log")
	require.NoError(t, os.WriteFile(logFile, []byte("old log"), 0644))
	stale := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(logFile, stale, stale))

	assert.Equal(t, 0, l.pruneJobs())
	assert.FileExists(t, logFile)
}

func TestPruneJobs_MissingJobsDirIsANoop(t *testing.T) {
	l, _ := newTestLauncher(t)
	require.NoError(t, os.RemoveAll(l.Env.JobsDir))
	assert.Equal(t, 0, l.pruneJobs())
}

func TestPruneJobs_BadSpecSkipsPruning(t *testing.T) {
	l, _ := newTestLauncher(t)
	l.Cfg.JobExpiry = "next tuesday"

	old := filepath.Join(l.Env.JobsDir, "job-old")
	require.NoError(t, os.MkdirAll(old, 0755))
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	assert.Equal(t, 0, l.pruneJobs())
	assert.DirExists(t, old)
}
