package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	log := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	log.Info("phase complete", "phase", "clone-source")

	// Human-readable on stderr
	assert.Contains(t, stderr.String(), "phase complete")
	assert.Contains(t, stderr.String(), "phase=clone-source")

	// Structured JSON in the file channel
	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "phase complete", entry["msg"])
	assert.Equal(t, "clone-source", entry["phase"])
}

func TestSetupLoggerWithWriters_RespectsLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	log := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	log.Debug("pip output line")
	log.Info("phase complete")

	assert.Empty(t, stderr.String())
	assert.Empty(t, file.String())
}

func TestSetupLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pfpod.log")

	log, cleanup := SetupLogger(path, slog.LevelInfo)
	log.Info("first run")
	require.NoError(t, cleanup())

	log, cleanup = SetupLogger(path, slog.LevelInfo)
	log.Info("second run")
	require.NoError(t, cleanup())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "first run")
	assert.Contains(t, string(content), "second run")
}

func TestSetupLogger_UnwritableFileFallsBackToStderr(t *testing.T) {
	log, cleanup := SetupLogger(filepath.Join(t.TempDir(), "no", "such", "dir", "pfpod.log"), slog.LevelInfo)
	require.NotNil(t, log)
	require.NoError(t, cleanup())
}
