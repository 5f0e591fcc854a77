package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/workspace", cfg.Workspace)
	assert.Equal(t, 7860, cfg.Port)
	assert.Equal(t, int64(100*1024*1024), cfg.ModelMinBytes)
	assert.NotEmpty(t, cfg.Pins.Torch)
	assert.NotEmpty(t, cfg.Pins.CriticalImports)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Port, cfg.Port)
}

func TestLoad_YamlOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	content := `
workspace: /data
port: 8080
job_expiry: 48h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.Workspace)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 48*time.Hour, cfg.JobExpiryDuration())
	// Untouched fields keep their defaults
	assert.Equal(t, Default().ModelURL, cfg.ModelURL)
}

func TestLoad_DownloadBlockParsesDurations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	content := `
download:
  max_retries: 5
  initial_interval: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint(5), cfg.Download.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Download.InitialInterval)
	// Absent key keeps the default
	assert.Equal(t, Default().Download.Timeout, cfg.Download.Timeout)
}

func TestLoad_BadDownloadDurationFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  timeout: soon\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download.timeout")
}

func TestLoad_EnvironmentBeatsYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\n"), 0644))

	t.Setenv("PFPOD_PORT", "9000")
	t.Setenv("PFPOD_MODEL_MIN_BYTES", "1234")
	t.Setenv("PFPOD_SHARE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, int64(1234), cfg.ModelMinBytes)
	assert.True(t, cfg.Share)
}

func TestLoad_DotenvFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PFPOD_JOBS_DIR=/data/jobs\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/jobs", cfg.JobsDir)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative workspace", func(c *Config) { c.Workspace = "workspace" }, "absolute"},
		{"empty workspace", func(c *Config) { c.Workspace = "" }, "workspace is required"},
		{"bad port", func(c *Config) { c.Port = 0 }, "port"},
		{"colliding ports", func(c *Config) { c.HealthPort = c.Port }, "must differ"},
		{"zero threshold", func(c *Config) { c.ModelMinBytes = 0 }, "model_min_bytes"},
		{"bad expiry", func(c *Config) { c.JobExpiry = "yesterday" }, "job_expiry"},
		{"missing torch pin", func(c *Config) { c.Pins.Torch = "" }, "pin table"},
		{"no critical imports", func(c *Config) { c.Pins.CriticalImports = nil }, "critical import"},
		{"no repo", func(c *Config) { c.RepoURL = "" }, "repo_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidYamlFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pfpod.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]string{
		"debug": "DEBUG", "INFO": "INFO", "warn": "WARN", "error": "ERROR", "bogus": "INFO",
	} {
		level := ParseLogLevel(input)
		assert.Equal(t, want, level.String(), "input %q", input)
	}
}
