package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full pfpod configuration. Values are resolved in three
// layers: built-in defaults, an optional pfpod.yml, then PFPOD_*
// environment variables (highest precedence). A .env file next to the
// config file is loaded into the environment before the override pass.
type Config struct {
	// Workspace is the persistent volume root. Everything pfpod
	// installs lives under it; OS-level packages do not.
	Workspace string `yaml:"workspace"`

	// Source of the PartField application.
	RepoURL    string `yaml:"repo_url"`
	RepoBranch string `yaml:"repo_branch,omitempty"`

	// PythonBin is the interpreter used to create the venv.
	PythonBin string `yaml:"python_bin"`

	// Server options passed through to the Gradio app.
	Port    int    `yaml:"port"`
	JobsDir string `yaml:"jobs_dir"`
	Share   bool   `yaml:"share,omitempty"`

	// JobExpiry is how long finished job directories are kept before
	// launch-time pruning removes them. Duration string ("24h").
	JobExpiry string `yaml:"job_expiry"`

	// Model artifact channels and acceptance threshold.
	ModelURL         string `yaml:"model_url"`
	ModelFallbackURL string `yaml:"model_fallback_url"`
	ModelMinBytes    int64  `yaml:"model_min_bytes"`

	// Download retry policy for the model artifact.
	Download DownloadConfig `yaml:"download,omitempty"`

	// AptPackages are the shared libraries the pod image loses on
	// every restart; launch reinstalls them best-effort.
	AptPackages []string `yaml:"apt_packages,omitempty"`

	// HealthPort serves the awaiting-operator health endpoint.
	HealthPort int `yaml:"health_port"`

	// Pins is the dependency pin table. Order is load-bearing: see
	// Pins.InstallGroups.
	Pins PinTable `yaml:"pins,omitempty"`

	// Logging
	LogFile  string `yaml:"log_file,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// DownloadConfig controls retry behavior for the model download.
// Kept configurable rather than hardcoded; operators on flaky pod
// networks raise MaxRetries.
type DownloadConfig struct {
	MaxRetries      uint
	InitialInterval time.Duration
	Timeout         time.Duration
}

// UnmarshalYAML accepts duration strings ("2s", "30m") and leaves
// defaults in place for absent keys.
func (c *DownloadConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxRetries      uint   `yaml:"max_retries"`
		InitialInterval string `yaml:"initial_interval"`
		Timeout         string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MaxRetries > 0 {
		c.MaxRetries = raw.MaxRetries
	}
	if raw.InitialInterval != "" {
		d, err := time.ParseDuration(raw.InitialInterval)
		if err != nil {
			return fmt.Errorf("invalid download.initial_interval %q: %w", raw.InitialInterval, err)
		}
		c.InitialInterval = d
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid download.timeout %q: %w", raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// PinTable is the exact-version dependency table the installer applies.
type PinTable struct {
	// Torch is the GPU numeric base library. Installed first, and
	// force-reinstalled again after everything else: several domain
	// packages declare loose torch constraints that would silently
	// replace the CUDA build if torch were left to the resolver.
	Torch         string `yaml:"torch"`
	TorchIndexURL string `yaml:"torch_index_url"`

	// Domain holds the fragile domain pins, installed in order.
	Domain []string `yaml:"domain"`

	// Scatter is the GPU-accelerated extension. Its wheel index must
	// match the torch build tag exactly.
	Scatter         string `yaml:"scatter"`
	ScatterIndexURL string `yaml:"scatter_index_url"`

	// Gradio is installed last among the groups (before the torch
	// re-pin); its transitive deps are the usual torch-downgrade
	// culprits.
	Gradio string `yaml:"gradio"`

	// CriticalImports are module names verified in a fresh
	// interpreter after install and during launch preflight.
	CriticalImports []string `yaml:"critical_imports"`
}

// Default returns the built-in configuration, matching the RunPod
// PartField template.
func Default() *Config {
	return &Config{
		Workspace:        "/workspace",
		RepoURL:          "https://github.com/nv-tlabs/PartField.git",
		PythonBin:        "python3.10",
		Port:             7860,
		JobsDir:          "/workspace/jobs",
		JobExpiry:        "24h",
		ModelURL:         "https://huggingface.co/mikaelaangel/partfield-ckpt/resolve/main/model_objaverse.ckpt",
		ModelFallbackURL: "https://huggingface.co/nvidia/PartField/resolve/main/model_objaverse.ckpt",
		ModelMinBytes:    100 * 1024 * 1024,
		Download: DownloadConfig{
			MaxRetries:      3,
			InitialInterval: 2 * time.Second,
			Timeout:         30 * time.Minute,
		},
		AptPackages: []string{"libgl1", "libglib2.0-0", "libx11-6", "libxrender1"},
		HealthPort:  9801,
		Pins: PinTable{
			Torch:         "torch==2.4.1+cu121",
			TorchIndexURL: "https://download.pytorch.org/whl/cu121",
			Domain: []string{
				"numpy<2",
				"pytorch-lightning==2.2.4",
				"h5py==3.11.0",
				"trimesh==4.4.9",
				"scikit-learn==1.5.1",
				"potpourri3d==1.1.0",
				"libigl==2.5.1",
			},
			Scatter:         "torch-scatter==2.1.2",
			ScatterIndexURL: "https://data.pyg.org/whl/torch-2.4.1+cu121.html",
			Gradio:          "gradio==4.44.0",
			CriticalImports: []string{
				"torch",
				"numpy",
				"pytorch_lightning",
				"trimesh",
				"sklearn",
				"torch_scatter",
				"gradio",
			},
		},
		LogLevel: "INFO",
	}
}

// Load resolves the configuration: defaults, then the yaml file at
// path (skipped silently if absent), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// .env sits next to pfpod.yml; missing is fine
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays PFPOD_* environment variables onto the config.
func (c *Config) applyEnv() {
	c.Workspace = getEnv("PFPOD_WORKSPACE", c.Workspace)
	c.RepoURL = getEnv("PFPOD_REPO_URL", c.RepoURL)
	c.RepoBranch = getEnv("PFPOD_REPO_BRANCH", c.RepoBranch)
	c.PythonBin = getEnv("PFPOD_PYTHON_BIN", c.PythonBin)
	c.JobsDir = getEnv("PFPOD_JOBS_DIR", c.JobsDir)
	c.JobExpiry = getEnv("PFPOD_JOB_EXPIRY", c.JobExpiry)
	c.ModelURL = getEnv("PFPOD_MODEL_URL", c.ModelURL)
	c.ModelFallbackURL = getEnv("PFPOD_MODEL_FALLBACK_URL", c.ModelFallbackURL)
	c.LogFile = getEnv("PFPOD_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("PFPOD_LOG_LEVEL", c.LogLevel)

	c.Port = getEnvInt("PFPOD_PORT", c.Port)
	c.HealthPort = getEnvInt("PFPOD_HEALTH_PORT", c.HealthPort)

	if v := os.Getenv("PFPOD_MODEL_MIN_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ModelMinBytes = n
		}
	}
	if v := os.Getenv("PFPOD_DOWNLOAD_RETRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Download.MaxRetries = uint(n)
		}
	}
	if v := os.Getenv("PFPOD_SHARE"); v != "" {
		c.Share = v == "true" || v == "1"
	}
}

// Validate performs strict validation on the resolved configuration.
func (c *Config) Validate() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}
	if !filepath.IsAbs(c.Workspace) {
		return fmt.Errorf("workspace must be an absolute path, got: %s", c.Workspace)
	}
	if c.RepoURL == "" {
		return fmt.Errorf("repo_url is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return fmt.Errorf("health_port must be 1-65535, got %d", c.HealthPort)
	}
	if c.Port == c.HealthPort {
		return fmt.Errorf("port and health_port must differ (both %d)", c.Port)
	}
	if c.ModelMinBytes <= 0 {
		return fmt.Errorf("model_min_bytes must be > 0, got %d", c.ModelMinBytes)
	}
	if c.ModelURL == "" {
		return fmt.Errorf("model_url is required")
	}
	if _, err := time.ParseDuration(c.JobExpiry); err != nil {
		return fmt.Errorf("invalid job_expiry %q: %w", c.JobExpiry, err)
	}
	if c.Pins.Torch == "" || c.Pins.Gradio == "" || c.Pins.Scatter == "" {
		return fmt.Errorf("pin table incomplete: torch, scatter and gradio pins are all required")
	}
	if len(c.Pins.CriticalImports) == 0 {
		return fmt.Errorf("pin table must list at least one critical import")
	}
	return nil
}

// JobExpiryDuration returns the parsed job_expiry value. Validate
// guarantees it parses.
func (c *Config) JobExpiryDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobExpiry)
	return d
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
