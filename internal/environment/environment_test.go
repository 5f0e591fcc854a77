package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Salourh/partfield-deploy/internal/config"
)

func TestResolve_Layout(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace = "/data"
	cfg.JobsDir = "/data/jobs"

	env := Resolve(cfg)

	assert.Equal(t, "/data", env.Workspace)
	assert.Equal(t, "/data/partfield", env.AppDir)
	assert.Equal(t, "/data/partfield/partfield_inference.py", env.EntryFile)
	assert.Equal(t, "/data/partfield/gradio_app.py", env.ServerFile)
	assert.Equal(t, "/data/partfield/configs/final/demo.yaml", env.DemoConfig)
	assert.Equal(t, "/data/partfield/model/model_objaverse.ckpt", env.ModelPath)
	assert.Equal(t, "/data/partfield-venv", env.VenvDir)
	assert.Equal(t, "/data/partfield-venv/bin/python", env.Python)
	assert.Equal(t, "/data/partfield-venv/bin/pip", env.Pip)
	assert.Equal(t, "/data/jobs", env.JobsDir)
	assert.Equal(t, "/data/.partfield_installed", env.MarkerPath)
	assert.Equal(t, "/data/.pfpod.lock", env.LockPath)
	assert.Equal(t, "/data/pfpod.log", env.LogFile)
}

func TestResolve_ExplicitLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = "/tmp/custom.log"

	env := Resolve(cfg)
	assert.Equal(t, "/tmp/custom.log", env.LogFile)
}
