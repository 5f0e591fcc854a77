package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The marker records that an install once finished; it does not prove
// the workspace is still intact. Preflight must catch the drift.

func TestPreflight_ModelDeletedAfterInstall(t *testing.T) {
	l, fake := newTestLauncher(t)
	require.NoError(t, os.Remove(l.Env.ModelPath))

	err := l.Prepare(context.Background())
	require.Error(t, err)

	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "model checkpoint not found", pf.Cause)
	assert.Equal(t, "pfpod install", pf.Remedy)

	// Server handoff must never happen past a failed preflight.
	assert.Empty(t, fake.runs)
}

func TestPreflight_TruncatedModel(t *testing.T) {
	l, _ := newTestLauncher(t)
	require.NoError(t, os.WriteFile(l.Env.ModelPath, []byte("tiny"), 0644))

	err := l.Preflight(context.Background())
	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "model checkpoint truncated", pf.Cause)
	assert.Contains(t, pf.Detail, "4 bytes")
}

func TestPreflight_MissingEntryFile(t *testing.T) {
	l, _ := newTestLauncher(t)
	require.NoError(t, os.Remove(l.Env.EntryFile))

	err := l.Preflight(context.Background())
	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "inference entry file not found", pf.Cause)
	assert.Equal(t, "pfpod reset && pfpod install", pf.Remedy)
}

func TestPreflight_MissingVenv(t *testing.T) {
	l, _ := newTestLauncher(t)
	require.NoError(t, os.RemoveAll(l.Env.VenvDir))

	err := l.Preflight(context.Background())
	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "virtualenv not found", pf.Cause)
}

func TestPreflight_BrokenImport(t *testing.T) {
	l, fake := newTestLauncher(t)
	fake.onOutput = func(dir, name string, args []string) (string, error) {
		if len(args) == 2 && args[1] == "import torch_scatter" {
			return "", fmt.Errorf("ModuleNotFoundError: No module named 'torch_scatter'")
		}
		return "", nil
	}

	err := l.Preflight(context.Background())
	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
	assert.Contains(t, pf.Cause, `"torch_scatter"`)
	assert.Equal(t, "pfpod reset && pfpod install", pf.Remedy)
}

func TestPreflight_IntactWorkspacePasses(t *testing.T) {
	l, _ := newTestLauncher(t)
	require.NoError(t, l.Preflight(context.Background()))
}

func TestPreflightError_Unwrapping(t *testing.T) {
	var err error = &PreflightError{Cause: "demo config not found", Detail: "/x"}
	var pf *PreflightError
	require.True(t, errors.As(err, &pf))
	assert.Contains(t, err.Error(), "preflight failed: demo config not found")
}
