package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pfpod.lock")

	release, err := Acquire(path)
	require.NoError(t, err)
	release()

	// Released lock is immediately re-acquirable.
	release, err = Acquire(path)
	require.NoError(t, err)
	release()
}

func TestAcquireContended(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pfpod.lock")

	release, err := Acquire(path)
	require.NoError(t, err)
	defer release()

	_, err = Acquire(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "held by another pfpod process")
}
