// Package lockfile serializes mutating pfpod commands. Install and
// launch both take an exclusive advisory lock on the workspace before
// touching it; a second concurrent run is rejected with a named error
// instead of racing on the marker and venv.
package lockfile

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Acquire takes the exclusive workspace lock without blocking.
// Returns a release function on success.
func Acquire(path string) (func(), error) {
	lock := flock.New(path)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire workspace lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("workspace lock %s is held by another pfpod process", path)
	}

	return func() { _ = lock.Unlock() }, nil
}
