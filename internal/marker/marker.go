// Package marker manages the installation completion marker. The
// marker's presence is the single source of truth for "installation
// complete": it is written as the final action of a successful install
// and removed only by an explicit `pfpod reset`.
package marker

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is bumped when the marker layout changes in a way the
// launcher cares about.
const SchemaVersion = 3

const label = "partfield-deploy"

// Record is the parsed content of the marker file.
type Record struct {
	SchemaVersion int
	InstalledAt   time.Time
	RunID         string
	VenvPath      string
	ModelPath     string
}

// Exists reports whether the marker file is present.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Write persists the record atomically: the full content goes to a
// temporary file which is then renamed into place, so a concurrent
// reader never observes a partially written marker.
func Write(path string, rec Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%d\n", label, rec.SchemaVersion)
	fmt.Fprintf(&b, "installed_at: %s\n", rec.InstalledAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "run_id: %s\n", rec.RunID)
	fmt.Fprintf(&b, "venv: %s\n", rec.VenvPath)
	fmt.Fprintf(&b, "model: %s\n", rec.ModelPath)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize marker: %w", err)
	}
	return nil
}

// Read parses the marker file. Unknown trailing lines are ignored so
// newer markers stay readable by older binaries.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("marker file is empty")
	}

	rec := &Record{}

	header := strings.TrimSpace(lines[0])
	prefix := label + " v"
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("unrecognized marker header: %q", header)
	}
	v, err := strconv.Atoi(strings.TrimPrefix(header, prefix))
	if err != nil {
		return nil, fmt.Errorf("invalid marker schema version in %q", header)
	}
	rec.SchemaVersion = v

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "installed_at":
			// value contains a colon, Cut split too early
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(strings.TrimPrefix(line, "installed_at:"))); err == nil {
				rec.InstalledAt = t
			}
		case "run_id":
			rec.RunID = value
		case "venv":
			rec.VenvPath = value
		case "model":
			rec.ModelPath = value
		}
	}

	return rec, nil
}

// Remove deletes the marker file. Missing marker is not an error; the
// operator may call reset twice.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker: %w", err)
	}
	return nil
}
