package timespec

import (
	"fmt"
	"time"
)

// ParseCutoff parses an age specification into a cutoff instant.
// Supports two formats:
//   - Go duration format: "24h", "90m", "1h30m"
//   - RFC3339 timestamps: "2026-08-29T13:00:00Z"
//
// Duration specifications are relative to now: "24h" means "anything
// last modified more than 24 hours ago". Used by job-directory
// pruning.
func ParseCutoff(spec string) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use a duration like '24h' or RFC3339 like '2026-08-29T13:00:00Z')", spec)
}
