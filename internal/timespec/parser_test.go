package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCutoff_Duration(t *testing.T) {
	cutoff, err := ParseCutoff("24h")
	require.NoError(t, err)

	want := time.Now().Add(-24 * time.Hour)
	assert.WithinDuration(t, want, cutoff, 5*time.Second)
}

func TestParseCutoff_RFC3339(t *testing.T) {
	cutoff, err := ParseCutoff("2026-08-29T13:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC), cutoff)
}

func TestParseCutoff_Invalid(t *testing.T) {
	_, err := ParseCutoff("yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time specification")
}

func TestParseCutoff_Empty(t *testing.T) {
	_, err := ParseCutoff("")
	require.Error(t, err)
}
