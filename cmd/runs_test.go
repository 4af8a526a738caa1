package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadflow-cli/internal/history"
)

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 6, 15, 10, 30, 0, 0, time.Local)
	runs := []history.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Command:    "validate",
			Input:      "leads.json",
			Total:      200,
			Counts:     map[string]int{"success": 180, "timeout": 20},
			DurationMS: 95000,
			StartedAt:  started,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Command:   "ads",
			Input:     "/very/long/path/to/some/deeply/nested/leads.csv",
			Total:     50,
			Counts:    map[string]int{"success": 48},
			CostUSD:   0.03,
			StartedAt: started.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "validate")
	assert.Contains(t, output, "180")
	assert.Contains(t, output, "$0.03")
	assert.Contains(t, output, "2026-06-15 10:30")
	assert.Contains(t, output, "1m35s")
	// Long inputs are truncated from the left so the filename stays visible.
	assert.Contains(t, output, "...")
	assert.Contains(t, output, "leads.csv")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
