package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/orientation-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Status:      model.RunStatusComplete,
			Summary:     &model.Summary{Total: 1200, KnownPercent: 91.25, Imputed: 120},
			CreatedAt:   now,
			UpdatedAt:   done,
			CompletedAt: &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "KNOWN")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "1200")
	assert.Contains(t, output, "91.2%")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestFormatResults(t *testing.T) {
	rows := []model.PropertyResult{
		{Seq: 0, Key: "GAVIC1", Address: "1 High St", Orientation: "E"},
		{Seq: 1, Key: "GAVIC2", Address: "Unknown Address", Orientation: "E", Reason: "out_of_radius", Imputed: true},
	}

	var buf bytes.Buffer
	formatResults(&buf, rows)

	output := buf.String()
	assert.Contains(t, output, "ORIENTATION")
	assert.Contains(t, output, "1 High St")
	assert.Contains(t, output, "E*")
	assert.Contains(t, output, "out_of_radius")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
