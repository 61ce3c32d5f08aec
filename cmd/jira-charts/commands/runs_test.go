package commands

import (
	"bytes"
	"testing"

	"jira-charts/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	runs := []snapshot.Run{
		{Folder: "20240201_093000", Complete: true, TotalIssues: 42},
		{Folder: "20240131_120000"},
	}

	require.NoError(t, printRuns(&buf, runs, false))

	out := buf.String()
	assert.Contains(t, out, "20240201_093000")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "incomplete")
	assert.Contains(t, out, "2 snapshots")
}

func TestPrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, nil, false))
	assert.Contains(t, buf.String(), "0 snapshots")
}
