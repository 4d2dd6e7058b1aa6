package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "ID", "Term", "Count")
	table.Row(1, "минск", 3)
	table.Row(2, "coffeebar")
	require.NoError(t, table.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Term")
	assert.Contains(t, lines[1], "────")
	assert.Contains(t, lines[2], "минск")
	assert.Contains(t, lines[2], "3")
	assert.Contains(t, lines[3], "coffeebar")
}

func TestFormatConfidence(t *testing.T) {
	assert.Contains(t, FormatConfidence(0.9, 0.6), "0.90")
	assert.Contains(t, FormatConfidence(0.3, 0.6), "0.30")
	assert.Contains(t, FormatConfidence(0, 0.6), "0.00")
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), SuccessIcon)
	assert.Contains(t, FormatError("failed"), ErrorIcon)
	assert.Contains(t, FormatTitle("Terms"), "Terms")
	assert.Contains(t, RenderBox("Import", "3 added"), "3 added")
}

func TestNewProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 2, "Importing")
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))
	assert.True(t, bar.IsFinished())
}
