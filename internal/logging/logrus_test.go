package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{name: "debug", level: "debug", want: logrus.DebugLevel},
		{name: "warn", level: "warn", want: logrus.WarnLevel},
		{name: "unknown falls back to info", level: "loud", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, ok := New(tt.level, "text", &buf).(*logrusLogger)
			require.True(t, ok)
			assert.Equal(t, tt.want, logger.entry.Logger.GetLevel())
		})
	}
}

func TestNew_UnknownLevelIsReported(t *testing.T) {
	var buf bytes.Buffer
	New("loud", "text", &buf)
	assert.Contains(t, buf.String(), "unknown log level")
}

func TestLogrusLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.WithField(FieldUser, "alice").Info("term recorded", F(FieldTerm, "такси"), F(FieldCount, 2))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "term recorded", line["msg"])
	assert.Equal(t, "alice", line[FieldUser])
	assert.Equal(t, "такси", line[FieldTerm])
	assert.InDelta(t, 2, line[FieldCount], 0)
}

func TestLogrusLogger_DerivedLoggersKeepParentClean(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.
		WithFields(F(FieldStage, "sweep")).
		WithError(errors.New("database is locked")).
		Error("assign failed")
	logger.Info("plain")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var failed, plain map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &failed))
	require.NoError(t, json.Unmarshal(lines[1], &plain))
	assert.Equal(t, "sweep", failed[FieldStage])
	assert.Equal(t, "database is locked", failed["error"])
	assert.NotContains(t, plain, FieldStage)
	assert.NotContains(t, plain, "error")
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.WithError(errors.New("x")).Error("ignored")
		logger.WithField("k", "v").Debug("ignored")
	})
}

func TestMockLogger_SharesEntries(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithField(FieldTerm, "minsk")
	child.Info("assigned")
	mock.WithError(errors.New("boom")).Warn("retrying")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, []Field{{Key: FieldTerm, Value: "minsk"}}, entries[0].Fields)
	assert.EqualError(t, entries[1].Error, "boom")
	assert.True(t, mock.HasEntry("WARN", "retrying"))
	assert.Len(t, mock.GetEntriesByLevel("INFO"), 1)
}

func TestLoggerImplementations(t *testing.T) {
	var _ Logger = (*logrusLogger)(nil)
	var _ Logger = (*MockLogger)(nil)
}
