package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"invalid": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInit(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
		t.Run("Level_"+level, func(t *testing.T) {
			Init(level)
			assert.NotNil(t, Get())
		})
	}
}

func TestLogMethodsWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	Set(New(&buf, "debug"))
	t.Cleanup(func() { Init("info") })

	Debug("debug message", "key", "value")
	Info("info message")
	Warn("warn message")
	Error("error message", "error", "boom")
	With("job", "SD-1").Info("scoped message")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 5)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, "debug message", first["msg"])
	assert.Equal(t, "value", first["key"])

	var last map[string]any
	require.NoError(t, json.Unmarshal(lines[4], &last))
	assert.Equal(t, "SD-1", last["job"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Set(New(&buf, "warn"))
	t.Cleanup(func() { Init("info") })

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
