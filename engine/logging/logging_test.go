package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewHandler_PlainOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Warn("model reload failed", "path", "a.glb")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="model reload failed"`)
	assert.Contains(t, out, "path=a.glb")
	assert.NotContains(t, out, "\x1b[")
}

func TestColorLevel(t *testing.T) {
	assert.Equal(t, "ERROR", colorLevel(termenv.Ascii, slog.LevelError))

	colored := colorLevel(termenv.ANSI, slog.LevelError)
	assert.Contains(t, colored, "ERROR")
	assert.Contains(t, colored, "\x1b[")
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := Setup(&buf, "nope")
	assert.Error(t, err)
	logger.Info("still logs")
	assert.Contains(t, buf.String(), "still logs")
	assert.Same(t, logger, slog.Default())
}
