package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTick_ReportsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(slog.New(slog.NewTextHandler(&buf, nil)), time.Second)

	clock := time.Unix(100, 0)
	p.now = func() time.Time { return clock }
	p.Reset()

	for range 59 {
		clock = clock.Add(10 * time.Millisecond)
		_, ok := p.Tick()
		assert.False(t, ok)
	}
	assert.Empty(t, buf.String())

	clock = clock.Add(410 * time.Millisecond)
	stats, ok := p.Tick()
	assert.True(t, ok)
	assert.InDelta(t, 60.0, stats.FPS, 0.001)
	assert.Contains(t, buf.String(), "frame stats")
	assert.Contains(t, buf.String(), "fps=60")

	clock = clock.Add(10 * time.Millisecond)
	_, ok = p.Tick()
	assert.False(t, ok, "a new interval starts after reporting")
}

func TestNewProfiler_Defaults(t *testing.T) {
	p := NewProfiler(nil, 0)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
