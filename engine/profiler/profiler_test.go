package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsEachInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(slog.New(slog.NewTextHandler(&out, nil)), time.Second)

	start := time.Unix(100, 0)
	clock := start
	p.now = func() time.Time { return clock }
	p.lastTime = start

	for i := range 9 {
		clock = start.Add(time.Duration(i+1) * 100 * time.Millisecond)
		assert.False(t, p.Tick(i == 4))
	}
	clock = start.Add(time.Second)
	assert.True(t, p.Tick(false))

	assert.Contains(t, out.String(), "fps=9")
	assert.Contains(t, out.String(), "skipped=1")
	assert.Zero(t, p.drawn)
	assert.Zero(t, p.skipped)
}
