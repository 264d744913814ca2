package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/common"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/scene"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow is a headless window.Window that appends to a shared event log.
type fakeWindow struct {
	events     *[]string
	width      int
	height     int
	polls      int
	closeAfter int
	closed     bool
	onResize   func(width, height int)
	onKey      func(keyCode uint32)
	onPoll     func(polls int)
}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(func(keyCode uint32))            {}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return &wgpu.SurfaceDescriptor{Label: "fake window"}
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	if w.onPoll != nil {
		w.onPoll(w.polls)
	}
	if w.closeAfter > 0 && w.polls >= w.closeAfter {
		w.closed = true
	}
}

func (w *fakeWindow) ShouldClose() bool { return w.closed }
func (w *fakeWindow) RequestClose()     { w.closed = true }
func (w *fakeWindow) Time() float64     { return float64(w.polls) / 60 }
func (w *fakeWindow) Width() int        { return w.width }
func (w *fakeWindow) Height() int       { return w.height }
func (w *fakeWindow) Release()          { *w.events = append(*w.events, "window") }

func newFixture(events *[]string) *fakeWindow {
	return &fakeWindow{events: events, width: 640, height: 480}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, rec *gputest.Recorder, w *fakeWindow, name string, options ...EngineBuilderOption) Engine {
	t.Helper()
	s, err := scene.New(name)
	require.NoError(t, err)
	options = append([]EngineBuilderOption{WithWindow(w), WithScene(s), WithLogger(quiet())}, options...)
	e, err := NewEngine(context.Background(), rec, options...)
	require.NoError(t, err)
	return e
}

func TestRunStopsAfterFrameCount(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	e := newTestEngine(t, rec, w, "quad", WithFrameCount(3))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, w.polls)
	assert.Equal(t, 3, rec.Presents())
	assert.Equal(t, renderer.FrameStats{Drawn: 3}, e.Renderer().Stats())

	e.Release()
	assert.Empty(t, rec.Outstanding())
	assert.Empty(t, rec.DoubleReleases())
}

func TestRunStopsWhenWindowCloses(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	w.closeAfter = 4
	e := newTestEngine(t, rec, w, "triangle")
	defer e.Release()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, rec.Presents(), "the poll that closes the window draws nothing")
}

func TestRunContinuesAfterSkippedFrames(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	rec.AcquireErr = func(call int) error {
		if call%2 == 0 {
			return errors.New("surface outdated")
		}
		return nil
	}
	w := newFixture(&events)
	e := newTestEngine(t, rec, w, "animated", WithFrameCount(6), WithProfiling(time.Hour))
	defer e.Release()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, renderer.FrameStats{Drawn: 3, Skipped: 3}, e.Renderer().Stats())
	assert.Equal(t, 3, rec.Submits())
}

func TestQuitAndContextStopRun(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	e := newTestEngine(t, rec, w, "triangle")
	defer e.Release()

	w.onPoll = func(polls int) {
		if polls == 2 {
			e.Quit()
		}
	}
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, w.polls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e2 := newTestEngine(t, gputest.NewRecorder(), newFixture(&events), "triangle")
	defer e2.Release()
	require.NoError(t, e2.Run(ctx))
	assert.Zero(t, e2.Renderer().Stats().Drawn)
}

func TestKeyBindings(t *testing.T) {
	var events []string
	var logged strings.Builder
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	w.onPoll = func(polls int) {
		switch polls {
		case 1:
			w.onKey(common.KeyP)
		case 2:
			w.onKey(common.KeySpace)
		case 3:
			w.onKey(common.KeyQ)
		}
	}
	e := newTestEngine(t, rec, w, "triangle", WithLogger(slog.New(slog.NewTextHandler(&logged, nil))))
	defer e.Release()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, w.polls, "Q stops the loop after the current frame")
	assert.Contains(t, logged.String(), "drawn=1")
	assert.NotNil(t, e.(*engine).profiler)
}

func TestResizeCallbackReachesRenderer(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	w.onPoll = func(polls int) {
		if polls == 1 {
			w.onResize(0, 0)
		}
		if polls == 3 {
			w.onResize(1024, 768)
		}
	}
	e := newTestEngine(t, rec, w, "triangle",
		WithFrameCount(4),
		WithRendererOptions(renderer.WithResizable(true)),
	)
	defer e.Release()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, renderer.FrameStats{Drawn: 2, Skipped: 2}, e.Renderer().Stats(), "minimized frames are skipped")
	configs := rec.SurfaceConfigs()
	require.NotEmpty(t, configs)
	assert.Equal(t, uint32(1024), configs[len(configs)-1].Width)
}

func TestReleaseOrder(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	w := newFixture(&events)
	platform := teardown.ReleaseFunc(func() { events = append(events, "platform") })
	e := newTestEngine(t, rec, w, "quad", WithPlatform(platform))

	e.Release()
	e.Release()
	assert.Equal(t, []string{"window", "platform"}, events)
	assert.Empty(t, rec.Outstanding(), "the renderer goes before the window")
}

func TestNewEngineFailureReleasesWindow(t *testing.T) {
	var events []string
	rec := gputest.NewRecorder()
	rec.AdapterStatus = gpu.RequestStatusUnavailable
	s, err := scene.New("triangle")
	require.NoError(t, err)

	_, err = NewEngine(context.Background(), rec,
		WithWindow(newFixture(&events)),
		WithScene(s),
		WithLogger(quiet()),
		WithPlatform(teardown.ReleaseFunc(func() { events = append(events, "platform") })),
	)
	var acqErr *renderer.AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, renderer.StageAdapter, acqErr.Stage)
	assert.Equal(t, []string{"window", "platform"}, events)
	assert.Empty(t, rec.Outstanding())
}

func TestNewEngineRequiresWindowAndScene(t *testing.T) {
	var events []string
	_, err := NewEngine(context.Background(), gputest.NewRecorder(), WithWindow(newFixture(&events)))
	require.Error(t, err)
	assert.Equal(t, []string{"window"}, events)

	_, err = NewEngine(context.Background(), gputest.NewRecorder())
	require.Error(t, err)
}
