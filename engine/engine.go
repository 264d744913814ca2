package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/common"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/scene"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/Carmen-Shannon/oxy-hello/engine/window"
)

// engine implements the Engine interface.
// Owns the window, the renderer and the scene drawn into it, and drives one frame per loop iteration.
type engine struct {
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	platform teardown.Releaser
	renderer renderer.Renderer
	scene    scene.Scene
	seq      teardown.Sequencer
	logger   *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool
	profileInterval  time.Duration

	acquireOptions  renderer.AcquireOptions
	rendererOptions []renderer.RendererBuilderOption

	frameCount       int
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It acquires the GPU for a window, sets a scene up on it and runs the frame loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer drawing into the window.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Scene returns the scene being drawn.
	//
	// Returns:
	//   - scene.Scene: the scene instance
	Scene() scene.Scene

	// Run drives the frame loop on the calling goroutine, which must be the one the window was
	// created on. It returns nil when the window closes, Quit is called, ctx is done or the frame
	// count set with WithFrameCount is reached. Skipped frames do not stop the loop.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	//
	// Returns:
	//   - error: the first frame error that is not a skip
	Run(ctx context.Context) error

	// Quit asks Run to return after the current frame.
	// Safe to call multiple times and from any goroutine; subsequent calls are no-ops.
	Quit()

	// Release tears down the renderer, then the window, then the platform. Calling it again is a no-op.
	Release()
}

// NewEngine acquires a GPU context for the window, creates the renderer and initializes the scene.
// On error everything created so far, the window and platform included, is released.
//
// Parameters:
//   - ctx: bounds GPU acquisition
//   - backend: the GPU backend
//   - options: functional options for engine configuration; WithWindow and WithScene are required
//
// Returns:
//   - Engine: the newly created engine
//   - error: an *renderer.AcquisitionError, a *gpu.ConfigurationError or a setup error
func NewEngine(ctx context.Context, backend gpu.Backend, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		quitChannel:    make(chan struct{}),
		logger:         slog.Default(),
		acquireOptions: renderer.DefaultAcquireOptions(),
	}

	for _, opt := range options {
		opt(e)
	}

	e.seq = teardown.NewSequencer(teardown.WithLogger(e.logger))
	if err := e.track(); err != nil {
		e.seq.Release()
		return nil, err
	}
	if e.scene == nil {
		e.seq.Release()
		return nil, errors.New("engine: no scene")
	}

	e.acquireOptions.Logger = common.Coalesce(e.acquireOptions.Logger, e.logger)
	c, err := renderer.AcquireContext(ctx, backend, e.window, e.acquireOptions)
	if err != nil {
		e.seq.Release()
		return nil, err
	}

	r, err := renderer.NewRenderer(c, e.window.Width(), e.window.Height(),
		append([]renderer.RendererBuilderOption{renderer.WithLogger(e.logger)}, e.rendererOptions...)...)
	if err != nil {
		e.seq.Release()
		return nil, err
	}
	e.renderer = r
	_ = e.seq.Track("renderer", r, "window")

	if err := e.scene.Init(r); err != nil {
		e.seq.Release()
		return nil, fmt.Errorf("init scene %s: %w", e.scene.Name(), err)
	}

	e.window.SetResizeCallback(func(width, height int) {
		if err := e.renderer.Resize(width, height); err != nil {
			e.logger.Warn("resize ignored", slog.Int("width", width), slog.Int("height", height), slog.Any("error", err))
		}
	})

	e.window.SetKeyDownCallback(e.handleKey)

	if e.profilingEnabled {
		e.profiler = profiler.NewProfiler(e.logger, e.profileInterval)
	}

	e.logger.Info("engine ready", slog.String("scene", e.scene.Name()), slog.String("adapter", c.Info.Name))
	return e, nil
}

// track registers the platform and the window with the teardown sequencer.
func (e *engine) track() error {
	if e.platform != nil {
		if err := e.seq.Track("platform", e.platform); err != nil {
			return err
		}
	}
	if e.window == nil {
		return errors.New("engine: no window")
	}
	if e.platform != nil {
		return e.seq.Track("window", e.window, "platform")
	}
	return e.seq.Track("window", e.window)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Run(ctx context.Context) error {
	for frames := 0; e.frameCount <= 0 || frames < e.frameCount; frames++ {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		default:
		}

		start := time.Now()
		e.window.PollEvents()
		if e.window.ShouldClose() {
			return nil
		}

		result, err := e.renderer.Frame(float32(e.window.Time()))
		if err != nil && !errors.Is(err, renderer.ErrSurfaceAcquisitionSkip) {
			return fmt.Errorf("frame %d: %w", frames, err)
		}

		if e.profiler != nil {
			e.profiler.Tick(result == renderer.FrameSkipped)
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// handleKey runs on the loop goroutine from inside PollEvents.
// Q quits, P toggles profiling and Space logs the frame counters.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyQ:
		e.Quit()
	case common.KeyP:
		if e.profiler != nil {
			e.profiler = nil
			return
		}
		e.profiler = profiler.NewProfiler(e.logger, common.Coalesce(e.profileInterval, time.Second))
	case common.KeySpace:
		stats := e.renderer.Stats()
		e.logger.Info("frames", slog.Uint64("drawn", stats.Drawn), slog.Uint64("skipped", stats.Skipped))
	}
}

// Quit signals Run to return.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.Quit()
	e.seq.Release()
}
