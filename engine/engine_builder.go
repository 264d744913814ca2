package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/scene"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/Carmen-Shannon/oxy-hello/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables frame rate and memory statistics logged every interval.
// An interval <= 0 disables profiling.
//
// Parameters:
//   - interval: how often statistics are logged
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = interval > 0
		e.profileInterval = interval
	}
}

// WithWindow sets the window the engine draws into. The engine takes ownership and releases it.
//
// Parameters:
//   - w: a created Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithPlatform hands the windowing platform to the engine so it is released after the window.
//
// Parameters:
//   - p: the platform, usually a *window.Platform
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPlatform(p teardown.Releaser) EngineBuilderOption {
	return func(e *engine) {
		e.platform = p
	}
}

// WithScene sets the scene initialized on the renderer and drawn every frame.
//
// Parameters:
//   - s: the Scene to draw
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithAcquireOptions sets the options used to acquire the GPU context.
//
// Parameters:
//   - opts: the acquisition options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAcquireOptions(opts renderer.AcquireOptions) EngineBuilderOption {
	return func(e *engine) {
		e.acquireOptions = opts
	}
}

// WithRendererOptions appends options passed to renderer.NewRenderer.
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithLogger sets the logger shared by the engine, the renderer and the profiler.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithFrameCount stops Run after n frames, drawn or skipped. Zero runs until the window closes.
//
// Parameters:
//   - n: the number of frames to run
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCount(n int) EngineBuilderOption {
	return func(e *engine) {
		e.frameCount = n
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
