package renderer

import (
	"log/slog"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithResizable keeps the adapter alive after the initial surface configuration so Resize can
// reconfigure the surface. Without it the adapter is released as soon as the surface is configured
// and Resize reports an error.
//
// Parameters:
//   - resizable: true to allow surface reconfiguration
//
// Returns:
//   - RendererBuilderOption: a function that applies the resizable option to a renderer
func WithResizable(resizable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.resizable = resizable
	}
}

// WithLogger sets the logger used for frame skips and teardown.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = logger
	}
}

// WithCacheSize sets how many pipelines are kept before the least recently used one is released.
//
// Parameters:
//   - size: the cache capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the cache size option to a renderer
func WithCacheSize(size int) RendererBuilderOption {
	return func(r *renderer) {
		r.cacheSize = size
	}
}

// WithValidation compiles every registered shader with naga before any GPU object is created for it.
//
// Parameters:
//   - validate: true to validate WGSL on registration
//
// Returns:
//   - RendererBuilderOption: a function that applies the validation option to a renderer
func WithValidation(validate bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validate = validate
	}
}
