package scene

import (
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithClearColor sets the color the frame clears to.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClearColor(color wgpu.Color) SceneBuilderOption {
	return func(s *scene) {
		s.clearColor = color
	}
}

// WithPipelineOptions applies extra pipeline options on top of the preset's configuration.
//
// Parameters:
//   - opts: the pipeline options, e.g. pipeline.WithCullMode
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		for _, opt := range opts {
			opt(&s.config)
		}
	}
}
