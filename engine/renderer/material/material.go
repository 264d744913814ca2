package material

import (
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	lin "github.com/xlab/linmath"
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	baseColor         lin.Vec4
	animated          bool
	pipelineKey       string
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material describes the uniform block a scene's pipeline reads: a base color and, for animated
// materials, the time since start.
//
// Surface properties (name, base color, animation) are set at construction and are read-only
// through this interface. GPU resource references (pipeline key, bind group provider) are mutable
// so they can be configured once the pipeline and its uniform block exist.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA color written at offset 0 of the uniform block.
	//
	// Returns:
	//   - lin.Vec4: the base color as RGBA values
	BaseColor() lin.Vec4

	// Animated reports whether the time field is rewritten every frame.
	Animated() bool

	// Uniforms returns the host-side uniform block for time t.
	//
	// Parameters:
	//   - t: the time in seconds
	//
	// Returns:
	//   - GPUUniforms: the uniform block
	Uniforms(t float32) GPUUniforms

	// PipelineKey retrieves the key identifying the render pipeline this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// BindGroupProvider retrieves the uniform block created for this material.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetPipelineKey sets the render pipeline key for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// SetBindGroupProvider sets the bind group provider for this material.
	//
	// Parameters:
	//   - provider: the uniform block created for this material
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The default base color is opaque white.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: lin.Vec4{1, 1, 1, 1},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() lin.Vec4 {
	return m.baseColor
}

func (m *material) Animated() bool {
	return m.animated
}

func (m *material) Uniforms(t float32) GPUUniforms {
	return GPUUniforms{Color: m.baseColor, Time: t}
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}
