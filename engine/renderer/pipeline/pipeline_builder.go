package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a pipeline Config during construction.
type PipelineBuilderOption func(*Config)

// WithVertexLayout declares the single interleaved vertex buffer the pipeline reads.
// Omit it for shaders that generate their vertices from builtins.
//
// Parameters:
//   - layout: the vertex buffer layout; attribute offsets and stride are checked against the shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout for this pipeline
func WithVertexLayout(layout wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(c *Config) {
		c.VertexLayout = &layout
	}
}

// WithUniform declares the uniform block at group 0.
//
// Parameters:
//   - size: the byte size of the host-side uniform struct
//   - visibility: the shader stages that read the uniform
//
// Returns:
//   - PipelineBuilderOption: a function that sets the uniform binding for this pipeline
func WithUniform(size uint64, visibility wgpu.ShaderStage) PipelineBuilderOption {
	return func(c *Config) {
		c.Uniform = &UniformBinding{Size: size, Visibility: visibility}
	}
}

// WithDraw sets a non-indexed draw of count vertices.
//
// Parameters:
//   - count: the number of vertices per draw
//
// Returns:
//   - PipelineBuilderOption: a function that sets the draw shape for this pipeline
func WithDraw(count uint32) PipelineBuilderOption {
	return func(c *Config) {
		c.Draw = DrawShape{Count: count, Instances: 1}
	}
}

// WithDrawIndexed sets an indexed draw of count indices.
//
// Parameters:
//   - count: the number of indices per draw
//
// Returns:
//   - PipelineBuilderOption: a function that sets the draw shape for this pipeline
func WithDrawIndexed(count uint32) PipelineBuilderOption {
	return func(c *Config) {
		c.Draw = DrawShape{Indexed: true, Count: count, Instances: 1}
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(c *Config) {
		c.Primitive.CullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(c *Config) {
		c.Primitive.Topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(c *Config) {
		c.Primitive.FrontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline (e.g., wgpu.ColorWriteMaskAll)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(c *Config) {
		c.WriteMask = writeMask
	}
}

// WithBlendState sets the blend state for this pipeline. A nil state disables blending.
//
// Parameters:
//   - blendState: the blend state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(c *Config) {
		c.Blend = blendState
	}
}

// WithFormat sets the color target format. Left unset, the renderer uses the surface format.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the target format for this pipeline
func WithFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(c *Config) {
		c.Format = format
	}
}

// WithValidation toggles WGSL validation through naga before any GPU object is created.
//
// Parameters:
//   - enabled: whether to validate the shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the validation flag for this pipeline
func WithValidation(enabled bool) PipelineBuilderOption {
	return func(c *Config) {
		c.Validate = enabled
	}
}
