package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/cogentcore/webgpu/wgpu"
)

// DrawShape is how many vertices or indices a pipeline's single draw call covers.
type DrawShape struct {
	Indexed   bool
	Count     uint32
	Instances uint32
}

// UniformBinding declares the uniform block at group 0.
type UniformBinding struct {
	// Size is the byte size of the host-side uniform struct. It must equal the shader's struct size.
	Size       uint64
	Visibility wgpu.ShaderStage
}

// Config is the one parameterized description every render pipeline is built from.
// The presence of VertexLayout and Uniform selects the variant: a nil VertexLayout means the
// shader generates its vertices, a nil Uniform means no bind group.
type Config struct {
	Key          string
	Source       string
	VertexLayout *wgpu.VertexBufferLayout
	Uniform      *UniformBinding
	Draw         DrawShape
	Primitive    wgpu.PrimitiveState
	Blend        *wgpu.BlendState
	WriteMask    wgpu.ColorWriteMask
	Format       wgpu.TextureFormat
	Validate     bool
}

// DefaultBlendState blends color as src*srcAlpha + dst*(1-srcAlpha) and keeps the destination alpha.
//
// Returns:
//   - *wgpu.BlendState: a new blend state
func DefaultBlendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorZero,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// NewConfig creates a pipeline Config with triangle-list topology, CCW front face, no culling,
// the default blend state and a full write mask, then applies opts.
//
// Parameters:
//   - key: the unique key for this pipeline
//   - source: the WGSL source, possibly containing @oxy annotations
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Config: the configuration
func NewConfig(key, source string, opts ...PipelineBuilderOption) Config {
	c := Config{
		Key:    key,
		Source: source,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Blend:     DefaultBlendState(),
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	cfg           Config
	shader        shader.Shader
	render        gpu.RenderPipeline
	uniformLayout bind_group_provider.UniformLayout
	hasUniform    bool
	seq           teardown.Sequencer
}

// Pipeline is an immutable, fully created render pipeline. Changing any part of its
// configuration means building a new one.
type Pipeline interface {
	// Key returns the unique key associated with this pipeline.
	Key() string

	// Config returns the configuration the pipeline was built from.
	Config() Config

	// Shader returns the reflected shader of the pipeline.
	Shader() shader.Shader

	// RenderPipeline returns the native render pipeline handle.
	RenderPipeline() gpu.RenderPipeline

	// UniformLayout returns the uniform layout bind groups for this pipeline must match.
	//
	// Returns:
	//   - bind_group_provider.UniformLayout: the layout, exact size and binding of the uniform
	//   - bool: false if the pipeline has no uniform
	UniformLayout() (bind_group_provider.UniformLayout, bool)

	// DrawShape returns the draw issued with this pipeline each frame.
	DrawShape() DrawShape

	// Release releases the render pipeline, pipeline layout, bind group layout and shader module,
	// in that order. Calling it again is a no-op.
	Release()
}

var _ Pipeline = &pipeline{}

// Build validates cfg against its shader and creates the shader module, the bind group layout,
// the pipeline layout and the render pipeline. Every check runs before the first GPU call; on a
// creation failure the handles created so far are released.
//
// Parameters:
//   - device: the device to create the pipeline on
//   - cfg: the pipeline configuration
//
// Returns:
//   - Pipeline: the created pipeline
//   - error: a *gpu.ConfigurationError for any mismatch, or the creation error
func Build(device gpu.Device, cfg Config) (Pipeline, error) {
	s, err := check(cfg)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:    cfg,
		shader: s,
		seq:    teardown.NewSequencer(teardown.WithLogger(slog.Default().With(slog.String("pipeline", cfg.Key)))),
	}
	if err := p.create(device); err != nil {
		p.seq.Release()
		return nil, fmt.Errorf("pipeline %s: %w", cfg.Key, err)
	}
	return p, nil
}

func (p *pipeline) create(device gpu.Device) error {
	module, err := device.CreateShaderModule(gpu.ShaderModuleDescriptor{Label: p.cfg.Key + " shader", Code: p.shader.Source()})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	if err := p.seq.Track("shader_module", module); err != nil {
		return err
	}

	var layouts []gpu.BindGroupLayout
	layoutDeps := []string{}
	if u, ok := p.shader.Uniform(); ok {
		bgl, err := device.CreateBindGroupLayout(wgpu.BindGroupLayoutDescriptor{
			Label: p.cfg.Key + " uniform layout",
			Entries: []wgpu.BindGroupLayoutEntry{{
				Binding:    u.Binding,
				Visibility: p.cfg.Uniform.Visibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: p.cfg.Uniform.Size,
				},
			}},
		})
		if err != nil {
			return fmt.Errorf("create bind group layout: %w", err)
		}
		if err := p.seq.Track("bind_group_layout", bgl); err != nil {
			return err
		}
		layouts = append(layouts, bgl)
		layoutDeps = append(layoutDeps, "bind_group_layout")
		p.uniformLayout = bind_group_provider.UniformLayout{Layout: bgl, Group: u.Group, Binding: u.Binding, Size: p.cfg.Uniform.Size}
		p.hasUniform = true
	}

	layout, err := device.CreatePipelineLayout(gpu.PipelineLayoutDescriptor{Label: p.cfg.Key + " layout", BindGroupLayouts: layouts})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	if err := p.seq.Track("pipeline_layout", layout, layoutDeps...); err != nil {
		return err
	}

	var vertexBuffers []wgpu.VertexBufferLayout
	if p.cfg.VertexLayout != nil {
		vertexBuffers = []wgpu.VertexBufferLayout{*p.cfg.VertexLayout}
	}
	rp, err := device.CreateRenderPipeline(gpu.RenderPipelineDescriptor{
		Label:              p.cfg.Key,
		Layout:             layout,
		Module:             module,
		VertexEntryPoint:   p.shader.VertexEntryPoint(),
		FragmentEntryPoint: p.shader.FragmentEntryPoint(),
		VertexBuffers:      vertexBuffers,
		Targets: []wgpu.ColorTargetState{{
			Format:    p.cfg.Format,
			Blend:     p.cfg.Blend,
			WriteMask: p.cfg.WriteMask,
		}},
		Primitive: p.cfg.Primitive,
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	p.render = rp
	return p.seq.Track("render_pipeline", rp, "pipeline_layout", "shader_module")
}

func (p *pipeline) Key() string {
	return p.cfg.Key
}

func (p *pipeline) Config() Config {
	return p.cfg
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) RenderPipeline() gpu.RenderPipeline {
	return p.render
}

func (p *pipeline) UniformLayout() (bind_group_provider.UniformLayout, bool) {
	return p.uniformLayout, p.hasUniform
}

func (p *pipeline) DrawShape() DrawShape {
	return p.cfg.Draw
}

func (p *pipeline) Release() {
	p.seq.Release()
}
