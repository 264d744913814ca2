package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/cogentcore/webgpu/wgpu"
)

// errReleased is returned by every Renderer method called after Release.
var errReleased = errors.New("renderer released")

// Drawable is what a frame draws: one pipeline with its mesh and uniform block, over a clear.
// A Drawable with no Pipeline only clears the surface.
type Drawable struct {
	// Pipeline is the key of a registered pipeline, or "" for a clear-only frame.
	Pipeline string
	// Mesh holds the vertex and index buffers. It must be nil when the pipeline has no vertex layout.
	Mesh bind_group_provider.BindGroupProvider
	// Uniforms holds the bind group. It must be nil when the pipeline has no uniform.
	Uniforms bind_group_provider.BindGroupProvider
	// ClearColor is the color the render pass clears to.
	ClearColor wgpu.Color
	// Animated writes the frame time into the uniform block before each frame.
	Animated bool
}

// drawState is a validated Drawable together with the values resolved from its pipeline.
type drawState struct {
	Drawable
	uniform bind_group_provider.UniformLayout
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	ctx       *Context
	surface   *SurfaceBinding
	pipelines pipeline.Cache
	providers map[string]bind_group_provider.BindGroupProvider
	draw      *drawState
	seq       teardown.Sequencer
	minimized bool
	released  bool
	stats     FrameStats

	// Pre-creation config collected from builder options
	presentMode PresentMode
	resizable   bool
	logger      *slog.Logger
	cacheSize   int
	validate    bool
}

// Renderer owns the configured surface, the pipeline cache and every mesh and uniform block created
// through it, and drives one frame at a time.
//
// All methods must be called from the thread that owns the window.
type Renderer interface {
	// Context returns the GPU context the renderer was created with.
	Context() *Context

	// Surface returns the current surface configuration.
	Surface() *SurfaceBinding

	// RegisterPipelines builds each configuration and caches the result by key. A configuration with
	// no target format renders into the surface format. With validation enabled the shaders of every
	// configuration are compiled concurrently before the first pipeline is built.
	//
	// Parameters:
	//   - cfgs: the pipeline configurations to build
	//
	// Returns:
	//   - error: a *ConfigurationError, a WGSL error, or the creation error of the first failing pipeline
	RegisterPipelines(cfgs ...pipeline.Config) error

	// Pipeline retrieves the cached Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// InitMesh creates and uploads a vertex buffer and, for a non-empty indices, an index buffer.
	// The buffers are released by Release.
	//
	// Parameters:
	//   - label: a unique label for the mesh
	//   - vertices: interleaved vertex data
	//   - stride: the byte size of one vertex
	//   - indices: 32-bit indices, or nil
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh
	//   - error: a *ConfigurationError for malformed data, or the creation error
	InitMesh(label string, vertices []byte, stride uint64, indices []uint32) (bind_group_provider.BindGroupProvider, error)

	// InitUniforms creates a uniform buffer and bind group matching the uniform layout of a registered
	// pipeline. The buffer and bind group are released by Release.
	//
	// Parameters:
	//   - label: a unique label for the uniform block
	//   - pipelineKey: the pipeline the bind group will be used with
	//   - data: the initial contents, exactly the size of the shader's uniform struct
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the uniform block
	//   - error: a *ConfigurationError if the pipeline is unknown, has no uniform, or data does not fit
	InitUniforms(label, pipelineKey string, data []byte) (bind_group_provider.BindGroupProvider, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: error naming the first write that does not fit
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// SetDrawable checks d against its pipeline and makes it the content of every following frame.
	//
	// Parameters:
	//   - d: the drawable
	//
	// Returns:
	//   - error: a *ConfigurationError if the mesh or uniforms do not match the pipeline
	SetDrawable(d Drawable) error

	// Frame acquires the surface texture, records and submits one render pass, and presents.
	//
	// Parameters:
	//   - t: seconds since start, written into the uniform block of an animated drawable
	//
	// Returns:
	//   - FrameResult: FrameDrawn, or FrameSkipped when no texture was available or the window is minimized
	//   - error: an error wrapping ErrSurfaceAcquisitionSkip for a skipped acquisition, or an encoding error
	Frame(t float32) (FrameResult, error)

	// Stats returns the number of drawn and skipped frames so far.
	Stats() FrameStats

	// Resize reconfigures the surface to a new framebuffer size. A zero size marks the window as
	// minimized and frames are skipped until a non-zero size arrives.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: error if the renderer is not resizable, or the reconfiguration error
	Resize(width, height int) error

	// Release releases every uniform block, mesh and pipeline, unconfigures the surface and releases
	// the context, in reverse creation order. Calling it again is a no-op.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer configures the surface of ctx at width x height and takes ownership of ctx.
// Unless the renderer is resizable, the adapter is released once the surface is configured.
//
// Parameters:
//   - ctx: the acquired GPU context
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: a *ConfigurationError or the surface configuration error; ctx is released on error
func NewRenderer(ctx *Context, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		ctx:         ctx,
		providers:   make(map[string]bind_group_provider.BindGroupProvider),
		presentMode: PresentModeVSync,
		logger:      slog.Default(),
		cacheSize:   pipeline.DefaultCacheSize,
	}
	for _, opt := range options {
		opt(r)
	}
	r.seq = teardown.NewSequencer(teardown.WithLogger(r.logger))
	if err := r.seq.Track("context", ctx); err != nil {
		ctx.Release()
		return nil, err
	}

	surface, err := ConfigureSurface(ctx.Surface, ctx.Adapter, ctx.Device, width, height, r.presentMode)
	if err != nil {
		r.seq.Release()
		return nil, err
	}
	r.surface = surface
	_ = r.seq.Track("surface_config", surface, "context")
	r.logger.Info("surface configured",
		slog.Int("width", int(surface.Width)),
		slog.Int("height", int(surface.Height)),
		slog.Any("format", surface.Format),
		slog.Any("present_mode", surface.PresentMode),
	)

	if !r.resizable {
		ctx.ReleaseAdapter()
	}

	r.pipelines = pipeline.NewCache(r.cacheSize)
	_ = r.seq.Track("pipelines", teardown.ReleaseFunc(r.pipelines.Release), "context")
	return r, nil
}

func (r *renderer) Context() *Context {
	return r.ctx
}

func (r *renderer) Surface() *SurfaceBinding {
	return r.surface
}

func (r *renderer) RegisterPipelines(cfgs ...pipeline.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errReleased
	}

	if r.validate {
		shaders := make([]shader.Shader, 0, len(cfgs))
		for _, cfg := range cfgs {
			s, err := shader.NewShader(cfg.Key, cfg.Source)
			if err != nil {
				return &ConfigurationError{Component: "pipeline " + cfg.Key, Field: "shader", Err: err}
			}
			shaders = append(shaders, s)
		}
		if err := shader.ValidateAll(shaders, runtime.NumCPU()); err != nil {
			return err
		}
	}

	for _, cfg := range cfgs {
		if cfg.Format == wgpu.TextureFormatUndefined {
			cfg.Format = r.surface.Format
		}
		// already compiled above
		cfg.Validate = false
		p, err := pipeline.Build(r.ctx.Device, cfg)
		if err != nil {
			return err
		}
		if err := r.pipelines.Add(p); err != nil {
			p.Release()
			return err
		}
		r.logger.Debug("pipeline registered", slog.String("key", cfg.Key))
	}
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := r.pipelines.Get(key)
	return p
}

func (r *renderer) InitMesh(label string, vertices []byte, stride uint64, indices []uint32) (bind_group_provider.BindGroupProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, errReleased
	}
	name := "mesh:" + label
	if _, ok := r.providers[name]; ok {
		return nil, &ConfigurationError{Component: name, Field: "label", Want: "unique", Got: label}
	}

	mesh, err := bind_group_provider.InitMesh(r.ctx.Device, r.ctx.Queue, label, vertices, stride, indices)
	if err != nil {
		return nil, logDeviceError(r.logger, err)
	}
	if err := r.seq.Track(name, mesh, "context"); err != nil {
		mesh.Release()
		return nil, err
	}
	r.providers[name] = mesh
	return mesh, nil
}

func (r *renderer) InitUniforms(label, pipelineKey string, data []byte) (bind_group_provider.BindGroupProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, errReleased
	}
	name := "uniforms:" + label
	if _, ok := r.providers[name]; ok {
		return nil, &ConfigurationError{Component: name, Field: "label", Want: "unique", Got: label}
	}
	p, ok := r.pipelines.Get(pipelineKey)
	if !ok {
		return nil, &ConfigurationError{Component: name, Field: "pipeline", Want: "a registered pipeline", Got: pipelineKey}
	}
	layout, ok := p.UniformLayout()
	if !ok {
		return nil, &ConfigurationError{Component: name, Field: "pipeline", Want: "a pipeline with a uniform", Got: pipelineKey}
	}

	uniforms, err := bind_group_provider.InitUniforms(r.ctx.Device, r.ctx.Queue, label, layout, data)
	if err != nil {
		return nil, logDeviceError(r.logger, err)
	}
	if err := r.seq.Track(name, uniforms, "pipelines"); err != nil {
		uniforms.Release()
		return nil, err
	}
	r.providers[name] = uniforms
	return uniforms, nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errReleased
	}
	return logDeviceError(r.logger, bind_group_provider.WriteBuffers(r.ctx.Queue, writes))
}

func (r *renderer) SetDrawable(d Drawable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errReleased
	}
	state, err := r.resolve(d)
	if err != nil {
		return err
	}
	r.draw = state
	return nil
}

// resolve checks that d supplies exactly the buffers its pipeline reads.
func (r *renderer) resolve(d Drawable) (*drawState, error) {
	component := "drawable"
	fail := func(field string, want, got any) (*drawState, error) {
		return nil, &ConfigurationError{Component: component, Field: field, Want: want, Got: got}
	}

	if d.Pipeline == "" {
		if d.Mesh != nil || d.Uniforms != nil || d.Animated {
			return fail("pipeline", "a pipeline for a mesh or uniforms", "none")
		}
		return &drawState{Drawable: d}, nil
	}
	component += " " + d.Pipeline

	p, ok := r.pipelines.Get(d.Pipeline)
	if !ok {
		return fail("pipeline", "a registered pipeline", d.Pipeline)
	}
	cfg := p.Config()
	shape := p.DrawShape()

	switch {
	case cfg.VertexLayout == nil && d.Mesh != nil:
		return fail("mesh", "none, the pipeline generates its vertices", d.Mesh.Label())
	case cfg.VertexLayout != nil && (d.Mesh == nil || d.Mesh.VertexBuffer() == nil):
		return fail("mesh", "a vertex buffer", "none")
	case cfg.VertexLayout != nil && d.Mesh.VertexBuffer().Size()%cfg.VertexLayout.ArrayStride != 0:
		return fail("vertex buffer size", fmt.Sprintf("a multiple of %d", cfg.VertexLayout.ArrayStride), d.Mesh.VertexBuffer().Size())
	}
	if shape.Indexed {
		if d.Mesh.IndexBuffer() == nil {
			return fail("index buffer", "an index buffer for an indexed draw", "none")
		}
		if d.Mesh.IndexCount() < shape.Count {
			return fail("index count", fmt.Sprintf(">= %d", shape.Count), d.Mesh.IndexCount())
		}
	} else if d.Mesh != nil && d.Mesh.VertexCount() < shape.Count {
		return fail("vertex count", fmt.Sprintf(">= %d", shape.Count), d.Mesh.VertexCount())
	}

	state := &drawState{Drawable: d}
	layout, hasUniform := p.UniformLayout()
	switch {
	case !hasUniform && d.Uniforms != nil:
		return fail("uniforms", "none, the pipeline has no uniform", d.Uniforms.Label())
	case !hasUniform && d.Animated:
		return fail("animated", "a pipeline with a uniform", "none")
	case hasUniform && (d.Uniforms == nil || d.Uniforms.BindGroup() == nil):
		return fail("uniforms", "a bind group", "none")
	case hasUniform:
		buf := d.Uniforms.Buffer(int(layout.Binding))
		if buf == nil || buf.Size() != layout.Size {
			return fail("uniform size", layout.Size, bufferSize(buf))
		}
		if d.Animated && layout.Size < uniformTimeEnd {
			return fail("uniform size", fmt.Sprintf(">= %d for the time field", uniformTimeEnd), layout.Size)
		}
		state.uniform = layout
	}
	return state, nil
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return errReleased
	}
	if width == 0 || height == 0 {
		r.minimized = true
		return nil
	}
	if uint32(width) == r.surface.Width && uint32(height) == r.surface.Height {
		r.minimized = false
		return nil
	}
	if !r.resizable || r.ctx.Adapter == nil {
		return &ConfigurationError{Component: "renderer", Field: "resizable", Want: true, Got: false}
	}
	if err := r.surface.Reconfigure(r.ctx.Adapter, r.ctx.Device, width, height); err != nil {
		return err
	}
	r.minimized = false
	r.logger.Debug("surface reconfigured", slog.Int("width", width), slog.Int("height", height))
	return nil
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.draw = nil
	r.seq.Release()
	r.providers = nil
}

func bufferSize(buf gpu.Buffer) uint64 {
	if buf == nil {
		return 0
	}
	return buf.Size()
}
