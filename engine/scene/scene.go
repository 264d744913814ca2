// Package scene holds the preset scenes the demo can draw. Each scene is one pipeline, an
// optional mesh and an optional uniform block, all described on the host and uploaded by Init.
package scene

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-hello/engine/model"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	lin "github.com/xlab/linmath"
)

var (
	//go:embed assets/triangle.wgsl
	triangleSource string
	//go:embed assets/quad.wgsl
	quadSource string
	//go:embed assets/animated.wgsl
	animatedSource string
	//go:embed assets/fullscreen.wgsl
	fullscreenSource string
)

// DefaultClearColor is the color every preset clears to.
var DefaultClearColor = wgpu.Color{R: 0.9, G: 0.1, B: 0.1, A: 1.0}

// scene is the implementation of the Scene interface.
type scene struct {
	name       string
	config     pipeline.Config
	model      model.Model
	material   material.Material
	clearColor wgpu.Color
}

// Scene is a drawable preset: a pipeline configuration with the mesh and uniform block it reads.
type Scene interface {
	// Name returns the preset name.
	Name() string

	// Config returns the pipeline configuration of the scene.
	Config() pipeline.Config

	// Model returns the mesh. A generated model has no vertex buffer.
	Model() model.Model

	// Material returns the uniform block description, or nil when the pipeline has no uniform.
	Material() material.Material

	// ClearColor returns the color the frame clears to.
	ClearColor() wgpu.Color

	// Init registers the pipeline, uploads the mesh and uniform block, and makes the scene the
	// renderer's drawable. Everything created is owned by r.
	//
	// Parameters:
	//   - r: the renderer to initialize on
	//
	// Returns:
	//   - error: the first registration, upload or validation error
	Init(r renderer.Renderer) error
}

var _ Scene = &scene{}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Config() pipeline.Config {
	return s.config
}

func (s *scene) Model() model.Model {
	return s.model
}

func (s *scene) Material() material.Material {
	return s.material
}

func (s *scene) ClearColor() wgpu.Color {
	return s.clearColor
}

func (s *scene) Init(r renderer.Renderer) error {
	if err := r.RegisterPipelines(s.config); err != nil {
		return fmt.Errorf("scene %s: %w", s.name, err)
	}
	d := renderer.Drawable{Pipeline: s.config.Key, ClearColor: s.clearColor}

	if !s.model.Generated() {
		mesh, err := r.InitMesh(s.model.Name(), s.model.VertexData(), s.model.Stride(), s.model.Indices())
		if err != nil {
			return fmt.Errorf("scene %s: %w", s.name, err)
		}
		s.model.SetMeshProvider(mesh)
		d.Mesh = mesh
	}

	if s.material != nil {
		initial := s.material.Uniforms(0)
		uniforms, err := r.InitUniforms(s.material.Name(), s.config.Key, initial.Marshal())
		if err != nil {
			return fmt.Errorf("scene %s: %w", s.name, err)
		}
		s.material.SetBindGroupProvider(uniforms)
		d.Uniforms = uniforms
		d.Animated = s.material.Animated()
	}

	if err := r.SetDrawable(d); err != nil {
		return fmt.Errorf("scene %s: %w", s.name, err)
	}
	return nil
}

// presets maps every preset name to its constructor.
var presets = map[string]func(options ...SceneBuilderOption) Scene{
	"triangle":   Triangle,
	"quad":       Quad,
	"animated":   AnimatedQuad,
	"fullscreen": Fullscreen,
}

// Names returns the preset names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(presets))
}

// New creates the preset called name.
//
// Parameters:
//   - name: one of Names()
//   - options: a variadic list of SceneBuilderOption functions applied to the preset
//
// Returns:
//   - Scene: the preset
//   - error: error if name is not a preset
func New(name string, options ...SceneBuilderOption) (Scene, error) {
	ctor, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q, want one of %v", name, Names())
	}
	return ctor(options...), nil
}

func newScene(name string, cfg pipeline.Config, m model.Model, mat material.Material, options []SceneBuilderOption) Scene {
	s := &scene{
		name:       name,
		config:     cfg,
		model:      m,
		material:   mat,
		clearColor: DefaultClearColor,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// quadVertices is a centered square with one color per corner, wound counter-clockwise.
var quadVertices = []model.GPUVertex{
	{Position: lin.Vec2{-0.5, -0.5}, Color: lin.Vec3{1, 0, 0}},
	{Position: lin.Vec2{0.5, -0.5}, Color: lin.Vec3{0, 1, 0}},
	{Position: lin.Vec2{0.5, 0.5}, Color: lin.Vec3{0, 0, 1}},
	{Position: lin.Vec2{-0.5, 0.5}, Color: lin.Vec3{1, 1, 0}},
}

// quadIndices splits a four-vertex quad into two triangles.
var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// Triangle draws three vertices generated in the vertex shader, with no buffers and no bind group.
func Triangle(options ...SceneBuilderOption) Scene {
	cfg := pipeline.NewConfig("triangle", triangleSource, pipeline.WithDraw(3))
	return newScene("triangle", cfg, model.NewModel("triangle"), nil, options)
}

// Quad draws an indexed, vertex-colored quad.
func Quad(options ...SceneBuilderOption) Scene {
	m := model.NewModel("quad", model.WithVertices(quadVertices), model.WithIndices(quadIndices))
	cfg := pipeline.NewConfig("quad", quadSource,
		pipeline.WithVertexLayout(*m.VertexLayout()),
		pipeline.WithDrawIndexed(m.IndexCount()),
	)
	return newScene("quad", cfg, m, nil, options)
}

// AnimatedQuad draws the vertex-colored quad rotated by the time field of a uniform block and
// tinted by its color field.
func AnimatedQuad(options ...SceneBuilderOption) Scene {
	m := model.NewModel("animated quad", model.WithVertices(quadVertices), model.WithIndices(quadIndices))
	mat := material.NewMaterial(
		material.WithName("animated"),
		material.WithPipelineKey("animated"),
		material.WithAnimated(true),
	)
	cfg := pipeline.NewConfig("animated", animatedSource,
		pipeline.WithVertexLayout(*m.VertexLayout()),
		pipeline.WithUniform(material.GPUUniformsSize, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment),
		pipeline.WithDrawIndexed(m.IndexCount()),
	)
	return newScene("animated", cfg, m, mat, options)
}

// Fullscreen covers the whole surface with a position-only quad shaded from the uniform block.
func Fullscreen(options ...SceneBuilderOption) Scene {
	m := model.NewModel("fullscreen quad",
		model.WithPositionVertices([]model.GPUPositionVertex{
			{Position: lin.Vec2{-1, -1}},
			{Position: lin.Vec2{1, -1}},
			{Position: lin.Vec2{1, 1}},
			{Position: lin.Vec2{-1, 1}},
		}),
		model.WithIndices(quadIndices),
	)
	mat := material.NewMaterial(
		material.WithName("fullscreen"),
		material.WithPipelineKey("fullscreen"),
		material.WithBaseColor(lin.Vec4{0.2, 0.6, 0.9, 1}),
		material.WithAnimated(true),
	)
	cfg := pipeline.NewConfig("fullscreen", fullscreenSource,
		pipeline.WithVertexLayout(*m.VertexLayout()),
		pipeline.WithUniform(material.GPUUniformsSize, wgpu.ShaderStageFragment),
		pipeline.WithDrawIndexed(m.IndexCount()),
	)
	return newScene("fullscreen", cfg, m, mat, options)
}
