package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-hello/engine/model"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleSource = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4f {
    let x = f32(i32(idx) - 1) * 0.5;
    let y = f32(i32(idx & 1u) * 2 - 1) * 0.5;
    return vec4f(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4f {
    return vec4f(0.0, 0.4, 1.0, 1.0);
}
`

const quadSource = `
//@oxy:include vertex

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) color: vec3f,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4f(in.position, 0.0, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return vec4f(in.color, 1.0);
}
`

const animatedSource = `
//@oxy:include vertex
//@oxy:include uniforms
//@oxy:group 0 0 storage_uniform u uniforms

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4f {
    return vec4f(in.position, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4f {
    return u.color;
}
`

var surfaceFormat = WithFormat(wgpu.TextureFormatBGRA8UnormSrgb)

func vertexLayout(stride uint64, colorOffset uint64) wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: colorOffset, ShaderLocation: 1},
		},
	}
}

func TestBuildVariants(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantBuffers int
		wantLayouts int
		wantDraw    DrawShape
	}{
		{
			name:     "builtin triangle",
			cfg:      NewConfig("triangle", triangleSource, WithDraw(3), surfaceFormat),
			wantDraw: DrawShape{Count: 3, Instances: 1},
		},
		{
			name:        "indexed quad",
			cfg:         NewConfig("quad", quadSource, WithVertexLayout(model.GPUVertexLayout()), WithDrawIndexed(6), surfaceFormat),
			wantBuffers: 1,
			wantDraw:    DrawShape{Indexed: true, Count: 6, Instances: 1},
		},
		{
			name: "animated quad",
			cfg: NewConfig("animated", animatedSource,
				WithVertexLayout(model.GPUVertexLayout()),
				WithUniform(material.GPUUniformsSize, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment),
				WithDrawIndexed(6), surfaceFormat),
			wantBuffers: 1,
			wantLayouts: 1,
			wantDraw:    DrawShape{Indexed: true, Count: 6, Instances: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			p, err := Build(rec.NewDevice(), tt.cfg)
			require.NoError(t, err)

			descs := rec.RenderPipelines()
			require.Len(t, descs, 1)
			d := descs[0]
			assert.Equal(t, "vs_main", d.VertexEntryPoint)
			assert.Equal(t, "fs_main", d.FragmentEntryPoint)
			assert.Len(t, d.VertexBuffers, tt.wantBuffers)
			assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Primitive.Topology)
			assert.Equal(t, wgpu.FrontFaceCCW, d.Primitive.FrontFace)
			assert.Equal(t, wgpu.CullModeNone, d.Primitive.CullMode)

			require.Len(t, d.Targets, 1)
			target := d.Targets[0]
			assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, target.Format)
			assert.Equal(t, wgpu.ColorWriteMaskAll, target.WriteMask)
			require.NotNil(t, target.Blend)
			assert.Equal(t, wgpu.BlendFactorSrcAlpha, target.Blend.Color.SrcFactor)
			assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, target.Blend.Color.DstFactor)
			assert.Equal(t, wgpu.BlendFactorZero, target.Blend.Alpha.SrcFactor)
			assert.Equal(t, wgpu.BlendFactorOne, target.Blend.Alpha.DstFactor)

			assert.Len(t, rec.BindGroupLayouts(), tt.wantLayouts)
			_, hasUniform := p.UniformLayout()
			assert.Equal(t, tt.wantLayouts == 1, hasUniform)
			assert.Equal(t, tt.wantDraw, p.DrawShape())
		})
	}
}

func TestBuildUniformMinBindingSize(t *testing.T) {
	rec := gputest.NewRecorder()
	device := rec.NewDevice()
	p, err := Build(device, NewConfig("animated", animatedSource,
		WithVertexLayout(model.GPUVertexLayout()),
		WithUniform(32, wgpu.ShaderStageFragment),
		WithDrawIndexed(6), surfaceFormat))
	require.NoError(t, err)

	layouts := rec.BindGroupLayouts()
	require.Len(t, layouts, 1)
	require.Len(t, layouts[0].Entries, 1)
	entry := layouts[0].Entries[0]
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entry.Buffer.Type)
	assert.Equal(t, uint64(32), entry.Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, entry.Visibility)

	ul, ok := p.UniformLayout()
	require.True(t, ok)
	assert.Equal(t, uint64(32), ul.Size)

	// A bind group smaller than the layout minimum is rejected at creation.
	buf, err := device.CreateBuffer(gpu.BufferDescriptor{Label: "short", Size: 16, Usage: wgpu.BufferUsageUniform})
	require.NoError(t, err)
	_, err = device.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:   "short bind group",
		Layout:  ul.Layout,
		Entries: []gpu.BindGroupEntry{{Binding: 0, Buffer: buf, Size: 16}},
	})
	assert.Error(t, err)

	_, err = bind_group_provider.InitUniforms(device, device.Queue(), "anim", ul, (&material.GPUUniforms{}).Marshal())
	assert.NoError(t, err)
}

func TestBuildConfigurationErrors(t *testing.T) {
	badOffset := vertexLayout(20, 12)
	badStride := vertexLayout(24, 8)
	wrongFormat := model.GPUVertexLayout()
	wrongFormat.Attributes = []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
	}
	wrongFormat.ArrayStride = 24

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"no format", NewConfig("t", triangleSource, WithDraw(3)), "target format"},
		{"no key", NewConfig("", triangleSource, WithDraw(3), surfaceFormat), "key"},
		{"bad shader", NewConfig("t", "fn main() {}", WithDraw(3), surfaceFormat), "shader"},
		{"attribute offset", NewConfig("q", quadSource, WithVertexLayout(badOffset), WithDrawIndexed(6), surfaceFormat), "offset of location 1"},
		{"stride", NewConfig("q", quadSource, WithVertexLayout(badStride), WithDrawIndexed(6), surfaceFormat), "vertex stride"},
		{"layout differs from shader", NewConfig("q", quadSource, WithVertexLayout(wrongFormat), WithDrawIndexed(6), surfaceFormat), "vertex layout"},
		{"missing layout", NewConfig("q", quadSource, WithDraw(4), surfaceFormat), "vertex layout"},
		{"unexpected layout", NewConfig("t", triangleSource, WithVertexLayout(model.GPUVertexLayout()), WithDraw(3), surfaceFormat), "vertex layout"},
		{"missing uniform", NewConfig("a", animatedSource, WithVertexLayout(model.GPUVertexLayout()), WithDrawIndexed(6), surfaceFormat), "uniform"},
		{"unexpected uniform", NewConfig("t", triangleSource, WithUniform(32, wgpu.ShaderStageFragment), WithDraw(3), surfaceFormat), "uniform"},
		{"uniform not multiple of 16", NewConfig("a", animatedSource, WithVertexLayout(model.GPUVertexLayout()), WithUniform(20, wgpu.ShaderStageFragment), WithDrawIndexed(6), surfaceFormat), "uniform size"},
		{"uniform size mismatch", NewConfig("a", animatedSource, WithVertexLayout(model.GPUVertexLayout()), WithUniform(16, wgpu.ShaderStageFragment), WithDrawIndexed(6), surfaceFormat), "uniform size"},
		{"no draw", NewConfig("t", triangleSource, surfaceFormat), "draw count"},
		{"indexed without vertices", NewConfig("t", triangleSource, WithDrawIndexed(3), surfaceFormat), "indexed draw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			_, err := Build(rec.NewDevice(), tt.cfg)

			var cfgErr *gpu.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)

			kinds := gputest.Kinds(rec.Created())
			assert.NotContains(t, kinds, "shader_module", "no GPU object is created for a bad configuration")
			assert.NotContains(t, kinds, "render_pipeline")
		})
	}
}

func TestPipelineReleaseOrder(t *testing.T) {
	rec := gputest.NewRecorder()
	p, err := Build(rec.NewDevice(), NewConfig("animated", animatedSource,
		WithVertexLayout(model.GPUVertexLayout()),
		WithUniform(32, wgpu.ShaderStageFragment),
		WithDrawIndexed(6), surfaceFormat))
	require.NoError(t, err)

	p.Release()
	p.Release()

	assert.Equal(t,
		[]string{"render_pipeline", "pipeline_layout", "bind_group_layout", "shader_module"},
		gputest.Kinds(rec.Released()))
	assert.Empty(t, rec.DoubleReleases())
	assert.Equal(t, []string{"device"}, gputest.Kinds(rec.Outstanding()))
}

func TestCache(t *testing.T) {
	rec := gputest.NewRecorder()
	device := rec.NewDevice()
	build := func(key string) Pipeline {
		p, err := Build(device, NewConfig(key, triangleSource, WithDraw(3), surfaceFormat))
		require.NoError(t, err)
		return p
	}

	c := NewCache(2)
	a, b := build("a"), build("b")
	require.NoError(t, c.Add(a))
	require.NoError(t, c.Add(b))
	assert.Error(t, c.Add(a), "duplicate keys are rejected")

	_, ok := c.Get("a")
	require.True(t, ok)

	require.NoError(t, c.Add(build("c")))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used pipeline is evicted")

	var releasedPipelines []string
	for _, r := range rec.Released() {
		if r.Kind == "render_pipeline" {
			releasedPipelines = append(releasedPipelines, r.Label)
		}
	}
	assert.Equal(t, []string{"b"}, releasedPipelines)

	c.Release()
	releasedPipelines = nil
	for _, r := range rec.Released() {
		if r.Kind == "render_pipeline" {
			releasedPipelines = append(releasedPipelines, r.Label)
		}
	}
	assert.Equal(t, []string{"b", "c", "a"}, releasedPipelines)
	assert.Zero(t, c.Len())
	assert.Empty(t, rec.DoubleReleases())
}
