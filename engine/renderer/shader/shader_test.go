package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const builtinOnlySource = `
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

const coloredSource = `
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

const uniformSource = `
//@oxy:include position_vertex
//@oxy:include uniforms
//@oxy:include uniforms
//@oxy:group 0 0 storage_uniform u uniforms

@vertex
fn vs_main(in: PositionInput) -> @builtin(position) vec4f {
    return vec4f(in.position, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4f {
    return u.color;
}
`

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(uniformSource)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct Uniforms"), "repeated includes are emitted once")
	assert.Contains(t, out, "struct PositionInput")
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> u: Uniforms;")
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, 0, *decls[0].Binding)
	assert.Equal(t, AnnotationArgUniforms, decls[0].Args[2])

	_, err = pp.Process(builtinOnlySource)
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations(), "declarations reset between calls")
}

func TestParseAnnotationErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", "//@oxy:"},
		{"unknown type", "//@oxy:texture foo"},
		{"include arity", "//@oxy:include"},
		{"unknown struct", "//@oxy:include camera"},
		{"group arity", "//@oxy:group 0 0 storage_uniform u"},
		{"bad group", "//@oxy:group x 0 storage_uniform u uniforms"},
		{"negative binding", "//@oxy:group 0 -1 storage_uniform u uniforms"},
		{"bad address space", "//@oxy:group 0 0 workgroup u uniforms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnnotation(tt.line, 7)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 7")
		})
	}

	a, err := parseAnnotation("let s = \"@oxy:include vertex\";", 1)
	assert.NoError(t, err)
	assert.Nil(t, a, "annotations only count inside comments")
}

func TestNewShaderReflection(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantLayout  *wgpu.VertexBufferLayout
		wantUniform uint64
	}{
		{
			name:   "builtin only",
			source: builtinOnlySource,
		},
		{
			name:   "interleaved position and color",
			source: coloredSource,
			wantLayout: &wgpu.VertexBufferLayout{
				ArrayStride: 20,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1},
				},
			},
		},
		{
			name:   "position with uniform",
			source: uniformSource,
			wantLayout: &wgpu.VertexBufferLayout{
				ArrayStride: 8,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				},
			},
			wantUniform: 32,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewShader(tt.name, tt.source)
			require.NoError(t, err)
			assert.Equal(t, "vs_main", s.VertexEntryPoint())
			assert.Equal(t, "fs_main", s.FragmentEntryPoint())
			assert.Equal(t, tt.wantLayout, s.VertexLayout())

			u, ok := s.Uniform()
			assert.Equal(t, tt.wantUniform != 0, ok)
			assert.Equal(t, tt.wantUniform, u.Size)
		})
	}
}

func TestStructLayoutAlignment(t *testing.T) {
	s, err := NewShader("layout", `
struct Inner { v: vec3f, };
struct Outer { a: f32, inner: Inner, b: array<vec2f, 3>, };
@group(0) @binding(0) var<uniform> o: Outer;
@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs() -> @location(0) vec4f { return vec4f(o.a); }
`)
	require.NoError(t, err)

	size, ok := s.StructSize("Inner")
	require.True(t, ok)
	assert.Equal(t, uint64(16), size)

	// a at 0, inner at 16..32, b at 32..56, rounded to 16.
	size, ok = s.StructSize("Outer")
	require.True(t, ok)
	assert.Equal(t, uint64(64), size)

	size, ok = s.StructSize("material.Uniforms")
	assert.False(t, ok)
	assert.Zero(t, size)
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("empty", "")
	assert.Error(t, err)

	_, err = NewShader("no fragment", `@vertex fn vs() -> @builtin(position) vec4f { return vec4f(0.0); }`)
	assert.ErrorContains(t, err, "@fragment")

	_, err = NewShader("unknown input", `
@vertex fn vs(in: Missing) -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs() -> @location(0) vec4f { return vec4f(0.0); }`)
	assert.ErrorContains(t, err, "Missing")

	_, err = NewShader("bad annotation", "//@oxy:include nothing\n"+builtinOnlySource)
	assert.ErrorContains(t, err, "line 1")
}

func TestMatchesVertexLayout(t *testing.T) {
	s, err := NewShader("colored", coloredSource)
	require.NoError(t, err)

	declared := *s.VertexLayout()
	assert.True(t, MatchesVertexLayout(s, declared))

	reordered := declared
	reordered.Attributes = []wgpu.VertexAttribute{declared.Attributes[1], declared.Attributes[0]}
	assert.True(t, MatchesVertexLayout(s, reordered))

	shifted := declared
	shifted.Attributes = []wgpu.VertexAttribute{declared.Attributes[0], {Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}}
	assert.False(t, MatchesVertexLayout(s, shifted))

	builtin, err := NewShader("builtin", builtinOnlySource)
	require.NoError(t, err)
	assert.False(t, MatchesVertexLayout(builtin, declared))
}

func TestValidateAll(t *testing.T) {
	good, err := NewShader("good", uniformSource)
	require.NoError(t, err)
	bad, err := NewShader("bad", `
@vertex fn vs() -> @builtin(position) vec4f { return undefined_symbol; }
@fragment fn fs() -> @location(0) vec4f { return vec4f(0.0); }`)
	require.NoError(t, err, "reflection does not type check")

	require.NoError(t, Validate(good))
	require.NoError(t, ValidateAll(nil, 2))

	err = ValidateAll([]Shader{good, bad, good}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shader bad")
	assert.NotContains(t, err.Error(), "shader good")
}
