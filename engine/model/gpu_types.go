package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	lin "github.com/xlab/linmath"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for colored 2D meshes.
// Matches GPUVertex layout exactly (20 bytes, tightly packed vertex attributes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is one interleaved vertex of a colored 2D mesh.
// Matches the WGSL VertexInput struct (see GPUVertexSource).
// Size: 20 bytes. Vertex attributes are packed without struct alignment.
type GPUVertex struct {
	Position lin.Vec2 // offset  0: position in clip space (8 bytes)
	Color    lin.Vec3 // offset  8: RGB color (12 bytes)
}

// GPUVertexStride is the byte stride of GPUVertex in a vertex buffer.
const GPUVertexStride = 20

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexStride)
	putFloats(buf, g.Position[:]...)
	putFloats(buf[8:], g.Color[:]...)
	return buf
}

// GPUVertexLayout returns the vertex buffer layout of GPUVertex: position at location 0,
// color at location 1.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout with a stride of GPUVertexStride
func GPUVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: GPUVertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1},
		},
	}
}

// MarshalVertices serializes vertices back to back for a single vertex buffer upload.
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, 0, len(vertices)*GPUVertexStride)
	for i := range vertices {
		buf = append(buf, vertices[i].Marshal()...)
	}
	return buf
}

// GPUPositionVertexSource is the canonical WGSL definition of the PositionInput struct for
// position-only meshes.
//
//go:embed assets/position_vertex.wgsl
var GPUPositionVertexSource string

// GPUPositionVertex is a position-only vertex, used by full-screen passes that shade from uniforms.
// Size: 8 bytes.
type GPUPositionVertex struct {
	Position lin.Vec2 // offset 0: position in clip space (8 bytes)
}

// GPUPositionVertexStride is the byte stride of GPUPositionVertex in a vertex buffer.
const GPUPositionVertexStride = 8

func (g *GPUPositionVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

func (g *GPUPositionVertex) Marshal() []byte {
	buf := make([]byte, GPUPositionVertexStride)
	putFloats(buf, g.Position[:]...)
	return buf
}

// GPUPositionVertexLayout returns the vertex buffer layout of GPUPositionVertex.
func GPUPositionVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: GPUPositionVertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

// MarshalPositionVertices serializes position-only vertices back to back.
func MarshalPositionVertices(vertices []GPUPositionVertex) []byte {
	buf := make([]byte, 0, len(vertices)*GPUPositionVertexStride)
	for i := range vertices {
		buf = append(buf, vertices[i].Marshal()...)
	}
	return buf
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], math.Float32bits(v))
	}
}
