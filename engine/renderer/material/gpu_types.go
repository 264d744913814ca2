package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	lin "github.com/xlab/linmath"
)

// GPUUniformsSource is the canonical WGSL definition of the Uniforms struct.
// Matches GPUUniforms layout exactly (32 bytes, uniform address space rules).
//
//go:embed assets/uniforms.wgsl
var GPUUniformsSource string

// GPUUniforms is the uniform block read by the animated shaders.
// Matches the WGSL Uniforms struct layout exactly (see GPUUniformsSource).
// Size: 32 bytes. The struct aligns to 16 because of the vec4, so the 20 bytes of
// fields are padded to 32.
type GPUUniforms struct {
	Color lin.Vec4   // offset  0: RGBA color (16 bytes)
	Time  float32    // offset 16: seconds since start (4 bytes)
	_     [3]float32 // offset 20: padding to the struct alignment (12 bytes)
}

const (
	// GPUUniformsSize is the byte size of GPUUniforms.
	GPUUniformsSize = 32

	// GPUUniformsTimeOffset is the byte offset of the Time field.
	GPUUniformsTimeOffset = 16
)

// Size returns the size of the GPUUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUUniforms struct into a byte buffer suitable for GPU upload.
// Padding bytes are zero.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUUniforms) Marshal() []byte {
	buf := make([]byte, GPUUniformsSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Color[3]))
	copy(buf[GPUUniformsTimeOffset:], MarshalTime(g.Time))
	return buf
}

// MarshalTime serializes a time value for a partial write at GPUUniformsTimeOffset.
//
// Parameters:
//   - t: the time in seconds
//
// Returns:
//   - []byte: 4-byte buffer
func MarshalTime(t float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(t))
	return buf
}
