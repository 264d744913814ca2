package gpu

import "math"

const (
	// LimitU32Undefined marks a 32-bit limit the application does not care about.
	LimitU32Undefined uint32 = math.MaxUint32

	// LimitU64Undefined marks a 64-bit limit the application does not care about.
	LimitU64Undefined uint64 = math.MaxUint64
)

// Limits is the subset of device limits the renderer reads or requests.
// When used as a request, undefined fields leave the native default in place.
type Limits struct {
	MaxTextureDimension2D           uint32
	MaxBindGroups                   uint32
	MaxBindingsPerBindGroup         uint32
	MaxUniformBuffersPerShaderStage uint32
	MaxUniformBufferBindingSize     uint64
	MaxVertexBuffers                uint32
	MaxVertexAttributes             uint32
	MaxVertexBufferArrayStride      uint32
	MaxBufferSize                   uint64
	MinUniformBufferOffsetAlignment uint32
	MinStorageBufferOffsetAlignment uint32
}

// UndefinedLimits returns a Limits value with every field set to its undefined sentinel.
func UndefinedLimits() Limits {
	return Limits{
		MaxTextureDimension2D:           LimitU32Undefined,
		MaxBindGroups:                   LimitU32Undefined,
		MaxBindingsPerBindGroup:         LimitU32Undefined,
		MaxUniformBuffersPerShaderStage: LimitU32Undefined,
		MaxUniformBufferBindingSize:     LimitU64Undefined,
		MaxVertexBuffers:                LimitU32Undefined,
		MaxVertexAttributes:             LimitU32Undefined,
		MaxVertexBufferArrayStride:      LimitU32Undefined,
		MaxBufferSize:                   LimitU64Undefined,
		MinUniformBufferOffsetAlignment: LimitU32Undefined,
		MinStorageBufferOffsetAlignment: LimitU32Undefined,
	}
}
