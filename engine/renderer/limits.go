package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
)

// LimitBudget lists the limits the application needs. A zero field means "don't care".
type LimitBudget struct {
	MaxVertexAttributes             uint32
	MaxVertexBuffers                uint32
	MaxBufferSize                   uint64
	MaxVertexBufferArrayStride      uint32
	MaxUniformBufferBindingSize     uint64
	MaxBindGroups                   uint32
	MaxUniformBuffersPerShaderStage uint32
	MaxBindingsPerBindGroup         uint32
}

// DefaultLimitBudget returns the budget of the bundled scenes: one interleaved vertex buffer with
// two attributes, one bind group holding one uniform buffer.
func DefaultLimitBudget() LimitBudget {
	return LimitBudget{
		MaxVertexAttributes:             2,
		MaxVertexBuffers:                1,
		MaxBufferSize:                   64 * 1024,
		MaxVertexBufferArrayStride:      20,
		MaxUniformBufferBindingSize:     16 * 4 * 4,
		MaxBindGroups:                   1,
		MaxUniformBuffersPerShaderStage: 1,
		MaxBindingsPerBindGroup:         1,
	}
}

// ResolveLimits builds the required-limits structure for a device request. Every field starts
// undefined, the budget overrides the fields it sets, and the alignment requirements are copied
// from the adapter since the application cannot choose them.
//
// Parameters:
//   - budget: the limits the application needs
//   - adapter: the limits reported by the adapter
//
// Returns:
//   - gpu.Limits: the required limits
//   - error: an *AcquisitionError with StageLimits if the adapter cannot satisfy the budget
func ResolveLimits(budget LimitBudget, adapter gpu.Limits) (gpu.Limits, error) {
	required := gpu.UndefinedLimits()

	checks := []struct {
		name  string
		want  uint64
		have  uint64
		set32 *uint32
		set64 *uint64
	}{
		{"maxVertexAttributes", uint64(budget.MaxVertexAttributes), uint64(adapter.MaxVertexAttributes), &required.MaxVertexAttributes, nil},
		{"maxVertexBuffers", uint64(budget.MaxVertexBuffers), uint64(adapter.MaxVertexBuffers), &required.MaxVertexBuffers, nil},
		{"maxBufferSize", budget.MaxBufferSize, adapter.MaxBufferSize, nil, &required.MaxBufferSize},
		{"maxVertexBufferArrayStride", uint64(budget.MaxVertexBufferArrayStride), uint64(adapter.MaxVertexBufferArrayStride), &required.MaxVertexBufferArrayStride, nil},
		{"maxUniformBufferBindingSize", budget.MaxUniformBufferBindingSize, adapter.MaxUniformBufferBindingSize, nil, &required.MaxUniformBufferBindingSize},
		{"maxBindGroups", uint64(budget.MaxBindGroups), uint64(adapter.MaxBindGroups), &required.MaxBindGroups, nil},
		{"maxUniformBuffersPerShaderStage", uint64(budget.MaxUniformBuffersPerShaderStage), uint64(adapter.MaxUniformBuffersPerShaderStage), &required.MaxUniformBuffersPerShaderStage, nil},
		{"maxBindingsPerBindGroup", uint64(budget.MaxBindingsPerBindGroup), uint64(adapter.MaxBindingsPerBindGroup), &required.MaxBindingsPerBindGroup, nil},
	}
	for _, c := range checks {
		if c.want == 0 {
			continue
		}
		if c.want > c.have {
			return gpu.Limits{}, &AcquisitionError{
				Stage:   StageLimits,
				Message: fmt.Sprintf("%s: need %d, adapter supports %d", c.name, c.want, c.have),
			}
		}
		if c.set64 != nil {
			*c.set64 = c.want
		} else {
			*c.set32 = uint32(c.want)
		}
	}

	required.MinUniformBufferOffsetAlignment = adapter.MinUniformBufferOffsetAlignment
	required.MinStorageBufferOffsetAlignment = adapter.MinStorageBufferOffsetAlignment
	return required, nil
}

// limitRows pairs each adapter limit with the requested value for display. Undefined
// requested values print as "-".
func limitRows(adapter, required gpu.Limits) [][2]string {
	u32 := func(have, want uint32) string {
		if want == gpu.LimitU32Undefined {
			return fmt.Sprintf("%d / -", have)
		}
		return fmt.Sprintf("%d / %d", have, want)
	}
	u64 := func(have, want uint64) string {
		if want == gpu.LimitU64Undefined {
			return fmt.Sprintf("%d / -", have)
		}
		return fmt.Sprintf("%d / %d", have, want)
	}
	return [][2]string{
		{"maxVertexAttributes", u32(adapter.MaxVertexAttributes, required.MaxVertexAttributes)},
		{"maxVertexBuffers", u32(adapter.MaxVertexBuffers, required.MaxVertexBuffers)},
		{"maxBufferSize", u64(adapter.MaxBufferSize, required.MaxBufferSize)},
		{"maxVertexBufferArrayStride", u32(adapter.MaxVertexBufferArrayStride, required.MaxVertexBufferArrayStride)},
		{"maxUniformBufferBindingSize", u64(adapter.MaxUniformBufferBindingSize, required.MaxUniformBufferBindingSize)},
		{"maxBindGroups", u32(adapter.MaxBindGroups, required.MaxBindGroups)},
		{"maxUniformBuffersPerShaderStage", u32(adapter.MaxUniformBuffersPerShaderStage, required.MaxUniformBuffersPerShaderStage)},
		{"maxBindingsPerBindGroup", u32(adapter.MaxBindingsPerBindGroup, required.MaxBindingsPerBindGroup)},
		{"minUniformBufferOffsetAlignment", u32(adapter.MinUniformBufferOffsetAlignment, required.MinUniformBufferOffsetAlignment)},
		{"minStorageBufferOffsetAlignment", u32(adapter.MinStorageBufferOffsetAlignment, required.MinStorageBufferOffsetAlignment)},
	}
}
