package gpu

import "github.com/cogentcore/webgpu/wgpu"

// AdapterOptions selects an adapter.
type AdapterOptions struct {
	CompatibleSurface    Surface
	ForceFallbackAdapter bool
	PowerPreference      wgpu.PowerPreference
}

// AdapterInfo describes an adapter for logs and the -info table.
type AdapterInfo struct {
	Name        string
	Backend     string
	AdapterType string
	Driver      string
}

// DeviceDescriptor describes the requested device.
type DeviceDescriptor struct {
	Label          string
	RequiredLimits Limits

	// OnDeviceLost is invoked asynchronously when the device is lost. It must not block.
	OnDeviceLost func(reason, message string)
}

// Fits reports whether n bytes written at offset stay inside a buffer of size bytes.
// The comparison cannot wrap, however large offset is.
func Fits(offset uint64, n int, size uint64) bool {
	return offset <= size && uint64(n) <= size-offset
}

// BufferDescriptor describes a buffer. Size is in bytes.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// ShaderModuleDescriptor carries WGSL source text.
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// PipelineLayoutDescriptor lists the bind group layouts of a pipeline, indexed by group.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
}

// RenderPipelineDescriptor describes a render pipeline with a single shader module
// providing both the vertex and fragment entry points.
type RenderPipelineDescriptor struct {
	Label              string
	Layout             PipelineLayout
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []wgpu.VertexBufferLayout
	Targets            []wgpu.ColorTargetState
	Primitive          wgpu.PrimitiveState
}

// BindGroupEntry binds a buffer range to a binding slot.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor describes a bind group matching Layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// RenderPassDescriptor describes a single color attachment pass that clears to
// ClearValue and stores the result.
type RenderPassDescriptor struct {
	Label      string
	View       TextureView
	ClearValue wgpu.Color
}

// SurfaceCapabilities lists what a surface supports on a given adapter.
// The first entry of each list is the preferred one.
type SurfaceCapabilities struct {
	Formats      []wgpu.TextureFormat
	PresentModes []wgpu.PresentMode
	AlphaModes   []wgpu.CompositeAlphaMode
}

// SurfaceConfiguration fixes a surface's format, usage, size and present mode.
type SurfaceConfiguration struct {
	Format      wgpu.TextureFormat
	Usage       wgpu.TextureUsage
	Width       uint32
	Height      uint32
	PresentMode wgpu.PresentMode
	AlphaMode   wgpu.CompositeAlphaMode
}
