// Package gpu declares the slice of the WebGPU object model the renderer drives:
// instance, adapter, device, queue, surface and the handles created from them.
// The production implementation wraps github.com/cogentcore/webgpu (see WGPU);
// the gputest sub-package records every call for headless tests.
package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Releaser is implemented by every GPU handle. Release must be called exactly once.
type Releaser interface {
	Release()
}

// RequestStatus is the completion status reported by an asynchronous adapter or device request.
type RequestStatus int

const (
	// RequestStatusSuccess indicates the request produced a usable handle.
	RequestStatusSuccess RequestStatus = iota

	// RequestStatusUnavailable indicates no adapter or device satisfied the request.
	RequestStatusUnavailable

	// RequestStatusError indicates the native API rejected the request.
	RequestStatusError

	// RequestStatusUnknown indicates the request ended without a recognized status.
	RequestStatusUnknown
)

func (s RequestStatus) String() string {
	switch s {
	case RequestStatusSuccess:
		return "success"
	case RequestStatusUnavailable:
		return "unavailable"
	case RequestStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// AdapterCallback receives the outcome of Instance.RequestAdapter.
type AdapterCallback func(status RequestStatus, adapter Adapter, message string)

// DeviceCallback receives the outcome of Adapter.RequestDevice.
type DeviceCallback func(status RequestStatus, device Device, message string)

// Backend creates API instances. It is the root of every other GPU object.
type Backend interface {
	// CreateInstance creates a new API instance.
	//
	// Returns:
	//   - Instance: the instance handle
	//   - error: error if the native API returned a null instance
	CreateInstance() (Instance, error)
}

// SurfaceSource provides the platform surface descriptor for a window.
type SurfaceSource interface {
	// SurfaceDescriptor returns the platform-specific surface descriptor, or nil if the window is gone.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// Instance is the API entry point.
type Instance interface {
	Releaser

	// CreateSurface binds a presentable surface to the window described by source.
	//
	// Parameters:
	//   - source: the window providing the surface descriptor
	//
	// Returns:
	//   - Surface: the created surface
	//   - error: error if the source has no descriptor or the surface could not be created
	CreateSurface(source SurfaceSource) (Surface, error)

	// RequestAdapter asks for an adapter matching opts. The callback is invoked exactly
	// once, possibly before RequestAdapter returns.
	//
	// Parameters:
	//   - opts: adapter selection options
	//   - callback: receives the status, adapter and a human readable message
	RequestAdapter(opts AdapterOptions, callback AdapterCallback)
}

// Adapter represents one physical or software GPU.
type Adapter interface {
	Releaser

	// Info returns descriptive information about the adapter.
	Info() AdapterInfo

	// Limits returns the limits supported by the adapter.
	Limits() Limits

	// RequestDevice asks the adapter for a logical device. The callback is invoked
	// exactly once, possibly before RequestDevice returns.
	//
	// Parameters:
	//   - desc: the device descriptor including required limits
	//   - callback: receives the status, device and a human readable message
	RequestDevice(desc DeviceDescriptor, callback DeviceCallback)
}

// Device is a logical connection to an adapter.
type Device interface {
	Releaser

	// Queue returns the device's command queue. The queue must be released before the device.
	Queue() Queue

	// Limits returns the limits the device was created with.
	Limits() Limits

	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModule, error)
	CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error)
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Poll services completed GPU work. With wait false it never blocks.
	Poll(wait bool)
}

// Queue executes command buffers in submission order.
type Queue interface {
	Releaser

	// WriteBuffer schedules a write of data into buf at offset. The write is ordered
	// before any later Submit but does not block.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: error if the write would exceed the buffer size, or a *DeviceError
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// Submit schedules command buffers for execution.
	Submit(commands ...CommandBuffer)

	// OnSubmittedWorkDone registers callback to run once all work submitted so far has
	// finished. The callback fires from a later Device.Poll.
	OnSubmittedWorkDone(callback func(status wgpu.QueueWorkDoneStatus))
}

// Surface is a presentable drawable bound to a window.
type Surface interface {
	Releaser

	// Capabilities returns the formats, present modes and alpha modes the adapter supports for this surface.
	Capabilities(adapter Adapter) SurfaceCapabilities

	// Configure fixes the surface format, usage, size and present mode.
	Configure(adapter Adapter, device Device, cfg SurfaceConfiguration) error

	// Unconfigure drops the surface configuration. Must precede Release.
	Unconfigure()

	// CurrentTexture acquires the next presentable texture.
	//
	// Returns:
	//   - Texture: the acquired texture
	//   - error: error if the surface reported a non-success status (lost, outdated, timeout)
	CurrentTexture() (Texture, error)

	// Present queues the acquired texture for display.
	Present()
}

// Texture is a surface texture acquired for one frame.
type Texture interface {
	Releaser
	CreateView(label string) (TextureView, error)
}

// CommandEncoder records GPU commands into a command buffer.
type CommandEncoder interface {
	Releaser
	InsertDebugMarker(label string) error
	BeginRenderPass(desc RenderPassDescriptor) (RenderPassEncoder, error)
	Finish(label string) (CommandBuffer, error)
}

// RenderPassEncoder records draw commands inside a render pass.
type RenderPassEncoder interface {
	Releaser
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format wgpu.IndexFormat)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)

	// End closes the pass. Validation errors recorded during the pass surface here as a *DeviceError.
	End() error
}

// Buffer is a device buffer with a fixed size.
type Buffer interface {
	Releaser
	Label() string
	Size() uint64
}

type (
	ShaderModule    interface{ Releaser }
	BindGroupLayout interface{ Releaser }
	PipelineLayout  interface{ Releaser }
	RenderPipeline  interface{ Releaser }
	BindGroup       interface{ Releaser }
	TextureView     interface{ Releaser }
	CommandBuffer   interface{ Releaser }
)
