package bind_group_provider

import (
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources released by Release.

	// bindGroup is the GPU bind group created for this provider, or nil for mesh providers.
	bindGroup gpu.BindGroup
	// buffers holds the GPU buffers bound in bindGroup, keyed by binding index.
	buffers map[int]gpu.Buffer

	// vertexBuffer is the GPU vertex buffer, or nil for uniform providers.
	vertexBuffer gpu.Buffer
	// vertexCount is the number of vertices in vertexBuffer.
	vertexCount uint32
	// indexBuffer is the GPU index buffer, or nil for non-indexed meshes.
	indexBuffer gpu.Buffer
	// indexCount is the number of indices used by drawIndexed calls.
	indexCount uint32

	released bool
}

// BindGroupProvider holds the GPU buffers of one mesh or one uniform block, and the bind group
// binding them. The Renderer creates providers with InitMesh and InitUniforms, writes to them
// with BufferWrite, and binds them during the frame.
type BindGroupProvider interface {
	// Release releases the bind group first, then every buffer in reverse creation order.
	// Calling it again is a no-op.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group, or nil if this provider holds a mesh.
	//
	// Returns:
	//   - gpu.BindGroup: the bind group or nil
	BindGroup() gpu.BindGroup

	// Buffer returns the buffer bound at binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Buffer: the buffer or nil
	Buffer(binding int) gpu.Buffer

	// VertexBuffer returns the GPU vertex buffer, or nil if not a mesh provider.
	//
	// Returns:
	//   - gpu.Buffer: the vertex buffer or nil
	VertexBuffer() gpu.Buffer

	// VertexCount returns the number of vertices in the vertex buffer.
	VertexCount() uint32

	// IndexBuffer returns the GPU index buffer, or nil for non-indexed meshes.
	//
	// Returns:
	//   - gpu.Buffer: the index buffer or nil
	IndexBuffer() gpu.Buffer

	// IndexCount returns the number of indices in the index buffer.
	IndexCount() uint32
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a BindGroupProvider from already created GPU resources.
//
// Parameters:
//   - label: the debug label
//   - options: functional options supplying the resources
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]gpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	// buffers are created in binding order
	bindings := slices.Sorted(maps.Keys(p.buffers))
	for i := len(bindings) - 1; i >= 0; i-- {
		p.buffers[bindings[i]].Release()
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() gpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) gpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) VertexBuffer() gpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) VertexCount() uint32 {
	return p.vertexCount
}

func (p *bindGroupProvider) IndexBuffer() gpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() uint32 {
	return p.indexCount
}
