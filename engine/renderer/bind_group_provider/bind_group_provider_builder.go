package bind_group_provider

import "github.com/Carmen-Shannon/oxy-hello/engine/gpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroup sets the bind group for this provider.
//
// Parameters:
//   - bg: the bind group to set for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group for this provider
func WithBindGroup(bg gpu.BindGroup) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroup = bg
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf gpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithVertexBuffer sets the vertex buffer and its vertex count.
//
// Parameters:
//   - buf: the vertex buffer
//   - count: the number of vertices it holds
//
// Returns:
//   - BindGroupProviderOption: a function that sets the vertex buffer
func WithVertexBuffer(buf gpu.Buffer, count uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffer = buf
		p.vertexCount = count
	}
}

// WithIndexBuffer sets the index buffer and its index count.
//
// Parameters:
//   - buf: the index buffer
//   - count: the number of indices it holds
//
// Returns:
//   - BindGroupProviderOption: a function that sets the index buffer
func WithIndexBuffer(buf gpu.Buffer, count uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.indexBuffer = buf
		p.indexCount = count
	}
}
