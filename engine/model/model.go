package model

import (
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// model is the implementation of the Model interface.
type model struct {
	name         string
	vertexData   []byte
	layout       *wgpu.VertexBufferLayout
	indices      []uint32
	meshProvider bind_group_provider.BindGroupProvider
}

// Model is a mesh ready for upload: interleaved vertex bytes, the layout they follow, and
// optional 32-bit indices. A Model with no vertex data describes a pipeline that generates its
// own vertices from the vertex index.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// VertexData returns the raw vertex data for this model's mesh.
	//
	// Returns:
	//   - []byte: the vertex data, or nil for a generated mesh
	VertexData() []byte

	// VertexLayout returns the layout of VertexData, or nil for a generated mesh.
	VertexLayout() *wgpu.VertexBufferLayout

	// Stride returns the byte size of one vertex, or 0 for a generated mesh.
	Stride() uint64

	// VertexCount returns the number of vertices in VertexData.
	VertexCount() uint32

	// Indices returns the index list, or nil for a non-indexed mesh.
	Indices() []uint32

	// IndexCount returns the number of indices in the model's mesh.
	//
	// Returns:
	//   - uint32: the index count
	IndexCount() uint32

	// Generated reports whether the model has no vertex buffer.
	Generated() bool

	// MeshProvider retrieves the BindGroupProvider holding GPU mesh resources.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider, or nil before upload
	MeshProvider() bind_group_provider.BindGroupProvider

	// SetMeshProvider stores the mesh created from this model.
	//
	// Parameters:
	//   - provider: the mesh provider
	SetMeshProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Model = &model{}

// NewModel creates a new Model instance configured with the provided options.
//
// Parameters:
//   - name: the model identifier
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: a new Model instance
func NewModel(name string, options ...ModelBuilderOption) Model {
	m := &model{name: name}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) VertexData() []byte {
	return m.vertexData
}

func (m *model) VertexLayout() *wgpu.VertexBufferLayout {
	return m.layout
}

func (m *model) Stride() uint64 {
	if m.layout == nil {
		return 0
	}
	return m.layout.ArrayStride
}

func (m *model) VertexCount() uint32 {
	if m.layout == nil || m.layout.ArrayStride == 0 {
		return 0
	}
	return uint32(uint64(len(m.vertexData)) / m.layout.ArrayStride)
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) IndexCount() uint32 {
	return uint32(len(m.indices))
}

func (m *model) Generated() bool {
	return m.layout == nil
}

func (m *model) MeshProvider() bind_group_provider.BindGroupProvider {
	return m.meshProvider
}

func (m *model) SetMeshProvider(provider bind_group_provider.BindGroupProvider) {
	m.meshProvider = provider
}
