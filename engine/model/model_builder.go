package model

// ModelBuilderOption is a function that configures a model instance during construction.
type ModelBuilderOption func(*model)

// WithVertices is an option builder that sets colored 2D vertices in the GPUVertex layout.
//
// Parameters:
//   - vertices: the vertices, serialized with a stride of GPUVertexStride
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices option to a model
func WithVertices(vertices []GPUVertex) ModelBuilderOption {
	return func(m *model) {
		layout := GPUVertexLayout()
		m.vertexData = MarshalVertices(vertices)
		m.layout = &layout
	}
}

// WithPositionVertices is an option builder that sets position-only vertices in the
// GPUPositionVertex layout.
//
// Parameters:
//   - vertices: the vertices, serialized with a stride of GPUPositionVertexStride
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices option to a model
func WithPositionVertices(vertices []GPUPositionVertex) ModelBuilderOption {
	return func(m *model) {
		layout := GPUPositionVertexLayout()
		m.vertexData = MarshalPositionVertices(vertices)
		m.layout = &layout
	}
}

// WithIndices is an option builder that sets the index list of the model.
//
// Parameters:
//   - indices: 32-bit indices into the vertex list
//
// Returns:
//   - ModelBuilderOption: a function that applies the indices option to a model
func WithIndices(indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.indices = indices
	}
}
