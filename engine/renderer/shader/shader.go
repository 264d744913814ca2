package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
// It holds the pre-processed source and everything reflected from it.
type shader struct {
	key           string
	source        string
	vertexEntry   string
	fragmentEntry string
	vertexLayout  *wgpu.VertexBufferLayout
	bindings      []Binding
	declarations  []Annotation
	structLayouts map[string]wgslTypeLayout
}

// Shader is a pre-processed WGSL render shader with one vertex and one fragment entry point.
// It exposes what the pipeline builder needs to check a pipeline configuration against the
// shader before any GPU object is created.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and labels.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source with every @oxy annotation expanded
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// VertexLayout returns the interleaved vertex buffer layout reflected from the vertex
	// entry point's inputs, or nil if the shader generates its vertices from builtins.
	//
	// Returns:
	//   - *wgpu.VertexBufferLayout: the reflected layout, or nil
	VertexLayout() *wgpu.VertexBufferLayout

	// Bindings returns every @group/@binding declaration ordered by group then binding.
	Bindings() []Binding

	// Uniform returns the var<uniform> declaration at group 0, if the shader has one.
	//
	// Returns:
	//   - Binding: the uniform binding
	//   - bool: false if the shader declares no uniform at group 0
	Uniform() (Binding, bool)

	// Declarations returns the @oxy:group annotations found during pre-processing.
	Declarations() []Annotation

	// StructSize returns the byte size of a struct declared in the shader.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - uint64: the size in bytes, rounded up to the struct alignment
	//   - bool: false if no struct with that name could be resolved
	StructSize(name string) (uint64, bool)
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL render shader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: the raw WGSL source, possibly containing @oxy annotations
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing fails, an entry point is missing, or the vertex inputs cannot be laid out
func NewShader(key, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	cleaned := stripComments(processed)
	structs := parseStructBlocks(cleaned)
	s := &shader{
		key:           key,
		source:        processed,
		vertexEntry:   parseEntryPoint(cleaned, StageVertex),
		fragmentEntry: parseEntryPoint(cleaned, StageFragment),
		declarations:  pp.Declarations(),
		structLayouts: computeStructSizes(structs),
	}
	if s.vertexEntry == "" {
		return nil, fmt.Errorf("shader %s: no @vertex entry point", key)
	}
	if s.fragmentEntry == "" {
		return nil, fmt.Errorf("shader %s: no @fragment entry point", key)
	}

	inputs, err := parseVertexInputs(cleaned, structs)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	if len(inputs) > 0 {
		layout, err := buildVertexBufferLayout(inputs)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", key, err)
		}
		s.vertexLayout = &layout
	}
	s.bindings = parseBindings(cleaned, s.structLayouts)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shader) VertexLayout() *wgpu.VertexBufferLayout {
	return s.vertexLayout
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Uniform() (Binding, bool) {
	for _, b := range s.bindings {
		if b.Group == 0 && b.AddressSpace == "uniform" {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) StructSize(name string) (uint64, bool) {
	l, ok := s.structLayouts[name]
	return l.size, ok
}

// MatchesVertexLayout reports whether a declared layout has the same stride, locations,
// formats and offsets as the layout reflected from s.
//
// Parameters:
//   - s: the reflected shader
//   - declared: the layout a pipeline configuration declares
//
// Returns:
//   - bool: true if both layouts describe the same vertex
func MatchesVertexLayout(s Shader, declared wgpu.VertexBufferLayout) bool {
	reflected := s.VertexLayout()
	return reflected != nil && sameVertexLayout(*reflected, declared)
}
