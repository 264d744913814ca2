package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL layout rules.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct or parameter list
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// Binding is a resource declaration reflected from a @group/@binding variable.
type Binding struct {
	Group   uint32
	Binding uint32
	// AddressSpace is the var<> qualifier, e.g. "uniform". Empty for handle types.
	AddressSpace string
	Name         string
	Type         string
	// Size is the resolved byte size of Type, or 0 if it could not be resolved.
	Size uint64
}
