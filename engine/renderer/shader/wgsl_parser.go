package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a field: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> u: Uniforms;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Stage identifies a render shader stage.
type Stage int

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

// parseEntryPoint extracts the entry point function name for the given stage.
// Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - stage: the stage to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, stage Stage) string {
	re := vertexEntryRegex
	if stage == StageFragment {
		re = fragmentEntryRegex
	}
	if match := re.FindStringSubmatch(source); match != nil {
		return match[1]
	}
	return ""
}

// parseVertexInputs reflects the vertex inputs of the @vertex entry point. Parameters typed
// as a struct are expanded to that struct's fields; @builtin inputs are dropped. The result
// is nil when the entry point takes only builtins, i.e. generates its vertices itself.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - structs: the parsed struct blocks of source
//
// Returns:
//   - []parsedField: the located vertex inputs in declaration order
//   - error: an input parameter references an unknown type
func parseVertexInputs(source string, structs []parsedStruct) ([]parsedField, error) {
	loc := vertexEntryRegex.FindStringSubmatchIndex(source)
	if loc == nil {
		return nil, nil
	}
	params := parenBody(source[loc[1]-1:])

	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var inputs []parsedField
	for _, p := range parseFields(params) {
		if p.isBuiltin {
			continue
		}
		if p.location >= 0 {
			inputs = append(inputs, p)
			continue
		}
		ps, ok := byName[p.typeName]
		if !ok {
			return nil, &reflectError{what: "vertex parameter " + p.name, why: "no @location and no struct named " + p.typeName}
		}
		for _, f := range ps.fields {
			if !f.isBuiltin {
				inputs = append(inputs, f)
			}
		}
	}
	return inputs, nil
}

// parenBody returns the text between the opening parenthesis at s[0] and its matching close.
func parenBody(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i]
			}
		}
	}
	return ""
}

// parseBindings extracts all @group(N) @binding(M) resource declarations, resolving each
// bound type's byte size against the struct layouts of the source. Results are ordered by
// group then binding.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - structSizes: layouts from computeStructSizes
//
// Returns:
//   - []Binding: the declared bindings
func parseBindings(source string, structSizes map[string]wgslTypeLayout) []Binding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]Binding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		b := Binding{
			Group:        uint32(group),
			Binding:      uint32(binding),
			AddressSpace: strings.TrimSpace(m[3]),
			Name:         m[4],
			Type:         strings.TrimSpace(m[5]),
		}
		if layout, ok := resolveTypeLayout(b.Type, structSizes); ok {
			b.Size = layout.size
		}
		bindings = append(bindings, b)
	}
	sort.SliceStable(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseFields(match[2]),
		})
	}
	return structs
}

// parseFields parses a comma separated list of struct fields or function parameters,
// extracting @location and @builtin attributes along with the name and type
func parseFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field := parsedField{location: -1}
		field.isBuiltin = builtinRegex.MatchString(part)
		if locMatch := locationRegex.FindStringSubmatch(part); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// sameVertexLayout reports whether two layouts declare the same stride and the same
// location/format/offset triples, independent of attribute order.
func sameVertexLayout(a, b wgpu.VertexBufferLayout) bool {
	if a.ArrayStride != b.ArrayStride || len(a.Attributes) != len(b.Attributes) {
		return false
	}
	byLoc := make(map[uint32]wgpu.VertexAttribute, len(a.Attributes))
	for _, attr := range a.Attributes {
		byLoc[attr.ShaderLocation] = attr
	}
	for _, attr := range b.Attributes {
		if other, ok := byLoc[attr.ShaderLocation]; !ok || other != attr {
			return false
		}
	}
	return true
}
