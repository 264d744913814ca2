package pipeline

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// check reflects the shader of cfg and verifies the configuration against it.
// It makes no GPU calls.
func check(cfg Config) (shader.Shader, error) {
	component := "pipeline " + cfg.Key
	fail := func(field string, want, got any) error {
		return &gpu.ConfigurationError{Component: component, Field: field, Want: want, Got: got}
	}

	if cfg.Key == "" {
		return nil, &gpu.ConfigurationError{Component: "pipeline", Field: "key"}
	}
	if cfg.Format == wgpu.TextureFormatUndefined {
		return nil, &gpu.ConfigurationError{Component: component, Field: "target format"}
	}

	s, err := shader.NewShader(cfg.Key, cfg.Source)
	if err != nil {
		return nil, &gpu.ConfigurationError{Component: component, Field: "shader", Err: err}
	}

	if err := checkVertexLayout(cfg, s, fail); err != nil {
		return nil, err
	}
	if err := checkUniform(cfg, s, fail); err != nil {
		return nil, err
	}

	if cfg.Draw.Count == 0 {
		return nil, fail("draw count", "> 0", cfg.Draw.Count)
	}
	if cfg.Draw.Instances == 0 {
		return nil, fail("instance count", "> 0", cfg.Draw.Instances)
	}
	if cfg.Draw.Indexed && cfg.VertexLayout == nil {
		return nil, fail("indexed draw", "a vertex layout", "none")
	}

	if cfg.Validate {
		if err := shader.Validate(s); err != nil {
			return nil, &gpu.ConfigurationError{Component: component, Field: "WGSL", Err: err}
		}
	}
	return s, nil
}

func checkVertexLayout(cfg Config, s shader.Shader, fail func(string, any, any) error) error {
	reflected := s.VertexLayout()
	switch {
	case cfg.VertexLayout == nil && reflected == nil:
		return nil
	case cfg.VertexLayout == nil:
		return fail("vertex layout", "a layout with stride "+strconv.FormatUint(reflected.ArrayStride, 10), "none")
	case reflected == nil:
		return fail("vertex layout", "none, the shader has no vertex inputs", "a layout")
	}

	declared := *cfg.VertexLayout
	var offset uint64
	for _, attr := range declared.Attributes {
		size := shader.VertexFormatSize(attr.Format)
		if size == 0 {
			return fail("vertex format", "a supported format", attr.Format)
		}
		if attr.Offset != offset {
			return fail("offset of location "+strconv.FormatUint(uint64(attr.ShaderLocation), 10), offset, attr.Offset)
		}
		offset += size
	}
	if declared.ArrayStride != offset {
		return fail("vertex stride", offset, declared.ArrayStride)
	}
	if !shader.MatchesVertexLayout(s, declared) {
		return fail("vertex layout", reflected.Attributes, declared.Attributes)
	}
	return nil
}

func checkUniform(cfg Config, s shader.Shader, fail func(string, any, any) error) error {
	u, ok := s.Uniform()
	switch {
	case cfg.Uniform == nil && !ok:
		return nil
	case cfg.Uniform == nil:
		return fail("uniform", "a uniform binding for "+u.Type, "none")
	case !ok:
		return fail("uniform", "none, the shader has no group 0 uniform", "a uniform binding")
	}

	if cfg.Uniform.Size == 0 || cfg.Uniform.Size%16 != 0 {
		return fail("uniform size", "non-zero multiple of 16", cfg.Uniform.Size)
	}
	if u.Size == 0 {
		return fail("uniform type", "a resolvable struct", u.Type)
	}
	if cfg.Uniform.Size != u.Size {
		return fail("uniform size", u.Size, cfg.Uniform.Size)
	}
	if cfg.Uniform.Visibility == wgpu.ShaderStageNone {
		return fail("uniform visibility", "at least one stage", "none")
	}
	return nil
}
