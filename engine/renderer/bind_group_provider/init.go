package bind_group_provider

import (
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// UniformLayout describes the uniform binding a pipeline expects: the bind group layout created
// for it and the exact byte size of the shader's uniform struct.
type UniformLayout struct {
	Layout  gpu.BindGroupLayout
	Group   uint32
	Binding uint32
	Size    uint64
}

// InitMesh creates a vertex buffer sized exactly to vertices and, when indices is non-empty, an
// index buffer of 4 bytes per index. Both are filled with queued writes, which are ordered before
// any later submission but do not block.
//
// Parameters:
//   - device: the device to create buffers on
//   - queue: the queue to upload through
//   - label: the debug label of the mesh
//   - vertices: interleaved vertex data
//   - stride: the byte size of one vertex
//   - indices: 32-bit indices, or nil for a non-indexed mesh
//
// Returns:
//   - BindGroupProvider: the mesh provider
//   - error: a *gpu.ConfigurationError if vertices is not a whole number of strides, or the creation error
func InitMesh(device gpu.Device, queue gpu.Queue, label string, vertices []byte, stride uint64, indices []uint32) (BindGroupProvider, error) {
	if stride == 0 || len(vertices) == 0 || uint64(len(vertices))%stride != 0 {
		return nil, &gpu.ConfigurationError{Component: "mesh " + label, Field: "vertex data length", Want: fmt.Sprintf("non-zero multiple of %d", stride), Got: len(vertices)}
	}
	vertexCount := uint64(len(vertices)) / stride

	vb, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label + " vertices",
		Size:  vertexCount * stride,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %s: create vertex buffer: %w", label, err)
	}
	if err := queue.WriteBuffer(vb, 0, vertices); err != nil {
		vb.Release()
		return nil, fmt.Errorf("mesh %s: upload vertices: %w", label, err)
	}
	options := []BindGroupProviderOption{WithVertexBuffer(vb, uint32(vertexCount))}

	if len(indices) > 0 {
		for _, idx := range indices {
			if uint64(idx) >= vertexCount {
				vb.Release()
				return nil, &gpu.ConfigurationError{Component: "mesh " + label, Field: "index", Want: fmt.Sprintf("< %d", vertexCount), Got: idx}
			}
		}
		ib, err := device.CreateBuffer(gpu.BufferDescriptor{
			Label: label + " indices",
			Size:  uint64(len(indices)) * 4,
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			vb.Release()
			return nil, fmt.Errorf("mesh %s: create index buffer: %w", label, err)
		}
		if err := queue.WriteBuffer(ib, 0, marshalIndices(indices)); err != nil {
			ib.Release()
			vb.Release()
			return nil, fmt.Errorf("mesh %s: upload indices: %w", label, err)
		}
		options = append(options, WithIndexBuffer(ib, uint32(len(indices))))
	}
	return NewBindGroupProvider(label, options...), nil
}

// InitUniforms creates a uniform buffer sized exactly to the layout's struct size, uploads data
// into it, and creates a bind group binding the whole buffer at the layout's binding.
//
// Parameters:
//   - device: the device to create the buffer and bind group on
//   - queue: the queue to upload through
//   - label: the debug label of the uniform block
//   - layout: the uniform layout of the pipeline the bind group is used with
//   - data: the initial contents, exactly layout.Size bytes
//
// Returns:
//   - BindGroupProvider: the uniform provider with the buffer at layout.Binding
//   - error: a *gpu.ConfigurationError if data does not match the layout, or the creation error
func InitUniforms(device gpu.Device, queue gpu.Queue, label string, layout UniformLayout, data []byte) (BindGroupProvider, error) {
	if layout.Layout == nil {
		return nil, &gpu.ConfigurationError{Component: "uniforms " + label, Field: "bind group layout"}
	}
	if layout.Size == 0 || layout.Size%16 != 0 {
		return nil, &gpu.ConfigurationError{Component: "uniforms " + label, Field: "uniform size", Want: "non-zero multiple of 16", Got: layout.Size}
	}
	if uint64(len(data)) != layout.Size {
		return nil, &gpu.ConfigurationError{Component: "uniforms " + label, Field: "uniform size", Want: layout.Size, Got: len(data)}
	}

	buf, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label + " uniforms",
		Size:  layout.Size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("uniforms %s: create buffer: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, fmt.Errorf("uniforms %s: upload: %w", label, err)
	}

	bg, err := device.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:  label + " bind group",
		Layout: layout.Layout,
		Entries: []gpu.BindGroupEntry{{
			Binding: layout.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    layout.Size,
		}},
	})
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("uniforms %s: create bind group: %w", label, err)
	}
	return NewBindGroupProvider(label, WithBuffer(int(layout.Binding), buf), WithBindGroup(bg)), nil
}

func marshalIndices(indices []uint32) []byte {
	buf := make([]byte, 4*len(indices))
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[4*i:], idx)
	}
	return buf
}
