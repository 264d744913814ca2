package bind_group_provider

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) (*gputest.Recorder, gpu.Device, gpu.Queue) {
	t.Helper()
	rec := gputest.NewRecorder()
	d := rec.NewDevice()
	return rec, d, d.Queue()
}

func uniformLayout(t *testing.T, d gpu.Device, size uint64) UniformLayout {
	t.Helper()
	l, err := d.CreateBindGroupLayout(wgpu.BindGroupLayoutDescriptor{Label: "uniform layout"})
	require.NoError(t, err)
	return UniformLayout{Layout: l, Size: size}
}

func TestInitMeshBufferSizes(t *testing.T) {
	tests := []struct {
		name     string
		vertices int
		stride   uint64
		indices  []uint32
	}{
		{"triangle", 3, 20, nil},
		{"quad", 4, 20, []uint32{0, 1, 2, 0, 2, 3}},
		{"fullscreen", 6, 8, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, d, q := newDevice(t)
			data := make([]byte, tt.vertices*int(tt.stride))

			p, err := InitMesh(d, q, tt.name, data, tt.stride, tt.indices)
			require.NoError(t, err)

			descs := rec.BufferDescriptors()
			require.NotEmpty(t, descs)
			assert.Equal(t, uint64(tt.vertices)*tt.stride, descs[0].Size)
			assert.Equal(t, uint32(tt.vertices), p.VertexCount())
			if len(tt.indices) > 0 {
				require.Len(t, descs, 2)
				assert.Equal(t, uint64(len(tt.indices))*4, descs[1].Size)
				assert.Equal(t, uint32(len(tt.indices)), p.IndexCount())
			} else {
				assert.Len(t, descs, 1)
				assert.Nil(t, p.IndexBuffer())
			}
			for i, w := range rec.Writes() {
				assert.LessOrEqual(t, w.Offset+uint64(len(w.Data)), descs[i].Size)
			}
		})
	}
}

func TestInitMeshRejectsBadData(t *testing.T) {
	rec, d, q := newDevice(t)

	_, err := InitMesh(d, q, "partial", make([]byte, 21), 20, nil)
	var cfgErr *gpu.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = InitMesh(d, q, "index", make([]byte, 60), 20, []uint32{0, 1, 3})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "index", cfgErr.Field)

	kinds := gputest.Kinds(rec.Outstanding())
	assert.NotContains(t, kinds, "buffer")
}

func TestInitUniformsBindsWholeBuffer(t *testing.T) {
	rec, d, q := newDevice(t)
	p, err := InitUniforms(d, q, "anim", uniformLayout(t, d, 32), make([]byte, 32))
	require.NoError(t, err)

	groups := rec.BindGroups()
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 1)
	e := groups[0].Entries[0]
	assert.Equal(t, uint32(0), e.Binding)
	assert.Equal(t, uint64(0), e.Offset)
	assert.Equal(t, uint64(32), e.Size)
	assert.Equal(t, uint64(32), p.Buffer(0).Size())
	assert.NotNil(t, p.BindGroup())
}

func TestInitUniformsMisdeclaredSize(t *testing.T) {
	rec, d, q := newDevice(t)

	_, err := InitUniforms(d, q, "anim", uniformLayout(t, d, 16), make([]byte, 32))
	var cfgErr *gpu.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "uniform size", cfgErr.Field)

	_, err = InitUniforms(d, q, "anim", uniformLayout(t, d, 20), make([]byte, 20))
	require.ErrorAs(t, err, &cfgErr)

	assert.Empty(t, rec.BindGroups())
	assert.Empty(t, rec.BufferDescriptors())
}

func TestWriteBuffersPartialWrite(t *testing.T) {
	rec, d, q := newDevice(t)
	initial := make([]byte, 32)
	for i := range 16 {
		initial[i] = byte(i + 1)
	}
	p, err := InitUniforms(d, q, "anim", uniformLayout(t, d, 32), initial)
	require.NoError(t, err)

	require.NoError(t, WriteBuffers(q, []BufferWrite{{Provider: p, Binding: 0, Offset: 16, Data: []byte{9, 9, 9, 9}}}))

	got := rec.Contents(p.Buffer(0))
	assert.Equal(t, initial[:16], got[:16])
	assert.Equal(t, []byte{9, 9, 9, 9}, got[16:20])
	assert.Equal(t, make([]byte, 12), got[20:])

	before := len(rec.Writes())
	err = WriteBuffers(q, []BufferWrite{{Provider: p, Binding: 0, Offset: 30, Data: []byte{1, 2, 3, 4}}})
	assert.Error(t, err)
	err = WriteBuffers(q, []BufferWrite{{Provider: p, Binding: 3, Data: []byte{1}}})
	assert.Error(t, err)
	err = WriteBuffers(q, []BufferWrite{{Provider: p, Binding: 0, Offset: math.MaxUint64 - 3, Data: make([]byte, 8)}})
	assert.ErrorContains(t, err, "exceeds binding 0")
	err = WriteBuffers(q, []BufferWrite{{Binding: 0, Data: []byte{1}}})
	assert.ErrorContains(t, err, "no provider")
	assert.Len(t, rec.Writes(), before, "rejected writes must not reach the queue")
}

func TestWriteBuffersSurfacesDeviceError(t *testing.T) {
	rec, d, q := newDevice(t)
	p, err := InitUniforms(d, q, "anim", uniformLayout(t, d, 32), make([]byte, 32))
	require.NoError(t, err)

	rec.WriteErr = errors.New("buffer is destroyed")
	err = WriteBuffers(q, []BufferWrite{{Provider: p, Binding: 0, Data: []byte{1, 2, 3, 4}}})
	var devErr *gpu.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "write buffer anim uniforms", devErr.Op)
	assert.ErrorContains(t, err, "buffer is destroyed")
}

func TestReleaseOrder(t *testing.T) {
	rec, d, q := newDevice(t)
	mesh, err := InitMesh(d, q, "quad", make([]byte, 80), 20, []uint32{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	uniforms, err := InitUniforms(d, q, "anim", uniformLayout(t, d, 32), make([]byte, 32))
	require.NoError(t, err)

	uniforms.Release()
	mesh.Release()
	mesh.Release()

	released := rec.Released()
	require.Len(t, released, 4)
	assert.Equal(t, "anim bind group", released[0].Label)
	assert.Equal(t, "anim uniforms", released[1].Label)
	assert.Equal(t, "quad indices", released[2].Label)
	assert.Equal(t, "quad vertices", released[3].Label)
	assert.Empty(t, rec.DoubleReleases())
}
