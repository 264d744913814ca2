// Package gputest provides a recording gpu.Backend for headless tests.
// Every handle creation and release is logged in order, queue writes are applied
// to an in-memory image of each buffer, and draw, submit and present calls are
// counted so tests can assert on the exact command stream of a frame.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Record identifies one handle in the creation or release log.
type Record struct {
	Kind  string
	ID    int
	Label string
}

func (r Record) String() string {
	return fmt.Sprintf("%s#%d(%s)", r.Kind, r.ID, r.Label)
}

// Draw is one recorded draw call.
type Draw struct {
	Indexed   bool
	Count     uint32
	Instances uint32
}

// Write is one recorded queue write.
type Write struct {
	Buffer string
	Offset uint64
	Data   []byte
}

// Recorder implements gpu.Backend. Configure the exported knobs before handing it to
// the code under test; read the exported logs afterwards. All methods are safe for
// concurrent use.
type Recorder struct {
	// InstanceErr, when set, makes CreateInstance fail.
	InstanceErr error

	// AdapterStatus and AdapterMessage are reported by RequestAdapter.
	AdapterStatus  gpu.RequestStatus
	AdapterMessage string

	// DeviceStatus and DeviceMessage are reported by RequestDevice.
	DeviceStatus  gpu.RequestStatus
	DeviceMessage string

	// HangAdapter makes RequestAdapter never invoke its callback.
	HangAdapter bool

	// AdapterGate, when set, makes RequestAdapter block until the channel is closed before
	// completing, the way a synchronous native request does.
	AdapterGate <-chan struct{}

	// AsyncCallbacks delivers request callbacks from a new goroutine after the request returns.
	AsyncCallbacks bool

	// AdapterLimits are the limits reported by the adapter and the device.
	AdapterLimits gpu.Limits

	// Capabilities are reported by every surface.
	Capabilities gpu.SurfaceCapabilities

	// AcquireErr, when set, is consulted on every CurrentTexture call with the 1-based call number.
	AcquireErr func(call int) error

	// EndErr and WriteErr, when set, are raised as device errors by RenderPassEncoder.End and
	// Queue.WriteBuffer.
	EndErr   error
	WriteErr error

	// WorkDoneStatus is reported to OnSubmittedWorkDone callbacks.
	WorkDoneStatus wgpu.QueueWorkDoneStatus

	mu             sync.Mutex
	nextID         int
	live           map[int]Record
	created        []Record
	released       []Record
	doubleReleases []Record
	afterRelease   []Record
	workDone       []func(wgpu.QueueWorkDoneStatus)
	contents       map[int][]byte
	writes         []Write
	draws          []Draw
	commands       []string
	markers        []string
	submits        int
	presents       int
	polls          int
	acquires       int
	configs        []gpu.SurfaceConfiguration
	deviceDescs    []gpu.DeviceDescriptor
	adapterOpts    []gpu.AdapterOptions
	bufferDescs    []gpu.BufferDescriptor
	layoutDescs    []wgpu.BindGroupLayoutDescriptor
	layoutByID     map[int]wgpu.BindGroupLayoutDescriptor
	pipelineDescs  []gpu.RenderPipelineDescriptor
	bindGroupDescs []gpu.BindGroupDescriptor
	onDeviceLost   func(reason, message string)
}

var _ gpu.Backend = &Recorder{}

// NewRecorder creates a Recorder whose requests succeed and whose adapter reports
// typical desktop limits and a BGRA8 surface.
func NewRecorder() *Recorder {
	return &Recorder{
		AdapterStatus: gpu.RequestStatusSuccess,
		DeviceStatus:  gpu.RequestStatusSuccess,
		AdapterLimits: gpu.Limits{
			MaxTextureDimension2D:           8192,
			MaxBindGroups:                   4,
			MaxBindingsPerBindGroup:         1000,
			MaxUniformBuffersPerShaderStage: 12,
			MaxUniformBufferBindingSize:     65536,
			MaxVertexBuffers:                8,
			MaxVertexAttributes:             16,
			MaxVertexBufferArrayStride:      2048,
			MaxBufferSize:                   256 << 20,
			MinUniformBufferOffsetAlignment: 256,
			MinStorageBufferOffsetAlignment: 32,
		},
		Capabilities: gpu.SurfaceCapabilities{
			Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm},
			PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate},
			AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
		},
		live:       make(map[int]Record),
		contents:   make(map[int][]byte),
		layoutByID: make(map[int]wgpu.BindGroupLayoutDescriptor),
	}
}

func (r *Recorder) CreateInstance() (gpu.Instance, error) {
	if r.InstanceErr != nil {
		return nil, r.InstanceErr
	}
	return &instance{handle: r.create("instance", "")}, nil
}

// NewDevice creates a device directly, bypassing the instance and adapter requests.
func (r *Recorder) NewDevice() gpu.Device {
	return &device{handle: r.create("device", "test device")}
}

// Created returns the creation log in order.
func (r *Recorder) Created() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.created...)
}

// Released returns the release log in order.
func (r *Recorder) Released() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.released...)
}

// Outstanding returns every handle created but not yet released, in creation order.
func (r *Recorder) Outstanding() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.live))
	for _, c := range r.created {
		if _, ok := r.live[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// DoubleReleases returns every handle released more than once.
func (r *Recorder) DoubleReleases() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.doubleReleases...)
}

// UsedAfterRelease returns every handle a native-side call touched after it was released.
func (r *Recorder) UsedAfterRelease() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.afterRelease...)
}

// Kinds returns the kinds of records in order.
func Kinds(records []Record) []string {
	kinds := make([]string, len(records))
	for i, rec := range records {
		kinds[i] = rec.Kind
	}
	return kinds
}

// Draws returns every recorded draw call.
func (r *Recorder) Draws() []Draw {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Draw(nil), r.draws...)
}

// Commands returns the render pass commands recorded, e.g. "SetPipeline(quad)".
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Markers returns the debug markers inserted into command encoders.
func (r *Recorder) Markers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.markers...)
}

// Writes returns every queue write in order.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.writes...)
}

// Contents returns the current in-memory image of buf.
func (r *Recorder) Contents(buf gpu.Buffer) []byte {
	b, ok := buf.(*buffer)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.contents[b.id]...)
}

// Submits returns the number of Queue.Submit calls.
func (r *Recorder) Submits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submits
}

// Presents returns the number of Surface.Present calls.
func (r *Recorder) Presents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents
}

// Polls returns the number of Device.Poll calls.
func (r *Recorder) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

// Acquires returns the number of Surface.CurrentTexture calls.
func (r *Recorder) Acquires() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquires
}

// SurfaceConfigs returns every surface configuration applied.
func (r *Recorder) SurfaceConfigs() []gpu.SurfaceConfiguration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.SurfaceConfiguration(nil), r.configs...)
}

// AdapterRequests returns the options of every adapter request.
func (r *Recorder) AdapterRequests() []gpu.AdapterOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.AdapterOptions(nil), r.adapterOpts...)
}

// DeviceRequests returns the descriptors of every device request.
func (r *Recorder) DeviceRequests() []gpu.DeviceDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.DeviceDescriptor(nil), r.deviceDescs...)
}

// BufferDescriptors returns the descriptors of every created buffer.
func (r *Recorder) BufferDescriptors() []gpu.BufferDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.BufferDescriptor(nil), r.bufferDescs...)
}

// BindGroupLayouts returns the descriptors of every created bind group layout.
func (r *Recorder) BindGroupLayouts() []wgpu.BindGroupLayoutDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wgpu.BindGroupLayoutDescriptor(nil), r.layoutDescs...)
}

// RenderPipelines returns the descriptors of every created render pipeline.
func (r *Recorder) RenderPipelines() []gpu.RenderPipelineDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.RenderPipelineDescriptor(nil), r.pipelineDescs...)
}

// BindGroups returns the descriptors of every created bind group.
func (r *Recorder) BindGroups() []gpu.BindGroupDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.BindGroupDescriptor(nil), r.bindGroupDescs...)
}

// LoseDevice invokes the device-lost callback registered by the last device request.
func (r *Recorder) LoseDevice(reason, message string) {
	r.mu.Lock()
	cb := r.onDeviceLost
	r.mu.Unlock()
	if cb != nil {
		cb(reason, message)
	}
}

func (r *Recorder) create(kind, label string) handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec := Record{Kind: kind, ID: r.nextID, Label: label}
	r.live[rec.ID] = rec
	r.created = append(r.created, rec)
	return handle{rec: r, id: rec.ID, kind: kind, label: label}
}

func (r *Recorder) release(h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.live[h.id]
	if !ok {
		r.doubleReleases = append(r.doubleReleases, Record{Kind: h.kind, ID: h.id, Label: h.label})
		return
	}
	delete(r.live, h.id)
	r.released = append(r.released, rec)
}

// touch records h as used after release if it is no longer live.
func (r *Recorder) touch(h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h.id]; !ok {
		r.afterRelease = append(r.afterRelease, Record{Kind: h.kind, ID: h.id, Label: h.label})
	}
}

func (r *Recorder) deliver(fn func()) {
	if r.AsyncCallbacks {
		go fn()
		return
	}
	fn()
}

type handle struct {
	rec   *Recorder
	id    int
	kind  string
	label string
}

func (h *handle) Release() {
	h.rec.release(h)
}

// ID returns the handle's creation sequence number.
func (h *handle) ID() int {
	return h.id
}

type instance struct{ handle }

func (i *instance) CreateSurface(source gpu.SurfaceSource) (gpu.Surface, error) {
	return &surface{handle: i.rec.create("surface", "")}, nil
}

func (i *instance) RequestAdapter(opts gpu.AdapterOptions, callback gpu.AdapterCallback) {
	r := i.rec
	r.mu.Lock()
	r.adapterOpts = append(r.adapterOpts, opts)
	r.mu.Unlock()
	if r.HangAdapter {
		return
	}
	if r.AdapterGate != nil {
		<-r.AdapterGate
		r.touch(&i.handle)
		if s, ok := opts.CompatibleSurface.(*surface); ok {
			r.touch(&s.handle)
		}
	}
	r.deliver(func() {
		if r.AdapterStatus != gpu.RequestStatusSuccess {
			callback(r.AdapterStatus, nil, r.AdapterMessage)
			return
		}
		callback(gpu.RequestStatusSuccess, &adapter{handle: r.create("adapter", "")}, "")
	})
}

type adapter struct{ handle }

func (a *adapter) Info() gpu.AdapterInfo {
	return gpu.AdapterInfo{Name: "Recorder GPU", Backend: "Null", AdapterType: "CPU", Driver: "gputest"}
}

func (a *adapter) Limits() gpu.Limits {
	return a.rec.AdapterLimits
}

func (a *adapter) RequestDevice(desc gpu.DeviceDescriptor, callback gpu.DeviceCallback) {
	r := a.rec
	r.mu.Lock()
	r.deviceDescs = append(r.deviceDescs, desc)
	r.onDeviceLost = desc.OnDeviceLost
	r.mu.Unlock()
	r.deliver(func() {
		if r.DeviceStatus != gpu.RequestStatusSuccess {
			callback(r.DeviceStatus, nil, r.DeviceMessage)
			return
		}
		callback(gpu.RequestStatusSuccess, &device{handle: r.create("device", desc.Label)}, "")
	})
}

type device struct {
	handle
	queue *queue
}

func (d *device) Queue() gpu.Queue {
	if d.queue == nil {
		d.queue = &queue{handle: d.rec.create("queue", "")}
	}
	return d.queue
}

func (d *device) Limits() gpu.Limits {
	return d.rec.AdapterLimits
}

func (d *device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q: zero size", desc.Label)
	}
	b := &buffer{handle: d.rec.create("buffer", desc.Label), size: desc.Size}
	d.rec.mu.Lock()
	d.rec.bufferDescs = append(d.rec.bufferDescs, desc)
	d.rec.contents[b.id] = make([]byte, desc.Size)
	d.rec.mu.Unlock()
	return b, nil
}

func (d *device) CreateShaderModule(desc gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	if desc.Code == "" {
		return nil, errors.New("empty shader source")
	}
	h := d.rec.create("shader_module", desc.Label)
	return &h, nil
}

func (d *device) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	h := d.rec.create("bind_group_layout", desc.Label)
	d.rec.mu.Lock()
	d.rec.layoutDescs = append(d.rec.layoutDescs, desc)
	d.rec.layoutByID[h.id] = desc
	d.rec.mu.Unlock()
	return &h, nil
}

func (d *device) CreatePipelineLayout(desc gpu.PipelineLayoutDescriptor) (gpu.PipelineLayout, error) {
	h := d.rec.create("pipeline_layout", desc.Label)
	return &h, nil
}

func (d *device) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	h := d.rec.create("render_pipeline", desc.Label)
	d.rec.mu.Lock()
	d.rec.pipelineDescs = append(d.rec.pipelineDescs, desc)
	d.rec.mu.Unlock()
	return &h, nil
}

func (d *device) CreateBindGroup(desc gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	var layout wgpu.BindGroupLayoutDescriptor
	if h, ok := desc.Layout.(*handle); ok {
		d.rec.mu.Lock()
		layout = d.rec.layoutByID[h.id]
		d.rec.mu.Unlock()
	}
	for _, e := range desc.Entries {
		if e.Buffer != nil && e.Offset+e.Size > e.Buffer.Size() {
			return nil, fmt.Errorf("bind group %q binding %d: range exceeds buffer", desc.Label, e.Binding)
		}
		for _, le := range layout.Entries {
			if le.Binding == e.Binding && e.Size < le.Buffer.MinBindingSize {
				return nil, fmt.Errorf("bind group %q binding %d: size %d below layout minimum %d", desc.Label, e.Binding, e.Size, le.Buffer.MinBindingSize)
			}
		}
	}
	h := d.rec.create("bind_group", desc.Label)
	d.rec.mu.Lock()
	d.rec.bindGroupDescs = append(d.rec.bindGroupDescs, desc)
	d.rec.mu.Unlock()
	return &h, nil
}

func (d *device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	return &encoder{handle: d.rec.create("command_encoder", label)}, nil
}

// Poll fires every pending OnSubmittedWorkDone callback.
func (d *device) Poll(bool) {
	d.rec.mu.Lock()
	d.rec.polls++
	pending := d.rec.workDone
	d.rec.workDone = nil
	status := d.rec.WorkDoneStatus
	d.rec.mu.Unlock()
	for _, cb := range pending {
		cb(status)
	}
}

type queue struct{ handle }

func (q *queue) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*buffer)
	if !ok {
		return errors.New("foreign buffer")
	}
	if !gpu.Fits(offset, len(data), b.size) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer %q size %d", len(data), offset, b.label, b.size)
	}
	if q.rec.WriteErr != nil {
		return &gpu.DeviceError{Op: "write buffer " + b.label, Err: q.rec.WriteErr}
	}
	q.rec.mu.Lock()
	defer q.rec.mu.Unlock()
	copy(q.rec.contents[b.id][offset:], data)
	q.rec.writes = append(q.rec.writes, Write{Buffer: b.label, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (q *queue) Submit(commands ...gpu.CommandBuffer) {
	q.rec.mu.Lock()
	q.rec.submits++
	q.rec.mu.Unlock()
}

func (q *queue) OnSubmittedWorkDone(callback func(status wgpu.QueueWorkDoneStatus)) {
	q.rec.mu.Lock()
	q.rec.workDone = append(q.rec.workDone, callback)
	q.rec.mu.Unlock()
}

type surface struct{ handle }

func (s *surface) Capabilities(gpu.Adapter) gpu.SurfaceCapabilities {
	return s.rec.Capabilities
}

func (s *surface) Configure(_ gpu.Adapter, _ gpu.Device, cfg gpu.SurfaceConfiguration) error {
	s.rec.mu.Lock()
	s.rec.configs = append(s.rec.configs, cfg)
	s.rec.mu.Unlock()
	return nil
}

func (s *surface) Unconfigure() {
	s.rec.mu.Lock()
	s.rec.commands = append(s.rec.commands, "Unconfigure")
	s.rec.mu.Unlock()
}

func (s *surface) CurrentTexture() (gpu.Texture, error) {
	s.rec.mu.Lock()
	s.rec.acquires++
	n := s.rec.acquires
	s.rec.mu.Unlock()
	if s.rec.AcquireErr != nil {
		if err := s.rec.AcquireErr(n); err != nil {
			return nil, err
		}
	}
	return &texture{handle: s.rec.create("surface_texture", "")}, nil
}

func (s *surface) Present() {
	s.rec.mu.Lock()
	s.rec.presents++
	s.rec.mu.Unlock()
}

type texture struct{ handle }

func (t *texture) CreateView(label string) (gpu.TextureView, error) {
	h := t.rec.create("texture_view", label)
	return &h, nil
}

type encoder struct{ handle }

func (e *encoder) InsertDebugMarker(label string) error {
	e.rec.mu.Lock()
	e.rec.markers = append(e.rec.markers, label)
	e.rec.mu.Unlock()
	return nil
}

func (e *encoder) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPassEncoder, error) {
	if desc.View == nil {
		return nil, errors.New("render pass without a view")
	}
	return &pass{handle: e.rec.create("render_pass", desc.Label)}, nil
}

func (e *encoder) Finish(label string) (gpu.CommandBuffer, error) {
	h := e.rec.create("command_buffer", label)
	return &h, nil
}

type pass struct{ handle }

func (p *pass) command(format string, args ...any) {
	p.rec.mu.Lock()
	p.rec.commands = append(p.rec.commands, fmt.Sprintf(format, args...))
	p.rec.mu.Unlock()
}

func (p *pass) SetPipeline(rp gpu.RenderPipeline) {
	p.command("SetPipeline(%s)", labelOf(rp))
}

func (p *pass) SetBindGroup(index uint32, bg gpu.BindGroup) {
	p.command("SetBindGroup(%d,%s)", index, labelOf(bg))
}

func (p *pass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	p.command("SetVertexBuffer(%d,%s)", slot, buf.Label())
}

func (p *pass) SetIndexBuffer(buf gpu.Buffer, format wgpu.IndexFormat) {
	p.command("SetIndexBuffer(%s)", buf.Label())
}

func (p *pass) Draw(vertexCount, instanceCount uint32) {
	p.rec.mu.Lock()
	p.rec.draws = append(p.rec.draws, Draw{Count: vertexCount, Instances: instanceCount})
	p.rec.mu.Unlock()
	p.command("Draw(%d,%d)", vertexCount, instanceCount)
}

func (p *pass) DrawIndexed(indexCount, instanceCount uint32) {
	p.rec.mu.Lock()
	p.rec.draws = append(p.rec.draws, Draw{Indexed: true, Count: indexCount, Instances: instanceCount})
	p.rec.mu.Unlock()
	p.command("DrawIndexed(%d,%d)", indexCount, instanceCount)
}

func (p *pass) End() error {
	p.command("End")
	if p.rec.EndErr != nil {
		return &gpu.DeviceError{Op: "end render pass", Err: p.rec.EndErr}
	}
	return nil
}

type buffer struct {
	handle
	size uint64
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }

func labelOf(v any) string {
	switch h := v.(type) {
	case *handle:
		return h.label
	case interface{ Label() string }:
		return h.Label()
	default:
		return "?"
	}
}
