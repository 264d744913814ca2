package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrForeignHandle is returned when a handle created by another Backend is passed to a wgpu object.
var ErrForeignHandle = errors.New("gpu: handle does not belong to the wgpu backend")

type wgpuBackend struct{}

// WGPU returns the Backend backed by github.com/cogentcore/webgpu.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpu
func WGPU() Backend {
	return wgpuBackend{}
}

func (wgpuBackend) CreateInstance() (Instance, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errors.New("wgpu: CreateInstance returned a null instance")
	}
	return &wgpuInstance{instance: inst}, nil
}

type wgpuInstance struct {
	instance *wgpu.Instance
}

func (i *wgpuInstance) Release() {
	i.instance.Release()
}

func (i *wgpuInstance) CreateSurface(source SurfaceSource) (Surface, error) {
	desc := source.SurfaceDescriptor()
	if desc == nil {
		return nil, errors.New("gpu: window has no surface descriptor")
	}
	s := i.instance.CreateSurface(desc)
	if s == nil {
		return nil, errors.New("wgpu: CreateSurface returned a null surface")
	}
	return &wgpuSurface{surface: s}, nil
}

// RequestAdapter resolves synchronously: the binding blocks inside the native
// request and the callback fires before this method returns.
func (i *wgpuInstance) RequestAdapter(opts AdapterOptions, callback AdapterCallback) {
	native := &wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		PowerPreference:      opts.PowerPreference,
	}
	if s, ok := opts.CompatibleSurface.(*wgpuSurface); ok {
		native.CompatibleSurface = s.surface
	}
	a, err := i.instance.RequestAdapter(native)
	if err != nil {
		callback(RequestStatusUnavailable, nil, err.Error())
		return
	}
	if a == nil {
		callback(RequestStatusUnknown, nil, "adapter request returned no adapter")
		return
	}
	callback(RequestStatusSuccess, &wgpuAdapter{adapter: a}, "")
}

type wgpuAdapter struct {
	adapter *wgpu.Adapter
}

func (a *wgpuAdapter) Release() {
	a.adapter.Release()
}

func (a *wgpuAdapter) Info() AdapterInfo {
	info := a.adapter.GetInfo()
	return AdapterInfo{
		Name:        info.Name,
		Backend:     fmt.Sprint(info.BackendType),
		AdapterType: fmt.Sprint(info.AdapterType),
		Driver:      info.DriverDescription,
	}
}

func (a *wgpuAdapter) Limits() Limits {
	return limitsFromWGPU(a.adapter.GetLimits().Limits)
}

func (a *wgpuAdapter) RequestDevice(desc DeviceDescriptor, callback DeviceCallback) {
	native := &wgpu.DeviceDescriptor{
		Label: desc.Label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limitsToWGPU(desc.RequiredLimits),
		},
	}
	if onLost := desc.OnDeviceLost; onLost != nil {
		native.DeviceLostCallback = func(reason wgpu.DeviceLostReason, message string) {
			onLost(fmt.Sprint(reason), message)
		}
	}
	d, err := a.adapter.RequestDevice(native)
	if err != nil {
		callback(RequestStatusError, nil, err.Error())
		return
	}
	if d == nil {
		callback(RequestStatusUnknown, nil, "device request returned no device")
		return
	}
	callback(RequestStatusSuccess, &wgpuDevice{device: d}, "")
}

type wgpuDevice struct {
	device *wgpu.Device
	queue  *wgpuQueue
}

func (d *wgpuDevice) Release() {
	d.device.Release()
}

func (d *wgpuDevice) Queue() Queue {
	if d.queue == nil {
		d.queue = &wgpuQueue{queue: d.device.GetQueue()}
	}
	return d.queue
}

func (d *wgpuDevice) Limits() Limits {
	return limitsFromWGPU(d.device.GetLimits().Limits)
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	b, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: b, label: desc.Label, size: desc.Size}, nil
}

func (d *wgpuDevice) CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Code,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{module: m}, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	l, err := d.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{layout: l}, nil
}

func (d *wgpuDevice) CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		native, ok := l.(*wgpuBindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline layout %q group %d: %w", desc.Label, i, ErrForeignHandle)
		}
		layouts[i] = native.layout
	}
	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipelineLayout{layout: pl}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	layout, ok := desc.Layout.(*wgpuPipelineLayout)
	if !ok {
		return nil, fmt.Errorf("render pipeline %q layout: %w", desc.Label, ErrForeignHandle)
	}
	module, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, fmt.Errorf("render pipeline %q module: %w", desc.Label, ErrForeignHandle)
	}
	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     module.module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module.module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    desc.Targets,
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{pipeline: p}, nil
}

func (d *wgpuDevice) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	layout, ok := desc.Layout.(*wgpuBindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q layout: %w", desc.Label, ErrForeignHandle)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		buf, ok := e.Buffer.(*wgpuBuffer)
		if !ok {
			return nil, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, ErrForeignHandle)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  buf.buffer,
			Offset:  e.Offset,
			Size:    e.Size,
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: bg}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	e, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: e}, nil
}

func (d *wgpuDevice) Poll(wait bool) {
	d.device.Poll(wait, nil)
}

type wgpuQueue struct {
	queue *wgpu.Queue
}

func (q *wgpuQueue) Release() {
	q.queue.Release()
}

func (q *wgpuQueue) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	native, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignHandle
	}
	if !Fits(offset, len(data), native.size) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer %q size %d", len(data), offset, native.label, native.size)
	}
	if err := q.queue.WriteBuffer(native.buffer, offset, data); err != nil {
		return &DeviceError{Op: "write buffer " + native.label, Err: err}
	}
	return nil
}

func (q *wgpuQueue) Submit(commands ...CommandBuffer) {
	native := make([]*wgpu.CommandBuffer, 0, len(commands))
	for _, c := range commands {
		if cb, ok := c.(*wgpuCommandBuffer); ok {
			native = append(native, cb.buffer)
		}
	}
	q.queue.Submit(native...)
}

func (q *wgpuQueue) OnSubmittedWorkDone(callback func(status wgpu.QueueWorkDoneStatus)) {
	q.queue.OnSubmittedWorkDone(callback)
}

type wgpuSurface struct {
	surface    *wgpu.Surface
	configured bool
}

func (s *wgpuSurface) Release() {
	s.surface.Release()
}

func (s *wgpuSurface) Capabilities(adapter Adapter) SurfaceCapabilities {
	a, ok := adapter.(*wgpuAdapter)
	if !ok {
		return SurfaceCapabilities{}
	}
	caps := s.surface.GetCapabilities(a.adapter)
	return SurfaceCapabilities{
		Formats:      caps.Formats,
		PresentModes: caps.PresentModes,
		AlphaModes:   caps.AlphaModes,
	}
}

func (s *wgpuSurface) Configure(adapter Adapter, device Device, cfg SurfaceConfiguration) error {
	a, ok := adapter.(*wgpuAdapter)
	if !ok {
		return fmt.Errorf("surface configure adapter: %w", ErrForeignHandle)
	}
	d, ok := device.(*wgpuDevice)
	if !ok {
		return fmt.Errorf("surface configure device: %w", ErrForeignHandle)
	}
	s.surface.Configure(a.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       cfg.Usage,
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: cfg.PresentMode,
		AlphaMode:   cfg.AlphaMode,
	})
	s.configured = true
	return nil
}

// Unconfigure marks the surface unusable for acquisition. The binding drops the
// native swapchain together with the surface handle in Release.
func (s *wgpuSurface) Unconfigure() {
	s.configured = false
}

func (s *wgpuSurface) CurrentTexture() (Texture, error) {
	if !s.configured {
		return nil, errors.New("surface is not configured")
	}
	t, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{texture: t}, nil
}

func (s *wgpuSurface) Present() {
	s.surface.Present()
}

type wgpuTexture struct {
	texture *wgpu.Texture
}

func (t *wgpuTexture) Release() {
	t.texture.Release()
}

// CreateView creates a default view over the whole texture. The label is only
// kept by recording backends.
func (t *wgpuTexture) CreateView(string) (TextureView, error) {
	v, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: v}, nil
}

type wgpuCommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) Release() {
	e.encoder.Release()
}

func (e *wgpuCommandEncoder) InsertDebugMarker(label string) error {
	if err := e.encoder.InsertDebugMarker(label); err != nil {
		return &DeviceError{Op: "insert debug marker", Err: err}
	}
	return nil
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc RenderPassDescriptor) (RenderPassEncoder, error) {
	view, ok := desc.View.(*wgpuTextureView)
	if !ok {
		return nil, fmt.Errorf("render pass view: %w", ErrForeignHandle)
	}
	pass := e.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: desc.ClearValue,
			},
		},
	})
	return &wgpuRenderPass{pass: pass}, nil
}

func (e *wgpuCommandEncoder) Finish(label string) (CommandBuffer, error) {
	cb, err := e.encoder.Finish(&wgpu.CommandBufferDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{buffer: cb}, nil
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) Release() {
	p.pass.Release()
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	if native, ok := rp.(*wgpuRenderPipeline); ok {
		p.pass.SetPipeline(native.pipeline)
	}
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, bg BindGroup) {
	if native, ok := bg.(*wgpuBindGroup); ok {
		p.pass.SetBindGroup(index, native.group, nil)
	}
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	if native, ok := buf.(*wgpuBuffer); ok {
		p.pass.SetVertexBuffer(slot, native.buffer, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat) {
	if native, ok := buf.(*wgpuBuffer); ok {
		p.pass.SetIndexBuffer(native.buffer, format, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	if err := p.pass.End(); err != nil {
		return &DeviceError{Op: "end render pass", Err: err}
	}
	return nil
}

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	label  string
	size   uint64
}

func (b *wgpuBuffer) Release()      { b.buffer.Release() }
func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }

type wgpuShaderModule struct{ module *wgpu.ShaderModule }

func (m *wgpuShaderModule) Release() { m.module.Release() }

type wgpuBindGroupLayout struct{ layout *wgpu.BindGroupLayout }

func (l *wgpuBindGroupLayout) Release() { l.layout.Release() }

type wgpuPipelineLayout struct{ layout *wgpu.PipelineLayout }

func (l *wgpuPipelineLayout) Release() { l.layout.Release() }

type wgpuRenderPipeline struct{ pipeline *wgpu.RenderPipeline }

func (p *wgpuRenderPipeline) Release() { p.pipeline.Release() }

type wgpuBindGroup struct{ group *wgpu.BindGroup }

func (g *wgpuBindGroup) Release() { g.group.Release() }

type wgpuTextureView struct{ view *wgpu.TextureView }

func (v *wgpuTextureView) Release() { v.view.Release() }

type wgpuCommandBuffer struct{ buffer *wgpu.CommandBuffer }

func (c *wgpuCommandBuffer) Release() { c.buffer.Release() }

// limitsToWGPU starts from the binding's default limits and overlays every field
// this package models, undefined sentinels included.
func limitsToWGPU(l Limits) wgpu.Limits {
	native := wgpu.DefaultLimits()
	native.MaxTextureDimension2D = l.MaxTextureDimension2D
	native.MaxBindGroups = l.MaxBindGroups
	native.MaxBindingsPerBindGroup = l.MaxBindingsPerBindGroup
	native.MaxUniformBuffersPerShaderStage = l.MaxUniformBuffersPerShaderStage
	native.MaxUniformBufferBindingSize = l.MaxUniformBufferBindingSize
	native.MaxVertexBuffers = l.MaxVertexBuffers
	native.MaxVertexAttributes = l.MaxVertexAttributes
	native.MaxVertexBufferArrayStride = l.MaxVertexBufferArrayStride
	native.MaxBufferSize = l.MaxBufferSize
	native.MinUniformBufferOffsetAlignment = l.MinUniformBufferOffsetAlignment
	native.MinStorageBufferOffsetAlignment = l.MinStorageBufferOffsetAlignment
	return native
}

func limitsFromWGPU(native wgpu.Limits) Limits {
	return Limits{
		MaxTextureDimension2D:           native.MaxTextureDimension2D,
		MaxBindGroups:                   native.MaxBindGroups,
		MaxBindingsPerBindGroup:         native.MaxBindingsPerBindGroup,
		MaxUniformBuffersPerShaderStage: native.MaxUniformBuffersPerShaderStage,
		MaxUniformBufferBindingSize:     native.MaxUniformBufferBindingSize,
		MaxVertexBuffers:                native.MaxVertexBuffers,
		MaxVertexAttributes:             native.MaxVertexAttributes,
		MaxVertexBufferArrayStride:      native.MaxVertexBufferArrayStride,
		MaxBufferSize:                   native.MaxBufferSize,
		MinUniformBufferOffsetAlignment: native.MinUniformBufferOffsetAlignment,
		MinStorageBufferOffsetAlignment: native.MinStorageBufferOffsetAlignment,
	}
}
