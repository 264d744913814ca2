package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformTimeEnd is the smallest uniform block that holds the time field.
const uniformTimeEnd = material.GPUUniformsTimeOffset + 4

// FrameResult reports whether a frame reached the display.
type FrameResult int

const (
	// FrameDrawn means the frame was submitted and presented.
	FrameDrawn FrameResult = iota
	// FrameSkipped means nothing was submitted this frame.
	FrameSkipped
)

func (f FrameResult) String() string {
	if f == FrameDrawn {
		return "drawn"
	}
	return "skipped"
}

// FrameStats counts frames by result.
type FrameStats struct {
	Drawn   uint64
	Skipped uint64
}

// transients holds the handles acquired during one frame. They are released in reverse
// acquisition order when the frame ends, whether or not it completed.
type transients []gpu.Releaser

func (t *transients) push(r gpu.Releaser) {
	*t = append(*t, r)
}

func (t transients) release() {
	for i := len(t) - 1; i >= 0; i-- {
		t[i].Release()
	}
}

func (r *renderer) Frame(t float32) (FrameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return FrameSkipped, errReleased
	}
	if r.minimized {
		r.stats.Skipped++
		return FrameSkipped, nil
	}

	texture, err := r.surface.Surface.CurrentTexture()
	if err != nil {
		r.stats.Skipped++
		r.logger.Debug("frame skipped", slog.Any("error", err))
		return FrameSkipped, fmt.Errorf("%w: %w", ErrSurfaceAcquisitionSkip, err)
	}

	var held transients
	defer func() { held.release() }()
	held.push(texture)

	if err := r.encodeAndSubmit(texture, t, &held); err != nil {
		return FrameSkipped, logDeviceError(r.logger, err)
	}
	r.surface.Surface.Present()
	r.stats.Drawn++

	// view and texture go before the poll
	held.release()
	held = nil
	r.ctx.Device.Poll(false)
	return FrameDrawn, nil
}

// encodeAndSubmit records one render pass into a view of texture and submits it. Every handle it
// acquires is pushed onto held.
func (r *renderer) encodeAndSubmit(texture gpu.Texture, t float32, held *transients) error {
	d := r.draw
	if d == nil {
		d = &drawState{}
	}

	if d.Animated {
		err := bind_group_provider.WriteBuffers(r.ctx.Queue, []bind_group_provider.BufferWrite{{
			Provider: d.Uniforms,
			Binding:  int(d.uniform.Binding),
			Offset:   material.GPUUniformsTimeOffset,
			Data:     material.MarshalTime(t),
		}})
		if err != nil {
			return fmt.Errorf("write time: %w", err)
		}
	}

	view, err := texture.CreateView("frame view")
	if err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	held.push(view)

	encoder, err := r.ctx.Device.CreateCommandEncoder("frame encoder")
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	held.push(encoder)

	pass, err := encoder.BeginRenderPass(gpu.RenderPassDescriptor{
		Label:      "frame pass",
		View:       view,
		ClearValue: d.ClearColor,
	})
	if err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	held.push(pass)

	if err := errors.Join(r.record(pass, d), pass.End()); err != nil {
		return err
	}

	cmd, err := encoder.Finish("frame commands")
	if err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	held.push(cmd)

	r.ctx.Queue.Submit(cmd)
	return nil
}

// record issues the single draw of d into pass. A drawable with no pipeline records nothing.
func (r *renderer) record(pass gpu.RenderPassEncoder, d *drawState) error {
	if d.Pipeline == "" {
		return nil
	}
	p, ok := r.pipelines.Get(d.Pipeline)
	if !ok {
		return &ConfigurationError{Component: "drawable " + d.Pipeline, Field: "pipeline", Want: "a cached pipeline", Got: "evicted"}
	}
	shape := p.DrawShape()

	pass.SetPipeline(p.RenderPipeline())
	if d.Uniforms != nil {
		pass.SetBindGroup(d.uniform.Group, d.Uniforms.BindGroup())
	}
	if d.Mesh != nil {
		pass.SetVertexBuffer(0, d.Mesh.VertexBuffer())
	}
	if shape.Indexed {
		pass.SetIndexBuffer(d.Mesh.IndexBuffer(), wgpu.IndexFormatUint32)
		pass.DrawIndexed(shape.Count, shape.Instances)
		return nil
	}
	pass.Draw(shape.Count, shape.Instances)
	return nil
}
