package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/teardown"
	"github.com/cogentcore/webgpu/wgpu"
)

// AcquireOptions controls context acquisition.
type AcquireOptions struct {
	// Label is the device label.
	Label string

	// Timeout bounds each of the adapter and device waits. Zero waits until ctx is done.
	Timeout time.Duration

	ForceFallbackAdapter bool
	PowerPreference      wgpu.PowerPreference

	// Budget lists the limits requested from the device.
	Budget LimitBudget

	// DebugMarkers submits a probe command buffer carrying debug markers right after acquisition.
	DebugMarkers bool

	Logger *slog.Logger
}

// DefaultAcquireOptions returns options with a five second timeout and the default limit budget.
func DefaultAcquireOptions() AcquireOptions {
	return AcquireOptions{
		Label:           "oxy-hello device",
		Timeout:         5 * time.Second,
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
		Budget:          DefaultLimitBudget(),
	}
}

// Context owns the surface, adapter, device and queue obtained by AcquireContext.
// The instance is released before AcquireContext returns.
type Context struct {
	Surface gpu.Surface
	Adapter gpu.Adapter
	Device  gpu.Device
	Queue   gpu.Queue

	// Info describes the adapter; it stays valid after the adapter is released.
	Info gpu.AdapterInfo
	// AdapterLimits are the limits the adapter reported.
	AdapterLimits gpu.Limits
	// RequiredLimits are the limits the device was requested with.
	RequiredLimits gpu.Limits

	seq teardown.Sequencer
}

// AcquireContext creates an instance, binds a surface to source, and obtains an adapter and
// a device subject to opts.Budget. Both requests block until their callback fires, ctx is done,
// or opts.Timeout elapses. On failure every handle acquired so far is released; after a timeout
// or cancellation that happens in the background once the abandoned request returns.
//
// Parameters:
//   - ctx: cancels the adapter and device waits
//   - backend: the GPU backend
//   - source: the window providing the surface
//   - opts: acquisition options
//
// Returns:
//   - *Context: the acquired context
//   - error: an *AcquisitionError describing the failed stage
func AcquireContext(ctx context.Context, backend gpu.Backend, source gpu.SurfaceSource, opts AcquireOptions) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{seq: teardown.NewSequencer(teardown.WithLogger(logger))}

	instance, err := backend.CreateInstance()
	if err != nil {
		return nil, &AcquisitionError{Stage: StageInstance, Err: err}
	}
	if instance == nil {
		return nil, &AcquisitionError{Stage: StageInstance, Message: "backend returned no instance"}
	}
	_ = c.seq.Track("instance", instance)

	fail := func(err error) (*Context, error) {
		c.seq.Release()
		return nil, err
	}
	// An abandoned request may still be inside the native call, so nothing is released until it returns.
	abandon := func(issued <-chan struct{}, err error) (*Context, error) {
		logger.Debug("request abandoned, release deferred until it returns", slog.Any("error", err))
		go func() {
			<-issued
			c.seq.Release()
		}()
		return nil, err
	}

	surface, err := instance.CreateSurface(source)
	if err != nil {
		return fail(&AcquisitionError{Stage: StageSurface, Err: err})
	}
	c.Surface = surface
	_ = c.seq.Track("surface", surface)

	adapter, status, message, issued, err := await(ctx, opts.Timeout, func(r *request[gpu.Adapter]) {
		instance.RequestAdapter(gpu.AdapterOptions{
			CompatibleSurface:    surface,
			ForceFallbackAdapter: opts.ForceFallbackAdapter,
			PowerPreference:      opts.PowerPreference,
		}, r.complete)
	})
	if err != nil {
		return abandon(issued, &AcquisitionError{Stage: StageAdapter, Status: status, Err: err})
	}
	if status != gpu.RequestStatusSuccess || adapter == nil {
		if adapter != nil {
			adapter.Release()
		}
		return fail(&AcquisitionError{Stage: StageAdapter, Status: status, Message: message})
	}
	c.Adapter = adapter
	_ = c.seq.Track("adapter", adapter)
	c.Info = adapter.Info()
	c.AdapterLimits = adapter.Limits()
	logger.Info("adapter acquired",
		slog.String("name", c.Info.Name),
		slog.String("backend", c.Info.Backend),
		slog.String("type", c.Info.AdapterType),
		slog.String("driver", c.Info.Driver),
	)

	required, err := ResolveLimits(opts.Budget, c.AdapterLimits)
	if err != nil {
		return fail(err)
	}
	c.RequiredLimits = required

	device, status, message, issued, err := await(ctx, opts.Timeout, func(r *request[gpu.Device]) {
		adapter.RequestDevice(gpu.DeviceDescriptor{
			Label:          opts.Label,
			RequiredLimits: required,
			OnDeviceLost: func(reason, message string) {
				logger.Warn("device lost", slog.String("reason", reason), slog.String("message", message))
			},
		}, r.complete)
	})
	if err != nil {
		return abandon(issued, &AcquisitionError{Stage: StageDevice, Status: status, Err: err})
	}
	if status != gpu.RequestStatusSuccess || device == nil {
		if device != nil {
			device.Release()
		}
		return fail(&AcquisitionError{Stage: StageDevice, Status: status, Message: message})
	}
	c.Device = device
	_ = c.seq.Track("device", device)
	c.Queue = device.Queue()
	_ = c.seq.Track("queue", c.Queue, "device")
	c.Queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		logger.Info("queued work finished", slog.String("status", status.String()))
	})

	if err := c.seq.ReleaseOne("instance"); err != nil {
		return fail(err)
	}

	if opts.DebugMarkers {
		if err := c.probe(); err != nil {
			return fail(logDeviceError(logger, fmt.Errorf("probe submission: %w", err)))
		}
	}
	return c, nil
}

// ReleaseAdapter releases the adapter ahead of teardown. It is a no-op if the adapter is already gone.
func (c *Context) ReleaseAdapter() {
	if c.Adapter == nil {
		return
	}
	_ = c.seq.ReleaseOne("adapter")
	c.Adapter = nil
}

// Release releases the queue, device, adapter and surface in reverse creation order.
func (c *Context) Release() {
	c.seq.Release()
}

// probe encodes and submits an empty command buffer carrying two debug markers.
func (c *Context) probe() error {
	encoder, err := c.Device.CreateCommandEncoder("probe encoder")
	if err != nil {
		return err
	}
	defer encoder.Release()
	for _, marker := range []string{"Do this", "Do that"} {
		if err := encoder.InsertDebugMarker(marker); err != nil {
			return err
		}
	}
	cmd, err := encoder.Finish("probe commands")
	if err != nil {
		return err
	}
	defer cmd.Release()
	c.Queue.Submit(cmd)
	return nil
}
