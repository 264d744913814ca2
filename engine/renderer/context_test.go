package renderer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct{}

func (fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return &wgpu.SurfaceDescriptor{Label: "fake window"}
}

func acquire(t *testing.T, rec *gputest.Recorder, opts AcquireOptions) *Context {
	t.Helper()
	c, err := AcquireContext(context.Background(), rec, fakeWindow{}, opts)
	require.NoError(t, err)
	return c
}

func TestAcquireContext(t *testing.T) {
	rec := gputest.NewRecorder()
	opts := DefaultAcquireOptions()
	opts.DebugMarkers = true
	c := acquire(t, rec, opts)

	assert.Equal(t, "Recorder GPU", c.Info.Name)
	assert.Equal(t, []string{"instance", "surface", "adapter", "device", "queue", "command_encoder", "command_buffer"}, gputest.Kinds(rec.Created()))
	// instance goes right after the device, the probe handles right after submission
	assert.Equal(t, []string{"instance", "command_buffer", "command_encoder"}, gputest.Kinds(rec.Released()))
	assert.Equal(t, []string{"Do this", "Do that"}, rec.Markers())
	assert.Equal(t, 1, rec.Submits())

	require.Len(t, rec.AdapterRequests(), 1)
	assert.NotNil(t, rec.AdapterRequests()[0].CompatibleSurface)
	assert.Equal(t, wgpu.PowerPreferenceHighPerformance, rec.AdapterRequests()[0].PowerPreference)

	c.Release()
	assert.Equal(t, []string{"queue", "device", "adapter", "surface"}, gputest.Kinds(rec.Released())[3:])
	assert.Empty(t, rec.Outstanding())
	assert.Empty(t, rec.DoubleReleases())
}

func TestAcquireContextRequestsResolvedLimits(t *testing.T) {
	rec := gputest.NewRecorder()
	c := acquire(t, rec, DefaultAcquireOptions())
	defer c.Release()

	require.Len(t, rec.DeviceRequests(), 1)
	got := rec.DeviceRequests()[0].RequiredLimits
	assert.Equal(t, uint32(2), got.MaxVertexAttributes)
	assert.Equal(t, uint32(20), got.MaxVertexBufferArrayStride)
	assert.Equal(t, gpu.LimitU32Undefined, got.MaxTextureDimension2D)
	assert.Equal(t, rec.AdapterLimits.MinUniformBufferOffsetAlignment, got.MinUniformBufferOffsetAlignment)
	assert.Equal(t, got, c.RequiredLimits)
}

func TestAcquireContextFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(rec *gputest.Recorder, opts *AcquireOptions)
		stage    Stage
		status   gpu.RequestStatus
		cause    error
		contains string
	}{
		{
			name:  "no instance",
			setup: func(rec *gputest.Recorder, _ *AcquireOptions) { rec.InstanceErr = errors.New("null instance") },
			stage: StageInstance,
		},
		{
			name: "adapter unavailable",
			setup: func(rec *gputest.Recorder, _ *AcquireOptions) {
				rec.AdapterStatus = gpu.RequestStatusUnavailable
				rec.AdapterMessage = "no compatible adapter"
			},
			stage:    StageAdapter,
			status:   gpu.RequestStatusUnavailable,
			contains: "no compatible adapter",
		},
		{
			name: "device error",
			setup: func(rec *gputest.Recorder, _ *AcquireOptions) {
				rec.DeviceStatus = gpu.RequestStatusError
				rec.DeviceMessage = "out of memory"
			},
			stage:    StageDevice,
			status:   gpu.RequestStatusError,
			contains: "out of memory",
		},
		{
			name: "adapter timeout",
			setup: func(rec *gputest.Recorder, opts *AcquireOptions) {
				rec.HangAdapter = true
				opts.Timeout = 20 * time.Millisecond
			},
			stage:  StageAdapter,
			status: gpu.RequestStatusUnknown,
			cause:  context.DeadlineExceeded,
		},
		{
			name: "budget over adapter limits",
			setup: func(rec *gputest.Recorder, _ *AcquireOptions) {
				rec.AdapterLimits.MaxVertexAttributes = 1
			},
			stage:    StageLimits,
			contains: "maxVertexAttributes: need 2, adapter supports 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			rec.AsyncCallbacks = true
			opts := DefaultAcquireOptions()
			tt.setup(rec, &opts)

			c, err := AcquireContext(context.Background(), rec, fakeWindow{}, opts)
			require.Error(t, err)
			assert.Nil(t, c)

			var acqErr *AcquisitionError
			require.ErrorAs(t, err, &acqErr)
			assert.Equal(t, tt.stage, acqErr.Stage)
			assert.Equal(t, tt.status, acqErr.Status)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
			assert.Eventually(t, func() bool { return len(rec.Outstanding()) == 0 }, time.Second, time.Millisecond,
				"every handle acquired before the failure is released")
			assert.Empty(t, rec.DoubleReleases())
		})
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	rec := gputest.NewRecorder()
	rec.HangAdapter = true
	ctx, cancel := context.WithCancel(context.Background())
	opts := DefaultAcquireOptions()
	opts.Timeout = 0

	done := make(chan error, 1)
	go func() {
		_, err := AcquireContext(ctx, rec, fakeWindow{}, opts)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquisition did not honour cancellation")
	}
	assert.Eventually(t, func() bool { return len(rec.Outstanding()) == 0 }, time.Second, time.Millisecond)
}

func TestAcquireContextTimeoutKeepsHandlesForBlockedRequest(t *testing.T) {
	rec := gputest.NewRecorder()
	gate := make(chan struct{})
	rec.AdapterGate = gate
	opts := DefaultAcquireOptions()
	opts.Timeout = 20 * time.Millisecond

	_, err := AcquireContext(context.Background(), rec, fakeWindow{}, opts)
	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, StageAdapter, acqErr.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, rec.Released(), "nothing is released while the request is still running")

	close(gate)
	assert.Eventually(t, func() bool { return len(rec.Outstanding()) == 0 }, time.Second, time.Millisecond)
	assert.Empty(t, rec.UsedAfterRelease(), "the request never sees a released instance or surface")
	assert.Equal(t, []string{"adapter", "surface", "instance"}, gputest.Kinds(rec.Released()),
		"the late adapter goes first, then the context in reverse order")
	assert.Empty(t, rec.DoubleReleases())
}

func TestQueuedWorkIsLogged(t *testing.T) {
	tests := []struct {
		name   string
		status wgpu.QueueWorkDoneStatus
		want   string
	}{
		{name: "success", status: wgpu.QueueWorkDoneStatusSuccess, want: "status=success"},
		{name: "device lost", status: wgpu.QueueWorkDoneStatusDeviceLost, want: "status=device-lost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logged strings.Builder
			rec := gputest.NewRecorder()
			rec.WorkDoneStatus = tt.status
			opts := DefaultAcquireOptions()
			opts.DebugMarkers = true
			opts.Logger = newTestLogger(&logged)
			c := acquire(t, rec, opts)
			defer c.Release()

			assert.NotContains(t, logged.String(), "queued work finished", "the callback fires from a poll")
			c.Device.Poll(false)
			assert.Contains(t, logged.String(), "queued work finished")
			assert.Contains(t, logged.String(), tt.want)
		})
	}
}

type releaseCounter struct{ n int }

func (r *releaseCounter) Release() { r.n++ }

func TestRequestReleasesLateHandle(t *testing.T) {
	r := newRequest[*releaseCounter]()
	require.True(t, r.abandon())

	late := &releaseCounter{}
	r.complete(gpu.RequestStatusSuccess, late, "")
	assert.Equal(t, 1, late.n, "a handle delivered after the waiter gave up is released")

	r = newRequest[*releaseCounter]()
	first, second := &releaseCounter{}, &releaseCounter{}
	r.complete(gpu.RequestStatusSuccess, first, "")
	r.complete(gpu.RequestStatusSuccess, second, "")
	assert.False(t, r.abandon())
	assert.Same(t, first, r.value)
	assert.Equal(t, 0, first.n)
	assert.Equal(t, 1, second.n, "a repeated callback does not replace the first handle")
}

func TestDeviceLostIsLogged(t *testing.T) {
	var logged strings.Builder
	rec := gputest.NewRecorder()
	opts := DefaultAcquireOptions()
	opts.Logger = newTestLogger(&logged)
	c := acquire(t, rec, opts)
	defer c.Release()

	rec.LoseDevice("destroyed", "device removed")
	assert.Contains(t, logged.String(), "device lost")
	assert.Contains(t, logged.String(), "device removed")
}

func TestResolveLimits(t *testing.T) {
	adapter := gputest.NewRecorder().AdapterLimits

	required, err := ResolveLimits(LimitBudget{MaxBindGroups: 1}, adapter)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), required.MaxBindGroups)
	assert.Equal(t, gpu.LimitU32Undefined, required.MaxVertexAttributes)
	assert.Equal(t, gpu.LimitU64Undefined, required.MaxBufferSize)
	assert.Equal(t, adapter.MinStorageBufferOffsetAlignment, required.MinStorageBufferOffsetAlignment)

	_, err = ResolveLimits(LimitBudget{MaxBufferSize: adapter.MaxBufferSize + 1}, adapter)
	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, StageLimits, acqErr.Stage)
}

func TestInfoTable(t *testing.T) {
	rec := gputest.NewRecorder()
	c := acquire(t, rec, DefaultAcquireOptions())
	defer c.Release()

	out := InfoTable(c, nil)
	assert.Contains(t, out, "Recorder GPU")
	assert.Contains(t, out, "maxVertexAttributes")
	assert.Contains(t, out, "16 / 2")
	assert.Contains(t, out, "256 / 256", "alignments are copied from the adapter")
	assert.Contains(t, out, "1000 / 1")
}
