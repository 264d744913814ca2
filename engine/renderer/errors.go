package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
)

// Stage identifies the step of context acquisition that failed.
type Stage string

const (
	StageInstance Stage = "instance"
	StageSurface  Stage = "surface"
	StageAdapter  Stage = "adapter"
	StageLimits   Stage = "limits"
	StageDevice   Stage = "device"
)

// AcquisitionError is returned when the instance, adapter or device could not be obtained.
// It is fatal for the run.
type AcquisitionError struct {
	Stage   Stage
	Status  gpu.RequestStatus
	Message string
	// Err is the underlying cause, e.g. context.DeadlineExceeded when the request timed out.
	Err error
}

func (e *AcquisitionError) Error() string {
	msg := fmt.Sprintf("acquire %s", e.Stage)
	if e.Status != gpu.RequestStatusSuccess {
		msg += fmt.Sprintf(": status %s", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// ConfigurationError is the configuration mismatch error shared with the pipeline and bind group packages.
type ConfigurationError = gpu.ConfigurationError

// ErrSurfaceAcquisitionSkip reports that the surface had no texture for this frame. The frame is skipped
// and the loop continues.
var ErrSurfaceAcquisitionSkip = errors.New("surface texture unavailable, frame skipped")

// logDeviceError logs err at error level if it carries a *gpu.DeviceError and returns err unchanged.
func logDeviceError(logger *slog.Logger, err error) error {
	var devErr *gpu.DeviceError
	if errors.As(err, &devErr) {
		logger.Error("device error", slog.String("op", devErr.Op), slog.Any("error", devErr.Err))
	}
	return err
}
