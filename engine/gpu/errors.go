package gpu

import "fmt"

// ConfigurationError reports a descriptor that disagrees with the shader or with
// another descriptor. It is always returned before the offending object is used in a draw.
type ConfigurationError struct {
	// Component names the object being configured, e.g. "pipeline quad".
	Component string
	// Field names the mismatching property, e.g. "vertex stride".
	Field string
	Want  any
	Got   any
	// Err is the underlying cause, e.g. a shader diagnostic.
	Err error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: invalid %s: %v", e.Component, e.Field, e.Err)
	case e.Want == nil && e.Got == nil:
		return fmt.Sprintf("%s: invalid %s", e.Component, e.Field)
	default:
		return fmt.Sprintf("%s: %s mismatch: want %v, got %v", e.Component, e.Field, e.Want, e.Got)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DeviceError reports a validation or runtime error the device raised while executing a call.
// The binding has no uncaptured-error callback, so these arrive as return values.
type DeviceError struct {
	// Op names the call that failed, e.g. "end render pass".
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error in %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
