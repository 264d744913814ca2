package gpu

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// ParseNativeLogLevel parses a native wgpu log level name.
// Accepted names are OFF, ERROR, WARN, INFO, DEBUG and TRACE, case-insensitive.
//
// Parameters:
//   - name: the level name, usually taken from WGPU_LOG_LEVEL
//
// Returns:
//   - wgpu.LogLevel: the parsed level
//   - bool: false when name is empty and the native default should be kept
//   - error: error if the name is not a known level
func ParseNativeLogLevel(name string) (wgpu.LogLevel, bool, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return wgpu.LogLevelOff, false, nil
	case "OFF":
		return wgpu.LogLevelOff, true, nil
	case "ERROR":
		return wgpu.LogLevelError, true, nil
	case "WARN":
		return wgpu.LogLevelWarn, true, nil
	case "INFO":
		return wgpu.LogLevelInfo, true, nil
	case "DEBUG":
		return wgpu.LogLevelDebug, true, nil
	case "TRACE":
		return wgpu.LogLevelTrace, true, nil
	}
	return wgpu.LogLevelOff, false, fmt.Errorf("unknown wgpu log level %q", name)
}

// SetNativeLogLevel sets the verbosity of the native wgpu logger.
// An empty name leaves the native default untouched.
func SetNativeLogLevel(name string) error {
	level, ok, err := ParseNativeLogLevel(name)
	if err != nil || !ok {
		return err
	}
	wgpu.SetLogLevel(level)
	return nil
}
