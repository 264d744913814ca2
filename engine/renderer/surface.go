package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Frames are queued in
	// submission order and never tear. This is the default.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately. May tear; used for benchmarking.
	PresentModeUncapped
)

// ParsePresentMode parses "fifo"/"vsync" or "immediate"/"uncapped".
//
// Parameters:
//   - s: the mode name
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: error if s is not a known mode
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(s) {
	case "", "fifo", "vsync":
		return PresentModeVSync, nil
	case "immediate", "uncapped":
		return PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", s)
	}
}

func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "immediate"
	}
	return "fifo"
}

func (m PresentMode) native() wgpu.PresentMode {
	if m == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// SurfaceBinding is a surface together with the configuration it was last given.
type SurfaceBinding struct {
	Surface     gpu.Surface
	Format      wgpu.TextureFormat
	PresentMode wgpu.PresentMode
	AlphaMode   wgpu.CompositeAlphaMode
	Width       uint32
	Height      uint32
}

// ConfigureSurface selects the adapter's preferred format and configures the surface for
// rendering at width x height. Uncapped falls back to FIFO when the surface does not offer it.
//
// Parameters:
//   - surface: the surface to configure
//   - adapter: the adapter the device was obtained from
//   - device: the device that will render into the surface
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//   - mode: the requested present mode
//
// Returns:
//   - *SurfaceBinding: the applied configuration
//   - error: a *ConfigurationError for a zero size or a surface without formats, or the native error
func ConfigureSurface(surface gpu.Surface, adapter gpu.Adapter, device gpu.Device, width, height int, mode PresentMode) (*SurfaceBinding, error) {
	if width <= 0 || height <= 0 {
		return nil, &ConfigurationError{Component: "surface", Field: "size", Want: "non-zero", Got: fmt.Sprintf("%dx%d", width, height)}
	}
	caps := surface.Capabilities(adapter)
	if len(caps.Formats) == 0 {
		return nil, &ConfigurationError{Component: "surface", Field: "format"}
	}

	present := wgpu.PresentModeFifo
	if want := mode.native(); want != present {
		for _, m := range caps.PresentModes {
			if m == want {
				present = want
				break
			}
		}
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}

	b := &SurfaceBinding{
		Surface:     surface,
		Format:      caps.Formats[0],
		PresentMode: present,
		AlphaMode:   alpha,
		Width:       uint32(width),
		Height:      uint32(height),
	}
	if err := b.apply(adapter, device); err != nil {
		return nil, err
	}
	return b, nil
}

// Reconfigure applies a new size, keeping format and present mode.
//
// Parameters:
//   - adapter: the adapter the device was obtained from
//   - device: the rendering device
//   - width: the new framebuffer width
//   - height: the new framebuffer height
//
// Returns:
//   - error: a *ConfigurationError for a zero size, or the native error
func (b *SurfaceBinding) Reconfigure(adapter gpu.Adapter, device gpu.Device, width, height int) error {
	if width <= 0 || height <= 0 {
		return &ConfigurationError{Component: "surface", Field: "size", Want: "non-zero", Got: fmt.Sprintf("%dx%d", width, height)}
	}
	b.Width, b.Height = uint32(width), uint32(height)
	return b.apply(adapter, device)
}

// Release unconfigures the surface. The surface handle itself belongs to the Context.
func (b *SurfaceBinding) Release() {
	b.Surface.Unconfigure()
}

func (b *SurfaceBinding) apply(adapter gpu.Adapter, device gpu.Device) error {
	err := b.Surface.Configure(adapter, device, gpu.SurfaceConfiguration{
		Format:      b.Format,
		Usage:       wgpu.TextureUsageRenderAttachment,
		Width:       b.Width,
		Height:      b.Height,
		PresentMode: b.PresentMode,
		AlphaMode:   b.AlphaMode,
	})
	if err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", b.Width, b.Height, err)
	}
	return nil
}
