// Package config resolves the demo settings. Values are layered in a fixed order: built-in
// defaults, then an optional TOML file, then environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/scene"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a string such as "5s" in TOML files.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// WindowConfig holds the [window] table.
type WindowConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

// RendererConfig holds the [renderer] table.
type RendererConfig struct {
	// PresentMode is "fifo" (or "vsync") and "immediate" (or "uncapped").
	PresentMode string `toml:"present_mode"`

	// Timeout bounds the adapter and device requests. Zero waits indefinitely.
	Timeout Duration `toml:"timeout"`

	// Validate compiles every shader with naga before the GPU sees it.
	Validate bool `toml:"validate"`

	CacheSize            int  `toml:"cache_size"`
	DebugMarkers         bool `toml:"debug_markers"`
	ForceFallbackAdapter bool `toml:"force_fallback_adapter"`
}

// RunConfig holds the [run] table.
type RunConfig struct {
	Scene string `toml:"scene"`

	// Frames stops the loop after this many frames. Zero runs until the window closes.
	Frames int `toml:"frames"`

	// Info prints the adapter and limits table after startup.
	Info bool `toml:"info"`

	// CPUProfile is the directory a CPU profile is written to. Empty disables profiling.
	CPUProfile string `toml:"cpu_profile"`

	// StatsInterval is how often frame statistics are logged. Zero disables them.
	StatsInterval Duration `toml:"stats_interval"`
}

// LogConfig holds the [log] table.
type LogConfig struct {
	Level slog.Level `toml:"level"`

	// WGPULevel is the native wgpu log level name. Empty keeps the native default.
	WGPULevel string `toml:"wgpu_level"`
}

// Config is the complete set of settings for one run.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Run      RunConfig      `toml:"run"`
	Log      LogConfig      `toml:"log"`
}

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "WebGPU Test",
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			PresentMode: "fifo",
			Timeout:     Duration{5 * time.Second},
			CacheSize:   8,
		},
		Run: RunConfig{
			Scene:         "triangle",
			StatsInterval: Duration{time.Second},
		},
		Log: LogConfig{
			Level: slog.LevelInfo,
		},
	}
}

// LoadFile decodes the TOML file at path over c. Keys the file does not set keep their
// current value. Unknown keys are an error.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - error: error if the file cannot be read or decoded
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.Decode(bytes.NewReader(data))
}

// Decode reads TOML from r over c.
func (c *Config) Decode(r io.Reader) error {
	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(c)
	if err == nil {
		return nil
	}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("decode config at %d:%d: %w", row, col, err)
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) {
		return fmt.Errorf("decode config: %s", serr.String())
	}
	return fmt.Errorf("decode config: %w", err)
}

// Encode writes c as TOML to w.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ApplyEnv overrides c with the environment. OXY_* variables mirror the flags;
// WGPU_FORCE_FALLBACK_ADAPTER=1 and WGPU_LOG_LEVEL follow the wgpu-native conventions.
//
// Parameters:
//   - lookup: the environment lookup, usually os.LookupEnv
//
// Returns:
//   - error: error naming the variable if a value cannot be parsed
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("OXY_SCENE", &c.Run.Scene)
	num("OXY_WIDTH", &c.Window.Width)
	num("OXY_HEIGHT", &c.Window.Height)
	boolean("OXY_RESIZABLE", &c.Window.Resizable)
	str("OXY_PRESENT_MODE", &c.Renderer.PresentMode)
	boolean("OXY_VALIDATE", &c.Renderer.Validate)
	boolean("OXY_DEBUG_MARKERS", &c.Renderer.DebugMarkers)
	num("OXY_FRAMES", &c.Run.Frames)
	str("OXY_CPU_PROFILE", &c.Run.CPUProfile)
	if v, ok := lookup("OXY_TIMEOUT"); ok {
		if err := c.Renderer.Timeout.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("OXY_TIMEOUT: %w", err))
		}
	}
	if v, ok := lookup("OXY_LOG_LEVEL"); ok {
		if err := c.Log.Level.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("OXY_LOG_LEVEL: %w", err))
		}
	}

	if v, ok := lookup("WGPU_FORCE_FALLBACK_ADAPTER"); ok {
		c.Renderer.ForceFallbackAdapter = v == "1"
	}
	str("WGPU_LOG_LEVEL", &c.Log.WGPULevel)

	return errors.Join(errs...)
}

// BindFlags registers one flag per setting on fs, each defaulting to the current value of c.
//
// Parameters:
//   - fs: the flag set to register on
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Run.Scene, "scene", c.Run.Scene, "scene to draw: "+strings.Join(scene.Names(), "|"))
	fs.IntVar(&c.Window.Width, "width", c.Window.Width, "window width in pixels")
	fs.IntVar(&c.Window.Height, "height", c.Window.Height, "window height in pixels")
	fs.BoolVar(&c.Window.Resizable, "resizable", c.Window.Resizable, "allow the window to be resized")
	fs.StringVar(&c.Renderer.PresentMode, "present", c.Renderer.PresentMode, "present mode: fifo|immediate")
	fs.DurationVar(&c.Renderer.Timeout.Duration, "timeout", c.Renderer.Timeout.Duration, "adapter and device request timeout, 0 waits forever")
	fs.BoolVar(&c.Renderer.Validate, "validate", c.Renderer.Validate, "validate shaders with naga before pipeline creation")
	fs.BoolVar(&c.Renderer.DebugMarkers, "markers", c.Renderer.DebugMarkers, "submit a debug marker probe after acquisition")
	fs.BoolVar(&c.Run.Info, "info", c.Run.Info, "print adapter and limits after startup")
	fs.IntVar(&c.Run.Frames, "frames", c.Run.Frames, "stop after N frames, 0 runs until the window closes")
	fs.StringVar(&c.Run.CPUProfile, "cpuprofile", c.Run.CPUProfile, "write a CPU profile to this directory")
	fs.TextVar(&c.Log.Level, "log", c.Log.Level, "log level: debug|info|warn|error")
}

// Validate reports every setting that is out of range, joined into one error.
func (c Config) Validate() error {
	var errs []error
	bad := func(field string, want, got any) {
		errs = append(errs, &gpu.ConfigurationError{Component: "config", Field: field, Want: want, Got: got})
	}

	if !slices.Contains(scene.Names(), c.Run.Scene) {
		bad("run.scene", "one of "+strings.Join(scene.Names(), ", "), c.Run.Scene)
	}
	if c.Window.Width <= 0 {
		bad("window.width", "> 0", c.Window.Width)
	}
	if c.Window.Height <= 0 {
		bad("window.height", "> 0", c.Window.Height)
	}
	if _, err := renderer.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		errs = append(errs, &gpu.ConfigurationError{Component: "config", Field: "renderer.present_mode", Err: err})
	}
	if c.Renderer.Timeout.Duration < 0 {
		bad("renderer.timeout", ">= 0", c.Renderer.Timeout.Duration)
	}
	if c.Renderer.CacheSize < 1 {
		bad("renderer.cache_size", ">= 1", c.Renderer.CacheSize)
	}
	if c.Run.Frames < 0 {
		bad("run.frames", ">= 0", c.Run.Frames)
	}
	if c.Run.StatsInterval.Duration < 0 {
		bad("run.stats_interval", ">= 0", c.Run.StatsInterval.Duration)
	}
	if _, _, err := gpu.ParseNativeLogLevel(c.Log.WGPULevel); err != nil {
		errs = append(errs, &gpu.ConfigurationError{Component: "config", Field: "log.wgpu_level", Err: err})
	}
	return errors.Join(errs...)
}

// PresentMode returns the parsed present mode. Call Validate first.
func (c Config) PresentMode() renderer.PresentMode {
	mode, _ := renderer.ParsePresentMode(c.Renderer.PresentMode)
	return mode
}

// Parse resolves the settings for one run. A -config flag in args names the TOML file; the
// environment is read through lookup; the remaining flags in args win over both.
//
// Parameters:
//   - name: the program name used in flag errors
//   - args: the command-line arguments without the program name
//   - lookup: the environment lookup, usually os.LookupEnv
//
// Returns:
//   - Config: the validated settings
//   - error: flag.ErrHelp if help was requested, otherwise a parse or validation error
func Parse(name string, args []string, lookup LookupFunc) (Config, error) {
	path, err := configPath(name, args)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "TOML settings file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configPath picks -config out of args without applying any other flag.
func configPath(name string, args []string) (string, error) {
	var path string
	scratch := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "")
	scratch.BindFlags(fs)
	if err := fs.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		return "", err
	}
	return path, nil
}
