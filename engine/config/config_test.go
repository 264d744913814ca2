package config

import (
	"bytes"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, renderer.PresentModeVSync, cfg.PresentMode())
	assert.Equal(t, 5*time.Second, cfg.Renderer.Timeout.Duration)
}

func TestDecode(t *testing.T) {
	cfg := Default()
	err := cfg.Decode(strings.NewReader(`
[window]
width = 1024
resizable = true

[renderer]
present_mode = "immediate"
timeout = "250ms"

[run]
scene = "animated"
frames = 120

[log]
level = "debug"
wgpu_level = "warn"
`))
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height, "keys the file leaves out keep their default")
	assert.True(t, cfg.Window.Resizable)
	assert.Equal(t, renderer.PresentModeUncapped, cfg.PresentMode())
	assert.Equal(t, 250*time.Millisecond, cfg.Renderer.Timeout.Duration)
	assert.Equal(t, "animated", cfg.Run.Scene)
	assert.Equal(t, 120, cfg.Run.Frames)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "warn", cfg.Log.WGPULevel)
	require.NoError(t, cfg.Validate())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "unknown key", body: "[window]\ndepth = 3\n", contains: "depth"},
		{name: "wrong type", body: "[window]\nwidth = \"wide\"\n", contains: "decode config"},
		{name: "bad duration", body: "[renderer]\ntimeout = \"soon\"\n", contains: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.Decode(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestEncodeDecodeKeepsSettings(t *testing.T) {
	want := Default()
	want.Run.Scene = "quad"
	want.Renderer.Timeout = Duration{1500 * time.Millisecond}
	want.Log.Level = slog.LevelWarn

	var buf bytes.Buffer
	require.NoError(t, want.Encode(&buf))
	assert.Contains(t, buf.String(), "1.5s")

	got := Config{}
	require.NoError(t, got.Decode(&buf))
	assert.Equal(t, want, got)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"OXY_SCENE":                   "fullscreen",
		"OXY_WIDTH":                   "320",
		"OXY_VALIDATE":                "true",
		"OXY_TIMEOUT":                 "2s",
		"OXY_LOG_LEVEL":               "WARN",
		"WGPU_FORCE_FALLBACK_ADAPTER": "1",
		"WGPU_LOG_LEVEL":              "trace",
	}))
	require.NoError(t, err)

	assert.Equal(t, "fullscreen", cfg.Run.Scene)
	assert.Equal(t, 320, cfg.Window.Width)
	assert.True(t, cfg.Renderer.Validate)
	assert.Equal(t, 2*time.Second, cfg.Renderer.Timeout.Duration)
	assert.Equal(t, slog.LevelWarn, cfg.Log.Level)
	assert.True(t, cfg.Renderer.ForceFallbackAdapter)
	assert.Equal(t, "trace", cfg.Log.WGPULevel)
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"OXY_WIDTH":  "wide",
		"OXY_FRAMES": "-",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OXY_WIDTH")
	assert.Contains(t, err.Error(), "OXY_FRAMES")
	assert.Equal(t, 800, cfg.Window.Width)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "scene", mutate: func(c *Config) { c.Run.Scene = "cube" }, field: "run.scene"},
		{name: "width", mutate: func(c *Config) { c.Window.Width = 0 }, field: "window.width"},
		{name: "height", mutate: func(c *Config) { c.Window.Height = -1 }, field: "window.height"},
		{name: "present mode", mutate: func(c *Config) { c.Renderer.PresentMode = "mailbox" }, field: "renderer.present_mode"},
		{name: "timeout", mutate: func(c *Config) { c.Renderer.Timeout.Duration = -time.Second }, field: "renderer.timeout"},
		{name: "cache size", mutate: func(c *Config) { c.Renderer.CacheSize = 0 }, field: "renderer.cache_size"},
		{name: "frames", mutate: func(c *Config) { c.Run.Frames = -3 }, field: "run.frames"},
		{name: "wgpu log level", mutate: func(c *Config) { c.Log.WGPULevel = "loud" }, field: "log.wgpu_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *gpu.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseLayering(t *testing.T) {
	path := writeFile(t, `
[window]
width = 1024
height = 768

[run]
scene = "quad"
frames = 10
`)
	cfg, err := Parse("oxy-hello",
		[]string{"-config", path, "-frames", "3", "-present", "immediate"},
		env(map[string]string{"OXY_HEIGHT": "700", "OXY_FRAMES": "5"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Window.Width, "file over default")
	assert.Equal(t, 700, cfg.Window.Height, "environment over file")
	assert.Equal(t, 3, cfg.Run.Frames, "flag over environment")
	assert.Equal(t, "quad", cfg.Run.Scene)
	assert.Equal(t, renderer.PresentModeUncapped, cfg.PresentMode())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("oxy-hello", []string{"-config", filepath.Join(t.TempDir(), "missing.toml")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse("oxy-hello", []string{"-scene", "cube"}, nil)
	var cfgErr *gpu.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "run.scene", cfgErr.Field)

	_, err = Parse("oxy-hello", []string{"-nope"}, nil)
	require.Error(t, err)

	_, err = Parse("oxy-hello", []string{"-h"}, nil)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
