// Command oxy-hello opens a window and draws one of the preset scenes with WebGPU until the
// window closes, the process is signalled or the requested number of frames has been drawn.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-hello/engine"
	"github.com/Carmen-Shannon/oxy-hello/engine/config"
	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
	"github.com/Carmen-Shannon/oxy-hello/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hello/engine/scene"
	"github.com/Carmen-Shannon/oxy-hello/engine/window"
	"github.com/pkg/profile"
	"github.com/xlab/catcher"
	"github.com/xlab/closer"
)

const (
	exitConfig      = 2
	exitFailure     = 1
	exitAcquisition = -1
)

func init() {
	runtime.LockOSThread()
}

func main() {
	defer closer.Close()
	defer catcher.Catch(
		catcher.RecvLog(true),
		catcher.RecvDie(-1),
	)

	cfg, err := config.Parse("oxy-hello", os.Args[1:], os.LookupEnv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		closer.Exit(exitConfig)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))
	slog.SetDefault(logger)
	if err := gpu.SetNativeLogLevel(cfg.Log.WGPULevel); err != nil {
		logger.Warn("wgpu log level ignored", slog.Any("error", err))
	}

	if cfg.Run.CPUProfile != "" {
		prof := profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Run.CPUProfile), profile.NoShutdownHook)
		closer.Bind(prof.Stop)
	}

	if err := guard(func() error { return run(cfg, logger) }); err != nil {
		logger.Error("oxy-hello failed", slog.Any("error", err))
		var acqErr *renderer.AcquisitionError
		if errors.As(err, &acqErr) || errors.Is(err, errPanicked) {
			closer.Exit(exitAcquisition)
		}
		closer.Exit(exitFailure)
	}
}

var errPanicked = errors.New("run panicked")

// guard runs fn and turns a panic into errPanicked once fn's deferred teardown has run,
// so the caller can still exit through the closer handlers.
func guard(fn func() error) (err error) {
	err = errPanicked
	defer catcher.Catch(catcher.RecvLog(true))
	err = fn()
	return err
}

func run(cfg config.Config, logger *slog.Logger) error {
	platform, err := window.InitPlatform()
	if err != nil {
		return err
	}
	w, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithResizable(cfg.Window.Resizable),
	)
	if err != nil {
		platform.Release()
		return err
	}

	s, err := scene.New(cfg.Run.Scene)
	if err != nil {
		w.Release()
		platform.Release()
		return err
	}

	acquire := renderer.DefaultAcquireOptions()
	acquire.Timeout = cfg.Renderer.Timeout.Duration
	acquire.ForceFallbackAdapter = cfg.Renderer.ForceFallbackAdapter
	acquire.DebugMarkers = cfg.Renderer.DebugMarkers
	acquire.Logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := engine.NewEngine(ctx, gpu.WGPU(),
		engine.WithPlatform(platform),
		engine.WithWindow(w),
		engine.WithScene(s),
		engine.WithLogger(logger),
		engine.WithAcquireOptions(acquire),
		engine.WithRendererOptions(
			renderer.WithPresentMode(cfg.PresentMode()),
			renderer.WithResizable(cfg.Window.Resizable),
			renderer.WithCacheSize(cfg.Renderer.CacheSize),
			renderer.WithValidation(cfg.Renderer.Validate),
		),
		engine.WithFrameCount(cfg.Run.Frames),
		engine.WithProfiling(cfg.Run.StatsInterval.Duration),
	)
	if err != nil {
		return err
	}

	if cfg.Run.Info {
		r := e.Renderer()
		if err := renderer.PrintInfo(os.Stdout, r.Context(), r.Surface()); err != nil {
			logger.Warn("print info", slog.Any("error", err))
		}
	}

	// A signal runs the closer handlers on another goroutine; the loop stops and tears down here,
	// on a panic as well.
	done := make(chan struct{})
	defer close(done)
	defer e.Release()
	closer.Bind(func() {
		e.Quit()
		<-done
	})

	err = e.Run(ctx)
	stats := e.Renderer().Stats()
	logger.Info("bye", slog.Uint64("drawn", stats.Drawn), slog.Uint64("skipped", stats.Skipped))
	return err
}
