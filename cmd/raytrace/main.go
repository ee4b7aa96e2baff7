//go:build !nogpu

// Command raytrace traces a scene once on the GPU and shows it in a window.
//
// Keys:
//
//	S       save the frame to the capture path (default 1.bmp)
//	Escape  exit immediately with status 1
//
// Settings come from the defaults, then an optional TOML file (-config),
// then command-line flags.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/internal/gpu"
	"github.com/gogpu/raytrace/pipeline"
)

func main() {
	cfg, debug, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	raytrace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	src, err := raytrace.LoadSources(cfg.ShaderDir)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, src); err != nil {
		log.Fatal(err)
	}
}

// loadConfig applies the TOML file and then every flag set explicitly.
func loadConfig(args []string) (raytrace.Config, bool, error) {
	fs := flag.NewFlagSet("raytrace", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "TOML config file")
		width      = fs.Int("width", raytrace.DefaultWidth, "frame width")
		height     = fs.Int("height", raytrace.DefaultHeight, "frame height")
		workgroup  = fs.Int("workgroup", raytrace.DefaultWorkgroupSize, "kernel workgroup edge, must match comp_shader.wgsl")
		shaderDir  = fs.String("shaders", "", "directory holding the .wgsl sources")
		envMap     = fs.String("env", "", "environment map image")
		out        = fs.String("out", raytrace.DefaultCapturePath, "capture output file")
		debug      = fs.Bool("debug", false, "enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return raytrace.Config{}, false, err
	}

	cfg := raytrace.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = raytrace.LoadConfig(*configPath); err != nil {
			return raytrace.Config{}, false, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "workgroup":
			cfg = cfg.WithWorkgroupSize(*workgroup)
		case "shaders":
			cfg = cfg.WithShaderDir(*shaderDir)
		case "env":
			cfg = cfg.WithEnvironmentMap(*envMap)
		case "out":
			cfg = cfg.WithCapturePath(*out)
		}
	})
	if err := cfg.Validate(); err != nil {
		return raytrace.Config{}, false, err
	}
	return cfg, *debug, nil
}

func run(cfg raytrace.Config, src raytrace.Sources) error {
	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle(cfg.Title).
		WithSize(cfg.Width, cfg.Height).
		WithContinuousRender(true))

	loop := &frameLoop{cfg: cfg}
	var setupErr error

	app.OnDraw(func(dc *gogpu.Context) {
		if setupErr != nil {
			return
		}
		if loop.pl == nil {
			loop.pl, setupErr = setup(app, cfg, src)
			if setupErr != nil {
				app.Quit()
				return
			}
		}
		loop.draw(dc.SurfaceView())
	})

	// Key callbacks run on the event thread; GPU work stays in OnDraw.
	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		switch key {
		case gpucontext.KeyEscape:
			os.Exit(1)
		case gpucontext.KeyS:
			loop.requestCapture()
		}
	})

	app.OnClose(func() {
		loop.pl.Close()
	})

	if err := app.Run(); err != nil {
		return err
	}
	return setupErr
}

// setup builds the pipeline on the window's own device.
func setup(app *gogpu.App, cfg raytrace.Config, src raytrace.Sources) (*pipeline.Pipeline, error) {
	provider := app.GPUContextProvider()
	if provider == nil {
		return nil, fmt.Errorf("raytrace: window has no GPU context")
	}
	dev, err := gpu.FromProvider(provider)
	if err != nil {
		return nil, err
	}
	raytrace.Logger().Info("raytrace: using window device", "adapter", dev.Name)
	return pipeline.New(dev.Device, dev.Queue, cfg, src, provider.SurfaceFormat())
}

// frameLoop does the per-frame work of the window on the render thread.
type frameLoop struct {
	cfg raytrace.Config
	pl  *pipeline.Pipeline

	capture atomic.Bool

	// skipping is set while frames have no surface, so the warning is
	// logged once per outage.
	skipping bool
}

// requestCapture asks the next frame to save the image. Safe from any
// goroutine.
func (l *frameLoop) requestCapture() { l.capture.Store(true) }

// draw presents the image into the surface view, then runs a pending
// capture. The capture reads the traced image, not the surface, so it does
// not depend on the present succeeding.
func (l *frameLoop) draw(view *wgpu.TextureView) {
	target, err := gpu.SurfaceTarget(view)
	switch {
	case err != nil:
		if !l.skipping {
			raytrace.Logger().Warn("raytrace: frame not presented", "err", err)
			l.skipping = true
		}
	default:
		l.skipping = false
		if err := l.pl.Present(target); err != nil {
			raytrace.Logger().Error("raytrace: present failed", "err", err)
		}
	}

	if l.capture.CompareAndSwap(true, false) {
		if err := l.pl.Capture(l.cfg.CapturePath); err != nil {
			raytrace.Logger().Error("raytrace: capture failed", "err", err)
			return
		}
		fmt.Println("saved")
	}
}
