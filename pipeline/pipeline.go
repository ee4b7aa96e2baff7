//go:build !nogpu

// Package pipeline wires the ray tracer together: it compiles both
// programs, traces the frame once into a GPU image and then presents that
// image every frame until asked to capture it or trace it again.
//
// A Pipeline is driven from the goroutine that owns the GPU device and is
// not safe for concurrent use.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/internal/gpu"
)

// Pipeline owns every GPU object of one ray-traced view.
type Pipeline struct {
	cfg    raytrace.Config
	device hal.Device
	queue  hal.Queue

	raster  *gpu.Program
	compute *gpu.Program

	fb        *gpu.Framebuffer
	env       *gpu.Texture
	disp      *gpu.Dispatcher
	presenter *gpu.Presenter
}

// New builds the pipeline and traces the frame once. surfaceFormat is the
// color format of the targets passed to Present. Any error is fatal and
// leaves nothing allocated.
func New(device hal.Device, queue hal.Queue, cfg raytrace.Config, src raytrace.Sources, surfaceFormat gputypes.TextureFormat) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, device: device, queue: queue}
	if err := p.build(src, surfaceFormat); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) build(src raytrace.Sources, surfaceFormat gputypes.TextureFormat) error {
	log := raytrace.Logger()
	if !p.cfg.EvenlyDivisible() {
		log.Debug("pipeline: resolution is not a multiple of the workgroup size, edge invocations are discarded",
			"width", p.cfg.Width, "height", p.cfg.Height, "workgroup", p.cfg.WorkgroupSize)
	}

	compiler := gpu.NewCompiler(p.device, surfaceFormat, p.cfg.WorkgroupSize)
	var err error
	if p.raster, err = compiler.CompileRaster(src.Vertex, src.Fragment); err != nil {
		return err
	}
	if p.compute, err = compiler.CompileCompute(src.Compute); err != nil {
		return err
	}

	if p.fb, err = gpu.NewFramebuffer(p.device, p.cfg.Width, p.cfg.Height); err != nil {
		return err
	}
	if p.env, err = p.loadEnvironment(); err != nil {
		return err
	}

	if p.disp, err = gpu.NewDispatcher(p.device, p.queue, gpu.NewDispatchConfig(p.cfg)); err != nil {
		return err
	}
	if err := p.disp.RunOnce(p.compute, p.fb, p.env); err != nil {
		return fmt.Errorf("pipeline: trace: %w", err)
	}

	if p.presenter, err = gpu.NewPresenter(p.device, p.queue, p.raster, p.fb); err != nil {
		return err
	}
	log.Info("pipeline: ready", "width", p.cfg.Width, "height", p.cfg.Height)
	return nil
}

// loadEnvironment loads the configured environment map. The map is
// optional: without one, or when it cannot be read, a white placeholder
// leaves the sky gradient untouched.
func (p *Pipeline) loadEnvironment() (*gpu.Texture, error) {
	if path := p.cfg.EnvironmentMap; path != "" {
		tex, err := gpu.LoadTexture(p.device, p.queue, path)
		if err == nil {
			return tex, nil
		}
		var le *raytrace.LoadError
		if !errors.As(err, &le) {
			return nil, err
		}
		raytrace.Logger().Warn("pipeline: environment map unavailable, using placeholder", "path", path, "err", le.Err)
	}
	return gpu.NewSolidTexture(p.device, p.queue, 255, 255, 255, 255)
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() raytrace.Config { return p.cfg }

// Present draws the traced image onto target.
func (p *Pipeline) Present(target hal.TextureView) error {
	return p.presenter.PresentFrame(target)
}

// Capture writes the traced image to path as a BMP. An empty path uses
// Config.CapturePath. Write failures are returned as *raytrace.IOError and
// leave the pipeline usable.
func (p *Pipeline) Capture(path string) error {
	if path == "" {
		path = p.cfg.CapturePath
	}
	return gpu.CaptureAndSave(p.queue, p.fb, p.cfg.Width, p.cfg.Height, path)
}

// Rerender traces the frame again into the same image. Nothing calls it
// implicitly; the image is only rewritten on request.
func (p *Pipeline) Rerender() error {
	if err := p.disp.RunOnce(p.compute, p.fb, p.env); err != nil {
		return fmt.Errorf("pipeline: trace: %w", err)
	}
	return nil
}

// Traces returns how many times the kernel has run.
func (p *Pipeline) Traces() int { return p.disp.Runs() }

// Frames returns how many frames have been presented.
func (p *Pipeline) Frames() int { return p.presenter.Frames() }

// Close releases all GPU objects in reverse creation order. The device
// itself belongs to the caller.
func (p *Pipeline) Close() {
	if p == nil {
		return
	}
	p.presenter.Destroy()
	p.disp.Destroy()
	p.env.Destroy()
	p.fb.Destroy()
	p.compute.Destroy()
	p.raster.Destroy()
	p.presenter, p.disp, p.env, p.fb, p.compute, p.raster = nil, nil, nil, nil, nil, nil
}
