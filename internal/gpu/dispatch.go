//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// Every wait for GPU completion polls the queue until submitTimeout.
const (
	submitTimeout = 5 * time.Second
	pollInterval  = 100 * time.Microsecond
)

// DispatchConfig holds the launch parameters of the kernel.
type DispatchConfig struct {
	// WorkgroupSize is the workgroup edge on x and y (z is 1).
	WorkgroupSize uint32

	// Resolution is (width, height) as written to the parameter uniform.
	Resolution [2]float32
}

// NewDispatchConfig derives the launch parameters from cfg.
func NewDispatchConfig(cfg raytrace.Config) DispatchConfig {
	return DispatchConfig{
		WorkgroupSize: uint32(cfg.WorkgroupSize), //nolint:gosec // validated by Config
		Resolution:    cfg.Resolution(),
	}
}

// GridSize returns the number of workgroups needed to cover a width×height
// image. Partial tiles round up; the kernel discards invocations outside
// the image.
func GridSize(width, height, workgroup uint32) (x, y, z uint32) {
	if workgroup == 0 {
		return 0, 0, 0
	}
	return (width + workgroup - 1) / workgroup, (height + workgroup - 1) / workgroup, 1
}

// params encodes the kernel parameter block.
func (c DispatchConfig) params() []byte {
	buf := make([]byte, raytrace.ParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(c.Resolution[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(c.Resolution[1]))
	return buf
}

// Dispatcher runs the ray-tracing kernel.
type Dispatcher struct {
	device hal.Device
	queue  hal.Queue
	cfg    DispatchConfig

	paramsBuf hal.Buffer
	runs      int
}

// NewDispatcher creates a dispatcher and its parameter buffer.
func NewDispatcher(device hal.Device, queue hal.Queue, cfg DispatchConfig) (*Dispatcher, error) {
	if cfg.WorkgroupSize == 0 || cfg.WorkgroupSize > raytrace.MaxWorkgroupSize {
		return nil, fmt.Errorf("%w: workgroup size %d", raytrace.ErrInvalidConfig, cfg.WorkgroupSize)
	}
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raytrace_params",
		Size:  raytrace.ParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create params buffer: %w", err)
	}
	return &Dispatcher{device: device, queue: queue, cfg: cfg, paramsBuf: buf}, nil
}

// Runs returns how many dispatches have completed.
func (d *Dispatcher) Runs() int { return d.runs }

// RunOnce traces one frame into fb. It binds program, uploads the
// resolution, records a single dispatch covering fb, then a barrier making
// the image writes visible to sampling, and waits for the GPU to finish.
// env is sampled for rays that leave the scene.
func (d *Dispatcher) RunOnce(program *Program, fb *Framebuffer, env *Texture) error {
	if err := program.checkKind(ProgramCompute); err != nil {
		return err
	}
	if fb == nil || env == nil {
		return fmt.Errorf("gpu: dispatch needs a framebuffer and an environment texture")
	}

	if err := d.queue.WriteBuffer(d.paramsBuf, 0, d.cfg.params()); err != nil {
		return fmt.Errorf("upload raytrace params: %w", err)
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "raytrace_bind",
		Layout: program.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: raytrace.ImageBinding, Resource: gputypes.TextureViewBinding{TextureView: fb.storageView.NativeHandle()}},
			{Binding: raytrace.ParamsBinding, Resource: gputypes.BufferBinding{Buffer: d.paramsBuf.NativeHandle(), Offset: 0, Size: raytrace.ParamsSize}},
			{Binding: raytrace.EnvTextureBinding, Resource: gputypes.TextureViewBinding{TextureView: env.view.NativeHandle()}},
			{Binding: raytrace.EnvSamplerBinding, Resource: gputypes.SamplerBinding{Sampler: env.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create raytrace bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "raytrace_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raytrace"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	recordTransition(encoder, fb.texture, fb.usage, gputypes.TextureUsageStorageBinding)

	gx, gy, gz := GridSize(fb.width, fb.height, d.cfg.WorkgroupSize)
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "raytrace_pass"})
	pass.SetPipeline(program.compute)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(gx, gy, gz)
	pass.End()

	// Image writes must be visible before the first present samples them.
	recordTransition(encoder, fb.texture, gputypes.TextureUsageStorageBinding, gputypes.TextureUsageTextureBinding)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	if err := submitAndWait(d.device, d.queue, cmdBuf, true); err != nil {
		return err
	}
	fb.usage = gputypes.TextureUsageTextureBinding

	d.runs++
	slogger().Info("gpu: raytrace dispatch complete", "grid", [3]uint32{gx, gy, gz}, "run", d.runs)
	return nil
}

// Destroy releases the parameter buffer.
func (d *Dispatcher) Destroy() {
	if d == nil || d.paramsBuf == nil {
		return
	}
	d.device.DestroyBuffer(d.paramsBuf)
	d.paramsBuf = nil
}

// submitAndWait submits one command buffer, polls the queue until it has
// completed and frees it. Offscreen work is kept off the swapchain
// semaphores of a shared window queue.
func submitAndWait(device hal.Device, queue hal.Queue, cmdBuf hal.CommandBuffer, offscreen bool) error {
	if offscreen {
		queue.SetSwapchainSuppressed(true)
		defer queue.SetSwapchainSuppressed(false)
	}
	index, err := queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}

	deadline := time.Now().Add(submitTimeout)
	for queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			// Still in flight, so cmdBuf is not freed.
			return fmt.Errorf("wait for GPU: submission %d not complete after %v", index, submitTimeout)
		}
		time.Sleep(pollInterval)
	}
	device.FreeCommandBuffer(cmdBuf)
	return nil
}
