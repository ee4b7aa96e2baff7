//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// Presenter draws the framebuffer onto a render target every frame.
// It only reads the framebuffer.
type Presenter struct {
	device  hal.Device
	queue   hal.Queue
	program *Program
	mesh    *Mesh

	sampler   hal.Sampler
	bindGroup hal.BindGroup

	frames int
}

// NewPresenter binds fb's sampled view to a raster program built for the
// target format.
func NewPresenter(device hal.Device, queue hal.Queue, program *Program, fb *Framebuffer) (*Presenter, error) {
	if err := program.checkKind(ProgramRaster); err != nil {
		return nil, err
	}
	p := &Presenter{device: device, queue: queue, program: program}

	var err error
	p.mesh, err = NewMesh(device, queue)
	if err != nil {
		return nil, err
	}

	p.sampler, err = newLinearSampler(device, "present_sampler")
	if err != nil {
		p.Destroy()
		return nil, err
	}

	p.bindGroup, err = device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "present_bind",
		Layout: program.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: raytrace.PresentTextureBinding, Resource: gputypes.TextureViewBinding{TextureView: fb.sampledView.NativeHandle()}},
			{Binding: raytrace.PresentSamplerBinding, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create present bind group: %w", err)
	}
	return p, nil
}

// Frames returns how many frames have been presented.
func (p *Presenter) Frames() int { return p.frames }

// PresentFrame clears target to black and draws the textured quad.
func (p *Presenter) PresentFrame(target hal.TextureView) error {
	if target == nil {
		return fmt.Errorf("gpu: present target is nil")
	}
	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "present_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("present"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "present_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(p.program.render)
	rp.SetBindGroup(0, p.bindGroup, nil)
	p.mesh.record(rp)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	// Wait so the pass is complete before the surface is presented.
	if err := submitAndWait(p.device, p.queue, cmdBuf, false); err != nil {
		return err
	}
	p.frames++
	return nil
}

// Destroy releases the bind group, sampler and mesh. The program and
// framebuffer belong to the caller.
func (p *Presenter) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	p.mesh.Destroy()
	p.mesh = nil
	p.device = nil
}

func newLinearSampler(device hal.Device, label string) (hal.Sampler, error) {
	s, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return s, nil
}
