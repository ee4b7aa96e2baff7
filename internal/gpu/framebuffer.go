//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// FramebufferFormat is the pixel format of the ray-traced image.
const FramebufferFormat = gputypes.TextureFormatRGBA8Unorm

// Framebuffer is the image the kernel writes and the present pass samples.
// It has one mip level and a fixed size. The storage view is bound at
// raytrace.ImageBinding for the kernel, the sampled view is read by the
// fragment stage; both alias the same texture.
type Framebuffer struct {
	device hal.Device

	texture     hal.Texture
	storageView hal.TextureView
	sampledView hal.TextureView

	width, height uint32

	// usage is the state left by the last submitted command buffer.
	usage gputypes.TextureUsage
}

// NewFramebuffer allocates a width×height RGBA8 image and both views.
func NewFramebuffer(device hal.Device, width, height int) (*Framebuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: framebuffer %dx%d", raytrace.ErrInvalidConfig, width, height)
	}
	fb := &Framebuffer{
		device: device,
		width:  uint32(width),  //nolint:gosec // checked positive above
		height: uint32(height), //nolint:gosec // checked positive above
	}

	var err error
	fb.texture, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         "raytrace_image",
		Size:          hal.Extent3D{Width: fb.width, Height: fb.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        FramebufferFormat,
		Usage: gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create framebuffer texture: %w", err)
	}

	fb.storageView, err = fb.createView("raytrace_image_storage")
	if err != nil {
		fb.Destroy()
		return nil, err
	}
	fb.sampledView, err = fb.createView("raytrace_image_sampled")
	if err != nil {
		fb.Destroy()
		return nil, err
	}

	slogger().Debug("gpu: framebuffer created", "width", width, "height", height)
	return fb, nil
}

func (fb *Framebuffer) createView(label string) (hal.TextureView, error) {
	view, err := fb.device.CreateTextureView(fb.texture, &hal.TextureViewDescriptor{
		Label:         label,
		Format:        FramebufferFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return view, nil
}

// Width returns the image width in pixels.
func (fb *Framebuffer) Width() int { return int(fb.width) }

// Height returns the image height in pixels.
func (fb *Framebuffer) Height() int { return int(fb.height) }

// Texture returns the underlying texture.
func (fb *Framebuffer) Texture() hal.Texture { return fb.texture }

// StorageView returns the view bound as the kernel output image.
func (fb *Framebuffer) StorageView() hal.TextureView { return fb.storageView }

// SampledView returns the view sampled by the present pass.
func (fb *Framebuffer) SampledView() hal.TextureView { return fb.sampledView }

// recordTransition records a barrier moving tex from one usage to another.
// Nothing is recorded when the usages are equal. Callers update their own
// usage tracking only once the commands were submitted.
func recordTransition(encoder hal.CommandEncoder, tex hal.Texture, from, to gputypes.TextureUsage) {
	if from == to {
		return
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
		Usage: hal.TextureUsageTransition{
			OldUsage: from,
			NewUsage: to,
		},
	}})
}

// Destroy releases both views and the texture.
func (fb *Framebuffer) Destroy() {
	if fb == nil || fb.device == nil {
		return
	}
	if fb.sampledView != nil {
		fb.device.DestroyTextureView(fb.sampledView)
		fb.sampledView = nil
	}
	if fb.storageView != nil {
		fb.device.DestroyTextureView(fb.storageView)
		fb.storageView = nil
	}
	if fb.texture != nil {
		fb.device.DestroyTexture(fb.texture)
		fb.texture = nil
	}
	fb.device = nil
}
