//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// createNoopDevice opens a device on the noop backend.
func createNoopDevice(t *testing.T) *Device {
	t.Helper()
	d, err := OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

// createVulkanDevice opens a real GPU or skips the test.
func createVulkanDevice(t *testing.T) *Device {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping GPU test in short mode")
	}
	d, err := OpenVulkan()
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func compileDefaults(t *testing.T, d *Device, workgroup int) (raster, compute *Program) {
	t.Helper()
	src := raytrace.DefaultSources()
	c := NewCompiler(d.Device, gputypes.TextureFormatRGBA8Unorm, workgroup)
	raster, err := c.CompileRaster(src.Vertex, src.Fragment)
	if err != nil {
		t.Fatalf("CompileRaster failed: %v", err)
	}
	t.Cleanup(raster.Destroy)
	compute, err = c.CompileCompute(src.Compute)
	if err != nil {
		t.Fatalf("CompileCompute failed: %v", err)
	}
	t.Cleanup(compute.Destroy)
	return raster, compute
}

func createSolid(t *testing.T, d *Device) *Texture {
	t.Helper()
	tex, err := NewSolidTexture(d.Device, d.Queue, 0, 0, 0, 255)
	if err != nil {
		t.Fatalf("NewSolidTexture failed: %v", err)
	}
	t.Cleanup(tex.Destroy)
	return tex
}

func createFramebuffer(t *testing.T, d *Device, w, h int) *Framebuffer {
	t.Helper()
	fb, err := NewFramebuffer(d.Device, w, h)
	if err != nil {
		t.Fatalf("NewFramebuffer failed: %v", err)
	}
	t.Cleanup(fb.Destroy)
	return fb
}

// testTarget is an offscreen color target standing in for a surface.
type testTarget struct {
	tex  hal.Texture
	view hal.TextureView
	w, h uint32
}

// read copies the target back as top-down RGBA rows of pitch bytes. A
// render pass leaves the target as a render attachment.
func (tt *testTarget) read(t *testing.T, d *Device) (data []byte, pitch int) {
	t.Helper()
	data, p, err := readTexture(d.Device, d.Queue, tt.tex, tt.w, tt.h,
		gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageRenderAttachment)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	return data, int(p)
}

func createTarget(t *testing.T, d *Device, w, h uint32) *testTarget {
	t.Helper()
	tex, err := d.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	view, err := d.Device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "test_target_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.Device.DestroyTexture(tex)
		t.Fatalf("create target view: %v", err)
	}
	t.Cleanup(func() {
		d.Device.DestroyTextureView(view)
		d.Device.DestroyTexture(tex)
	})
	return &testTarget{tex: tex, view: view, w: w, h: h}
}
