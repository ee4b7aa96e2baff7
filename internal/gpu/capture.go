//go:build !nogpu

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/internal/image"
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// CapturedFrame is a host copy of the framebuffer: RGB8, top row first.
type CapturedFrame struct {
	*image.ImageBuf
}

// ReadFrame copies fb back to host memory. width and height must equal the
// framebuffer size; anything else is a caller bug and returns
// raytrace.ErrFrameSizeMismatch. Alpha is dropped and rows are reordered so
// that the first row of the result is the top of the displayed picture.
func ReadFrame(queue hal.Queue, fb *Framebuffer, width, height int) (*CapturedFrame, error) {
	if fb == nil || fb.device == nil {
		return nil, fmt.Errorf("gpu: read frame: framebuffer is nil")
	}
	if width != fb.Width() || height != fb.Height() {
		return nil, fmt.Errorf("%w: requested %dx%d, allocated %dx%d",
			raytrace.ErrFrameSizeMismatch, width, height, fb.Width(), fb.Height())
	}

	// A framebuffer that was never written has no defined contents; it is
	// still moved to the sampled state the present pass expects.
	readback, pitch, err := readTexture(fb.device, queue, fb.texture, fb.width, fb.height,
		fb.usage, gputypes.TextureUsageTextureBinding)
	if err != nil {
		return nil, err
	}
	fb.usage = gputypes.TextureUsageTextureBinding

	slogger().Debug("gpu: frame read back", "width", width, "height", height, "bytes", len(readback))
	return unpackFrame(readback, width, height, int(pitch))
}

// readTexture copies mip level 0 of an RGBA8 texture into host memory. The
// texture is moved from its current usage to CopySrc and then to restore.
// The result holds h rows of pitch bytes each, pitch being 4*w rounded up
// to the copy alignment.
func readTexture(device hal.Device, queue hal.Queue, tex hal.Texture, w, h uint32,
	current, restore gputypes.TextureUsage) ([]byte, uint32, error) {
	bytesPerRow := w * 4
	pitch := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(pitch) * uint64(h)

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback_encoder"})
	if err != nil {
		return nil, 0, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, 0, fmt.Errorf("begin encoding: %w", err)
	}

	recordTransition(encoder, tex, current, gputypes.TextureUsageCopySrc)
	encoder.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	recordTransition(encoder, tex, gputypes.TextureUsageCopySrc, restore)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, 0, fmt.Errorf("end encoding: %w", err)
	}
	if err := submitAndWait(device, queue, cmdBuf, true); err != nil {
		return nil, 0, err
	}

	data, err := readBuffer(device, staging, size)
	if err != nil {
		return nil, 0, err
	}
	return data, pitch, nil
}

// readBuffer copies the first size bytes of a mappable buffer. The GPU must
// be done writing it.
func readBuffer(device hal.Device, buf hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return out, nil
}

// unpackFrame converts padded bottom-up RGBA rows to a top-down RGB frame.
func unpackFrame(readback []byte, width, height, pitch int) (*CapturedFrame, error) {
	buf, err := image.NewImageBuf(width, height, image.FormatRGB8)
	if err != nil {
		return nil, err
	}
	for y := range height {
		src := readback[y*pitch : y*pitch+width*4]
		dst := buf.RowBytes(y)
		for x := range width {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	buf.FlipVertical()
	return &CapturedFrame{buf}, nil
}

// CaptureAndSave reads fb back and writes it to path as an uncompressed
// 24-bit BMP. A write failure is returned as *raytrace.IOError.
func CaptureAndSave(queue hal.Queue, fb *Framebuffer, width, height int, path string) error {
	frame, err := ReadFrame(queue, fb, width, height)
	if err != nil {
		return err
	}
	if err := frame.SaveBMP(path); err != nil {
		return &raytrace.IOError{Op: "write capture", Path: path, Err: err}
	}
	slogger().Info("gpu: capture saved", "path", path)
	return nil
}
