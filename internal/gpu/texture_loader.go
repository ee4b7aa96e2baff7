//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/internal/image"
)

// Texture is a sampled, mipmapped RGBA8 texture with its own sampler.
type Texture struct {
	device  hal.Device
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	width, height int
	levels        int
}

// Width returns the level 0 width.
func (t *Texture) Width() int { return t.width }

// Height returns the level 0 height.
func (t *Texture) Height() int { return t.height }

// MipLevels returns the number of uploaded mip levels.
func (t *Texture) MipLevels() int { return t.levels }

// LoadTexture decodes the image at path and uploads it with a full mip
// chain. Row 0 of the texture holds the bottom row of the picture. The
// decoded pixels are kept as RGB8 and expanded to RGBA8 for upload.
// Any failure to open or decode the file is returned as *raytrace.LoadError.
func LoadTexture(device hal.Device, queue hal.Queue, path string) (*Texture, error) {
	buf, err := image.LoadFlippedRGB(path)
	if err != nil {
		return nil, &raytrace.LoadError{Path: path, Err: err}
	}
	t, err := newTexture(device, queue, "env_texture", buf)
	if err != nil {
		return nil, err
	}
	slogger().Debug("gpu: texture loaded", "path", path, "width", t.width, "height", t.height, "levels", t.levels)
	return t, nil
}

// NewSolidTexture creates a 1×1 texture of one color.
func NewSolidTexture(device hal.Device, queue hal.Queue, r, g, b, a uint8) (*Texture, error) {
	buf, _ := image.NewImageBuf(1, 1, image.FormatRGBA8)
	_ = buf.SetRGBA(0, 0, r, g, b, a)
	return newTexture(device, queue, "solid_texture", buf)
}

func newTexture(device hal.Device, queue hal.Queue, label string, src *image.ImageBuf) (*Texture, error) {
	chain := image.GenerateMipmaps(src.ToRGBA())
	t := &Texture{
		device: device,
		width:  src.Width(),
		height: src.Height(),
		levels: chain.NumLevels(),
	}

	var err error
	t.texture, err = device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(t.width),  //nolint:gosec // image dimensions fit uint32
			Height:             uint32(t.height), //nolint:gosec // image dimensions fit uint32
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(t.levels), //nolint:gosec // at most 32
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}

	for i := range t.levels {
		level := chain.Level(i)
		w, h := uint32(level.Width()), uint32(level.Height()) //nolint:gosec // image dimensions fit uint32
		err := queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: t.texture, MipLevel: uint32(i)}, //nolint:gosec // level index is small
			level.Data(),
			&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
		if err != nil {
			t.Destroy()
			return nil, fmt.Errorf("upload %s level %d: %w", label, i, err)
		}
	}

	t.view, err = device.CreateTextureView(t.texture, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: uint32(t.levels), //nolint:gosec // at most 32
	})
	if err != nil {
		t.Destroy()
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}

	t.sampler, err = newLinearSampler(device, label+"_sampler")
	if err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// Destroy releases the sampler, view and texture.
func (t *Texture) Destroy() {
	if t == nil || t.device == nil {
		return
	}
	if t.sampler != nil {
		t.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
	t.device = nil
}
