package image

import (
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrEmptyImage is returned when a decoded image has no pixels.
var ErrEmptyImage = errors.New("image: empty image")

// Decode decodes any registered format (PNG, JPEG, GIF, BMP, TIFF, WebP).
func Decode(r io.Reader) (stdimage.Image, error) {
	img, _, err := stdimage.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// Load opens and decodes the file at path.
func Load(path string) (stdimage.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadFlippedRGB loads the file at path and returns it as RGB8 with row 0
// holding the bottom row of the picture.
func LoadFlippedRGB(path string) (*ImageBuf, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return FromStdImageRGB(FlipStdImage(img)), nil
}

// FromStdImageRGB converts img to an RGB8 buffer, dropping alpha.
func FromStdImageRGB(img stdimage.Image) *ImageBuf {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	buf, _ := NewImageBuf(width, height, FormatRGB8)

	// Fast path for RGBA images
	if rgba, ok := img.(*stdimage.RGBA); ok {
		for y := range height {
			src := rgba.Pix[y*rgba.Stride:]
			dst := buf.RowBytes(y)
			for x := range width {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return buf
	}

	for y := range height {
		for x := range width {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			_ = buf.SetRGBA(x, y, c.R, c.G, c.B, 255)
		}
	}
	return buf
}

// ToStdImage converts the buffer to an opaque *image.RGBA.
func (b *ImageBuf) ToStdImage() *stdimage.RGBA {
	rgba := stdimage.NewRGBA(stdimage.Rect(0, 0, b.width, b.height))
	for y := range b.height {
		dst := rgba.Pix[y*rgba.Stride:]
		for x := range b.width {
			r, g, bl, a := b.GetRGBA(x, y)
			dst[x*4] = r
			dst[x*4+1] = g
			dst[x*4+2] = bl
			dst[x*4+3] = a
		}
	}
	return rgba
}

// EncodeBMP writes the buffer as an uncompressed BMP. Opaque images are
// written as 24-bit.
func (b *ImageBuf) EncodeBMP(w io.Writer) error {
	if err := bmp.Encode(w, b.ToStdImage()); err != nil {
		return fmt.Errorf("image: encode BMP: %w", err)
	}
	return nil
}

// SaveBMP writes the buffer to path as an uncompressed BMP.
func (b *ImageBuf) SaveBMP(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}

	if err := b.EncodeBMP(f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
