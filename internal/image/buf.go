package image

import "errors"

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("image: invalid format")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("image: data buffer too small")

	// ErrOutOfBounds is returned when pixel coordinates are outside image bounds.
	ErrOutOfBounds = errors.New("image: coordinates out of bounds")
)

// ImageBuf is a tightly packed pixel buffer. Rows are stored in order, row 0
// first; whether row 0 is the top or the bottom of the picture is up to the
// caller (see FlipVertical).
type ImageBuf struct {
	data   []byte
	width  int
	height int
	format Format
}

// NewImageBuf creates a zeroed image buffer.
func NewImageBuf(width, height int, format Format) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	return &ImageBuf{
		data:   make([]byte, format.ImageBytes(width, height)),
		width:  width,
		height: height,
		format: format,
	}, nil
}

// FromRaw wraps existing tightly packed data without copying.
func FromRaw(data []byte, width, height int, format Format) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	size := format.ImageBytes(width, height)
	if len(data) < size {
		return nil, ErrDataTooSmall
	}
	return &ImageBuf{
		data:   data[:size],
		width:  width,
		height: height,
		format: format,
	}, nil
}

// Width returns the image width in pixels.
func (b *ImageBuf) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *ImageBuf) Height() int { return b.height }

// Format returns the pixel format.
func (b *ImageBuf) Format() Format { return b.format }

// Stride returns the number of bytes per row.
func (b *ImageBuf) Stride() int { return b.format.RowBytes(b.width) }

// Data returns the raw pixel data slice.
func (b *ImageBuf) Data() []byte { return b.data }

// RowBytes returns a slice of the pixel data for row y.
// Returns nil if y is out of bounds.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	stride := b.Stride()
	start := y * stride
	return b.data[start : start+stride]
}

// PixelOffset returns the byte offset of pixel (x, y) in the data slice.
// Returns -1 if coordinates are out of bounds.
func (b *ImageBuf) PixelOffset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return -1
	}
	return y*b.Stride() + x*b.format.BytesPerPixel()
}

// GetRGBA returns the color at (x, y). For RGB8, a is 255.
// Returns (0,0,0,0) if coordinates are out of bounds.
func (b *ImageBuf) GetRGBA(x, y int) (r, g, bl, a uint8) {
	off := b.PixelOffset(x, y)
	if off < 0 {
		return 0, 0, 0, 0
	}
	p := b.data[off:]
	if b.format == FormatRGB8 {
		return p[0], p[1], p[2], 255
	}
	return p[0], p[1], p[2], p[3]
}

// SetRGBA sets the color at (x, y). Alpha is dropped for RGB8.
func (b *ImageBuf) SetRGBA(x, y int, r, g, bl, a uint8) error {
	off := b.PixelOffset(x, y)
	if off < 0 {
		return ErrOutOfBounds
	}
	b.data[off] = r
	b.data[off+1] = g
	b.data[off+2] = bl
	if b.format == FormatRGBA8 {
		b.data[off+3] = a
	}
	return nil
}

// ToRGBA expands the buffer to RGBA8. RGB8 pixels become opaque. An RGBA8
// buffer is returned unchanged.
func (b *ImageBuf) ToRGBA() *ImageBuf {
	if b.format == FormatRGBA8 {
		return b
	}
	out, _ := NewImageBuf(b.width, b.height, FormatRGBA8)
	n := b.width * b.height
	for i := range n {
		out.data[i*4] = b.data[i*3]
		out.data[i*4+1] = b.data[i*3+1]
		out.data[i*4+2] = b.data[i*3+2]
		out.data[i*4+3] = 255
	}
	return out
}
