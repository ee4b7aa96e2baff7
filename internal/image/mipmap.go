package image

import "math"

// MipmapChain holds pre-computed downscaled versions of an image.
//
// Level 0 is the original full-resolution image. Every following level is
// half the size of the previous one (rounded down, at least 1) until both
// dimensions reach 1 pixel, which matches the GPU mip level count
// 1 + floor(log2(max(width, height))).
type MipmapChain struct {
	levels []*ImageBuf
}

// MipLevelCount returns the number of levels in a full chain for the given size.
func MipLevelCount(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	return 1 + int(math.Floor(math.Log2(float64(max(width, height)))))
}

// GenerateMipmaps creates a mipmap chain from src using a 2x2 box filter.
// src becomes level 0 and is not copied. Returns nil if src is nil.
func GenerateMipmaps(src *ImageBuf) *MipmapChain {
	if src == nil {
		return nil
	}
	n := MipLevelCount(src.Width(), src.Height())
	chain := &MipmapChain{levels: make([]*ImageBuf, n)}
	chain.levels[0] = src
	for i := 1; i < n; i++ {
		chain.levels[i] = downsample(chain.levels[i-1])
	}
	return chain
}

// downsample creates a half-size version of src using a box filter.
func downsample(src *ImageBuf) *ImageBuf {
	srcW, srcH := src.Width(), src.Height()
	dstW := max(1, srcW/2)
	dstH := max(1, srcH/2)

	dst, _ := NewImageBuf(dstW, dstH, src.Format())

	for dy := range dstH {
		for dx := range dstW {
			sx := dx * 2
			sy := dy * 2

			// Sample 2x2 region (handle odd dimensions)
			r0, g0, b0, a0 := src.GetRGBA(sx, sy)
			r1, g1, b1, a1 := src.GetRGBA(min(sx+1, srcW-1), sy)
			r2, g2, b2, a2 := src.GetRGBA(sx, min(sy+1, srcH-1))
			r3, g3, b3, a3 := src.GetRGBA(min(sx+1, srcW-1), min(sy+1, srcH-1))

			r := (uint16(r0) + uint16(r1) + uint16(r2) + uint16(r3)) / 4
			g := (uint16(g0) + uint16(g1) + uint16(g2) + uint16(g3)) / 4
			b := (uint16(b0) + uint16(b1) + uint16(b2) + uint16(b3)) / 4
			a := (uint16(a0) + uint16(a1) + uint16(a2) + uint16(a3)) / 4

			_ = dst.SetRGBA(dx, dy, byte(r), byte(g), byte(b), byte(a))
		}
	}

	return dst
}

// Level returns the mipmap at the specified level, or nil if out of range.
func (m *MipmapChain) Level(n int) *ImageBuf {
	if m == nil || n < 0 || n >= len(m.levels) {
		return nil
	}
	return m.levels[n]
}

// NumLevels returns the total number of mipmap levels in the chain.
func (m *MipmapChain) NumLevels() int {
	if m == nil {
		return 0
	}
	return len(m.levels)
}
