package image

import (
	stdimage "image"

	"github.com/anthonynsimon/bild/transform"
)

// FlipVertical swaps rows in place so that row 0 becomes row height-1.
// Frames read back from the GPU are bottom-up and are flipped with it
// before encoding. Decoded files take the FlipStdImage path instead.
func (b *ImageBuf) FlipVertical() {
	for top, bottom := 0, b.height-1; top < bottom; top, bottom = top+1, bottom-1 {
		t := b.RowBytes(top)
		u := b.RowBytes(bottom)
		for i := range t {
			t[i], u[i] = u[i], t[i]
		}
	}
}

// FlipStdImage returns a vertically flipped RGBA copy of img.
func FlipStdImage(img stdimage.Image) *stdimage.RGBA {
	return transform.FlipV(img)
}
