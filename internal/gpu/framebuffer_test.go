//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/raytrace"
)

func TestNewFramebuffer(t *testing.T) {
	d := createNoopDevice(t)

	fb := createFramebuffer(t, d, 500, 500)
	if fb.Width() != 500 || fb.Height() != 500 {
		t.Errorf("size = %dx%d", fb.Width(), fb.Height())
	}
	if fb.Texture() == nil || fb.StorageView() == nil || fb.SampledView() == nil {
		t.Error("expected texture and both views")
	}

	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if _, err := NewFramebuffer(d.Device, size[0], size[1]); !errors.Is(err, raytrace.ErrInvalidConfig) {
			t.Errorf("NewFramebuffer(%d, %d): err = %v, want ErrInvalidConfig", size[0], size[1], err)
		}
	}
}

func TestFramebufferDestroyIdempotent(t *testing.T) {
	d := createNoopDevice(t)
	fb, err := NewFramebuffer(d.Device, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	fb.Destroy()
	fb.Destroy()
	if fb.Texture() != nil {
		t.Error("texture should be released")
	}
}
