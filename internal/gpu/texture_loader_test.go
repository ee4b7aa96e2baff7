//go:build !nogpu

package gpu

import (
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/raytrace"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "env.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTexture(t *testing.T) {
	d := createNoopDevice(t)
	path := writePNG(t, 16, 8)

	tex, err := LoadTexture(d.Device, d.Queue, path)
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	defer tex.Destroy()

	if tex.Width() != 16 || tex.Height() != 8 {
		t.Errorf("size = %dx%d, want 16x8", tex.Width(), tex.Height())
	}
	// 16 → 8 → 4 → 2 → 1
	if tex.MipLevels() != 5 {
		t.Errorf("MipLevels() = %d, want 5", tex.MipLevels())
	}
}

func TestLoadTextureErrors(t *testing.T) {
	d := createNoopDevice(t)

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbage, []byte("definitely not a png"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		filepath.Join(t.TempDir(), "missing.png"),
		garbage,
	} {
		tex, err := LoadTexture(d.Device, d.Queue, path)
		if tex != nil {
			t.Errorf("%s: expected nil texture", path)
		}
		var le *raytrace.LoadError
		if !errors.As(err, &le) {
			t.Fatalf("%s: err = %v, want *LoadError", path, err)
		}
		if le.Path != path {
			t.Errorf("LoadError.Path = %q, want %q", le.Path, path)
		}
	}
}

func TestSolidTexture(t *testing.T) {
	d := createNoopDevice(t)
	tex := createSolid(t, d)
	if tex.Width() != 1 || tex.Height() != 1 || tex.MipLevels() != 1 {
		t.Errorf("solid texture = %dx%d with %d levels", tex.Width(), tex.Height(), tex.MipLevels())
	}
	tex.Destroy()
	tex.Destroy()
}

// TestLoadTextureTexelsGPU reads level 0 back and checks every texel of a
// 2×2 image against the source pixel at the vertically flipped position.
func TestLoadTextureTexelsGPU(t *testing.T) {
	d := createVulkanDevice(t)

	src := [2][2]color.NRGBA{
		{{R: 255, A: 255}, {G: 255, A: 255}},         // top row: red, green
		{{B: 255, A: 255}, {R: 255, G: 255, A: 255}}, // bottom row: blue, yellow
	}
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.SetNRGBA(x, y, src[y][x])
		}
	}
	path := filepath.Join(t.TempDir(), "quad.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tex, err := LoadTexture(d.Device, d.Queue, path)
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	defer tex.Destroy()

	data, pitch, err := readTexture(d.Device, d.Queue, tex.texture, 2, 2,
		gputypes.TextureUsageTextureBinding, gputypes.TextureUsageTextureBinding)
	if err != nil {
		t.Fatalf("read texture: %v", err)
	}
	for y := range 2 {
		for x := range 2 {
			px := data[y*int(pitch)+x*4:]
			want := src[1-y][x]
			if px[0] != want.R || px[1] != want.G || px[2] != want.B || px[3] != 255 {
				t.Errorf("texel (%d,%d) = %v, want source pixel (%d,%d) %v", x, y, px[:4], x, 1-y, want)
			}
		}
	}
}
