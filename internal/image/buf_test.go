package image

import (
	"errors"
	"testing"
)

func TestNewImageBuf(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		format  Format
		wantErr error
	}{
		{"rgb", 4, 3, FormatRGB8, nil},
		{"rgba", 1, 1, FormatRGBA8, nil},
		{"zero width", 0, 3, FormatRGB8, ErrInvalidDimensions},
		{"negative height", 2, -1, FormatRGBA8, ErrInvalidDimensions},
		{"bad format", 2, 2, formatCount, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := NewImageBuf(tt.w, tt.h, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got, want := len(buf.Data()), tt.w*tt.h*tt.format.BytesPerPixel(); got != want {
				t.Errorf("len(Data) = %d, want %d", got, want)
			}
			if buf.Stride() != tt.w*tt.format.BytesPerPixel() {
				t.Errorf("Stride = %d", buf.Stride())
			}
		})
	}
}

func TestFromRaw(t *testing.T) {
	if _, err := FromRaw(make([]byte, 5), 2, 1, FormatRGB8); !errors.Is(err, ErrDataTooSmall) {
		t.Errorf("short data: err = %v, want ErrDataTooSmall", err)
	}
	data := make([]byte, 10)
	buf, err := FromRaw(data, 2, 1, FormatRGBA8)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Data()) != 8 {
		t.Errorf("len(Data) = %d, want 8", len(buf.Data()))
	}
	data[0] = 42
	if r, _, _, _ := buf.GetRGBA(0, 0); r != 42 {
		t.Errorf("FromRaw copied data, want shared storage")
	}
}

func TestGetSetRGBA(t *testing.T) {
	for _, f := range []Format{FormatRGB8, FormatRGBA8} {
		t.Run(f.String(), func(t *testing.T) {
			buf, _ := NewImageBuf(3, 2, f)
			if err := buf.SetRGBA(2, 1, 10, 20, 30, 40); err != nil {
				t.Fatal(err)
			}
			r, g, b, a := buf.GetRGBA(2, 1)
			wantA := uint8(40)
			if !f.HasAlpha() {
				wantA = 255
			}
			if r != 10 || g != 20 || b != 30 || a != wantA {
				t.Errorf("GetRGBA = %d,%d,%d,%d", r, g, b, a)
			}
			if err := buf.SetRGBA(3, 0, 0, 0, 0, 0); !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("out of bounds: err = %v", err)
			}
			if _, _, _, a := buf.GetRGBA(-1, 0); a != 0 {
				t.Errorf("out of bounds GetRGBA alpha = %d, want 0", a)
			}
		})
	}
}

func TestToRGBA(t *testing.T) {
	buf, _ := NewImageBuf(2, 1, FormatRGB8)
	_ = buf.SetRGBA(1, 0, 1, 2, 3, 0)
	out := buf.ToRGBA()
	if out.Format() != FormatRGBA8 {
		t.Fatalf("Format = %v", out.Format())
	}
	want := []byte{0, 0, 0, 255, 1, 2, 3, 255}
	for i, v := range want {
		if out.Data()[i] != v {
			t.Fatalf("Data = %v, want %v", out.Data(), want)
		}
	}
	if out.ToRGBA() != out {
		t.Error("ToRGBA on RGBA8 should return the receiver")
	}
}

func TestFlipVertical(t *testing.T) {
	for _, h := range []int{1, 2, 3, 4} {
		buf, _ := NewImageBuf(2, h, FormatRGB8)
		for y := range h {
			_ = buf.SetRGBA(0, y, uint8(y), 0, 0, 255)
		}
		buf.FlipVertical()
		for y := range h {
			if r, _, _, _ := buf.GetRGBA(0, y); int(r) != h-1-y {
				t.Errorf("h=%d: row %d holds %d, want %d", h, y, r, h-1-y)
			}
		}
	}
}
