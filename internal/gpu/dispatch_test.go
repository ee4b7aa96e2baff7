//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

func TestGridSize(t *testing.T) {
	tests := []struct {
		w, h, wg   uint32
		wantX      uint32
		wantY      uint32
		wantZ      uint32
		coversEach bool
	}{
		{500, 500, 10, 50, 50, 1, true},
		{501, 500, 10, 51, 50, 1, true},
		{640, 480, 32, 20, 15, 1, true},
		{1, 1, 32, 1, 1, 1, true},
		{33, 7, 8, 5, 1, 1, true},
		{10, 10, 0, 0, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, z := GridSize(tt.w, tt.h, tt.wg)
		if x != tt.wantX || y != tt.wantY || z != tt.wantZ {
			t.Errorf("GridSize(%d, %d, %d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.w, tt.h, tt.wg, x, y, z, tt.wantX, tt.wantY, tt.wantZ)
		}
		if !tt.coversEach {
			continue
		}
		// Every pixel is covered, and no full workgroup row or column is wasted.
		if x*tt.wg < tt.w || y*tt.wg < tt.h {
			t.Errorf("GridSize(%d, %d, %d) does not cover the image", tt.w, tt.h, tt.wg)
		}
		if (x-1)*tt.wg >= tt.w || (y-1)*tt.wg >= tt.h {
			t.Errorf("GridSize(%d, %d, %d) dispatches an empty workgroup column", tt.w, tt.h, tt.wg)
		}
	}
}

func TestDispatchConfigParams(t *testing.T) {
	cfg := raytrace.DefaultConfig().WithSize(640, 360)
	dc := NewDispatchConfig(cfg)
	if dc.WorkgroupSize != 10 {
		t.Errorf("WorkgroupSize = %d, want 10", dc.WorkgroupSize)
	}
	b := dc.params()
	if len(b) != raytrace.ParamsSize {
		t.Fatalf("len(params) = %d, want %d", len(b), raytrace.ParamsSize)
	}
	w := math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	h := math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	if w != 640 || h != 360 {
		t.Errorf("resolution = (%v, %v), want (640, 360)", w, h)
	}
}

func TestNewDispatcherRejectsWorkgroup(t *testing.T) {
	d := createNoopDevice(t)
	for _, wg := range []uint32{0, raytrace.MaxWorkgroupSize + 1} {
		_, err := NewDispatcher(d.Device, d.Queue, DispatchConfig{WorkgroupSize: wg, Resolution: [2]float32{1, 1}})
		if !errors.Is(err, raytrace.ErrInvalidConfig) {
			t.Errorf("workgroup %d: err = %v, want ErrInvalidConfig", wg, err)
		}
	}
}

func TestRunOnceNoop(t *testing.T) {
	d := createNoopDevice(t)
	raster, compute := compileDefaults(t, d, raytrace.DefaultWorkgroupSize)
	fb := createFramebuffer(t, d, 64, 48)
	env := createSolid(t, d)

	disp, err := NewDispatcher(d.Device, d.Queue, NewDispatchConfig(raytrace.DefaultConfig().WithSize(64, 48)))
	if err != nil {
		t.Fatal(err)
	}
	defer disp.Destroy()

	if err := disp.RunOnce(compute, fb, env); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if disp.Runs() != 1 {
		t.Errorf("Runs() = %d, want 1", disp.Runs())
	}
	if fb.usage != gputypes.TextureUsageTextureBinding {
		t.Errorf("framebuffer usage after dispatch = %v, want TextureBinding", fb.usage)
	}

	if err := disp.RunOnce(raster, fb, env); !errors.Is(err, raytrace.ErrWrongProgramKind) {
		t.Errorf("raster program: err = %v, want ErrWrongProgramKind", err)
	}
	if err := disp.RunOnce(nil, fb, env); !errors.Is(err, raytrace.ErrNilProgram) {
		t.Errorf("nil program: err = %v, want ErrNilProgram", err)
	}
	if disp.Runs() != 1 {
		t.Errorf("failed runs must not count: Runs() = %d", disp.Runs())
	}
}

var errSubmit = errors.New("submit rejected")

// rejectingQueue fails every submission.
type rejectingQueue struct {
	hal.Queue
}

func (rejectingQueue) Submit([]hal.CommandBuffer) (uint64, error) { return 0, errSubmit }

func TestSubmitFailureKeepsUsage(t *testing.T) {
	d := createNoopDevice(t)
	_, compute := compileDefaults(t, d, raytrace.DefaultWorkgroupSize)
	fb := createFramebuffer(t, d, 16, 16)
	env := createSolid(t, d)
	queue := rejectingQueue{d.Queue}

	disp, err := NewDispatcher(d.Device, queue, DispatchConfig{WorkgroupSize: 8, Resolution: [2]float32{16, 16}})
	if err != nil {
		t.Fatal(err)
	}
	defer disp.Destroy()

	if err := disp.RunOnce(compute, fb, env); !errors.Is(err, errSubmit) {
		t.Fatalf("RunOnce: err = %v, want submit error", err)
	}
	if fb.usage != 0 {
		t.Errorf("usage after failed dispatch = %v, want unchanged", fb.usage)
	}
	if disp.Runs() != 0 {
		t.Errorf("Runs() = %d after failed dispatch", disp.Runs())
	}

	if _, err := ReadFrame(queue, fb, 16, 16); !errors.Is(err, errSubmit) {
		t.Fatalf("ReadFrame: err = %v, want submit error", err)
	}
	if fb.usage != 0 {
		t.Errorf("usage after failed readback = %v, want unchanged", fb.usage)
	}
}
