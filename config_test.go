package raytrace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Width != 500 || c.Height != 500 || c.WorkgroupSize != 10 {
		t.Errorf("DefaultConfig() = %+v", c)
	}
	if c.Title != "RayTracing" || c.CapturePath != "1.bmp" {
		t.Errorf("DefaultConfig() = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if !c.EvenlyDivisible() {
		t.Error("500x500 with 10x10 workgroups should divide evenly")
	}
	if r := c.Resolution(); r != [2]float32{500, 500} {
		t.Errorf("Resolution() = %v", r)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"non-divisible size", DefaultConfig().WithSize(501, 333), true},
		{"workgroup 1", DefaultConfig().WithWorkgroupSize(1), true},
		{"workgroup 32", DefaultConfig().WithWorkgroupSize(32), true},
		{"zero width", DefaultConfig().WithSize(0, 10), false},
		{"negative height", DefaultConfig().WithSize(10, -1), false},
		{"workgroup 0", DefaultConfig().WithWorkgroupSize(0), false},
		{"workgroup 33", DefaultConfig().WithWorkgroupSize(33), false},
		{"empty capture path", DefaultConfig().WithCapturePath(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigBuildersDoNotAlias(t *testing.T) {
	base := DefaultConfig()
	c := base.WithTitle("x").WithSize(1, 2).WithShaderDir("s").WithEnvironmentMap("e.jpg")
	if base.Title != DefaultTitle || base.Width != DefaultWidth || base.ShaderDir != "" || base.EnvironmentMap != "" {
		t.Errorf("builder modified receiver: %+v", base)
	}
	if c.Title != "x" || c.Width != 1 || c.Height != 2 || c.ShaderDir != "s" || c.EnvironmentMap != "e.jpg" {
		t.Errorf("builders = %+v", c)
	}
}

func TestDecodeConfig(t *testing.T) {
	doc := `
width = 640
height = 480
workgroup_size = 16
environment_map = "sky.jpg"
`
	c, err := DecodeConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if c.Width != 640 || c.Height != 480 || c.WorkgroupSize != 16 || c.EnvironmentMap != "sky.jpg" {
		t.Errorf("DecodeConfig = %+v", c)
	}
	// Unset keys keep their defaults.
	if c.Title != DefaultTitle || c.CapturePath != DefaultCapturePath {
		t.Errorf("defaults lost: %+v", c)
	}

	if _, err := DecodeConfig(strings.NewReader("colour = 3\n")); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := DecodeConfig(strings.NewReader("width = \"wide\"\n")); err == nil {
		t.Error("expected error for mistyped value")
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	want := DefaultConfig().WithSize(320, 200).WithCapturePath("out.bmp")
	var buf bytes.Buffer
	if err := EncodeConfig(&buf, want); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "raytrace.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("LoadConfig = %+v, want %+v", got, want)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
