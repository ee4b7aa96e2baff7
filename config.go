package raytrace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultWidth         = 500
	DefaultHeight        = 500
	DefaultWorkgroupSize = 10
	DefaultTitle         = "RayTracing"
	DefaultCapturePath   = "1.bmp"
)

// Config is passed to every component constructor. Nothing in this module
// reads process-wide settings, so several pipelines with different
// resolutions can coexist.
type Config struct {
	// Title is the window title.
	Title string `toml:"title"`

	// Width and Height are the display and framebuffer size in pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// WorkgroupSize is the kernel workgroup edge (x and y). It must match
	// the @workgroup_size of the compute source and be at most 32.
	WorkgroupSize int `toml:"workgroup_size"`

	// ShaderDir holds comp_shader.wgsl, vert_shader.wgsl and
	// frag_shader.wgsl. Empty means the working directory.
	ShaderDir string `toml:"shader_dir"`

	// EnvironmentMap is an optional image sampled by the kernel for rays
	// that miss the scene.
	EnvironmentMap string `toml:"environment_map"`

	// CapturePath is where a capture is written.
	CapturePath string `toml:"capture_path"`
}

// DefaultConfig returns the baseline configuration: a 500×500 frame traced
// with 10×10 workgroups.
func DefaultConfig() Config {
	return Config{
		Title:         DefaultTitle,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		WorkgroupSize: DefaultWorkgroupSize,
		CapturePath:   DefaultCapturePath,
	}
}

// WithTitle returns a copy of c with the window title set.
func (c Config) WithTitle(title string) Config {
	c.Title = title
	return c
}

// WithSize returns a copy of c with the frame size set.
func (c Config) WithSize(width, height int) Config {
	c.Width = width
	c.Height = height
	return c
}

// WithWorkgroupSize returns a copy of c with the workgroup edge set.
func (c Config) WithWorkgroupSize(n int) Config {
	c.WorkgroupSize = n
	return c
}

// WithShaderDir returns a copy of c reading shader sources from dir.
func (c Config) WithShaderDir(dir string) Config {
	c.ShaderDir = dir
	return c
}

// WithEnvironmentMap returns a copy of c with the environment map path set.
func (c Config) WithEnvironmentMap(path string) Config {
	c.EnvironmentMap = path
	return c
}

// WithCapturePath returns a copy of c with the capture output path set.
func (c Config) WithCapturePath(path string) Config {
	c.CapturePath = path
	return c
}

// Validate reports whether c can drive a pipeline. The returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.WorkgroupSize <= 0 || c.WorkgroupSize > MaxWorkgroupSize {
		return fmt.Errorf("%w: workgroup size %d outside 1..%d", ErrInvalidConfig, c.WorkgroupSize, MaxWorkgroupSize)
	}
	if c.CapturePath == "" {
		return fmt.Errorf("%w: capture path is empty", ErrInvalidConfig)
	}
	return nil
}

// Resolution returns (width, height) as the float pair the kernel receives.
func (c Config) Resolution() [2]float32 {
	return [2]float32{float32(c.Width), float32(c.Height)}
}

// EvenlyDivisible reports whether the workgroup edge divides both frame
// dimensions, in which case no workgroup straddles the image border.
func (c Config) EvenlyDivisible() bool {
	return c.WorkgroupSize > 0 && c.Width%c.WorkgroupSize == 0 && c.Height%c.WorkgroupSize == 0
}

// DecodeConfig reads a TOML document over the defaults. Keys that are not
// fields of Config are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("raytrace: decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("raytrace: open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeConfig(f)
}

// EncodeConfig writes c as TOML.
func EncodeConfig(w io.Writer, c Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("raytrace: encode config: %w", err)
	}
	return nil
}
