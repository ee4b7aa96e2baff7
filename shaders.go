package raytrace

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Fixed shader file names, looked up relative to Config.ShaderDir.
const (
	ComputeShaderFile  = "comp_shader.wgsl"
	VertexShaderFile   = "vert_shader.wgsl"
	FragmentShaderFile = "frag_shader.wgsl"
)

//go:embed shaders/comp_shader.wgsl
var defaultComputeSource string

//go:embed shaders/vert_shader.wgsl
var defaultVertexSource string

//go:embed shaders/frag_shader.wgsl
var defaultFragmentSource string

// Sources holds the WGSL text of the three stages.
type Sources struct {
	Compute  string
	Vertex   string
	Fragment string
}

// DefaultSources returns the embedded kernel and present shaders. The
// kernel uses a 10×10 workgroup.
func DefaultSources() Sources {
	return Sources{
		Compute:  defaultComputeSource,
		Vertex:   defaultVertexSource,
		Fragment: defaultFragmentSource,
	}
}

// LoadSources reads the three shader files from dir. A file that does not
// exist is replaced by its embedded default and a warning is logged. Any
// other read error is returned.
func LoadSources(dir string) (Sources, error) {
	src := DefaultSources()
	files := []struct {
		name string
		dst  *string
	}{
		{ComputeShaderFile, &src.Compute},
		{VertexShaderFile, &src.Vertex},
		{FragmentShaderFile, &src.Fragment},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		data, err := os.ReadFile(filepath.Clean(path))
		if errors.Is(err, fs.ErrNotExist) {
			Logger().Warn("shader file not found, using embedded default", "path", path)
			continue
		}
		if err != nil {
			return Sources{}, fmt.Errorf("raytrace: read shader: %w", err)
		}
		*f.dst = string(data)
	}
	return src, nil
}
