package raytrace

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("raytrace: invalid config")

	// ErrFrameSizeMismatch is returned when a readback is requested with
	// dimensions that differ from the framebuffer allocation. It always
	// indicates a caller bug.
	ErrFrameSizeMismatch = errors.New("raytrace: frame size does not match framebuffer")

	// ErrNilProgram is returned when a nil program is bound for drawing or dispatch.
	ErrNilProgram = errors.New("raytrace: program is nil")

	// ErrWrongProgramKind is returned when a raster program is used for a
	// dispatch or a compute program for drawing.
	ErrWrongProgramKind = errors.New("raytrace: wrong program kind")
)

// Stage identifies where a CompileError originated.
type Stage string

// Compile stages.
const (
	StageVertex    Stage = "vertex"
	StageFragment  Stage = "fragment"
	StageCompute   Stage = "compute"
	StageLink      Stage = "link"
	StageInterface Stage = "interface"
)

// CompileError reports a failed stage compilation, a failed program link or a
// kernel that does not match the binding contract. Log carries the
// diagnostic text. It is always fatal: no pipeline can be built without both
// programs.
type CompileError struct {
	Stage Stage
	Label string
	Log   string
	Err   error
}

func (e *CompileError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("raytrace: %s stage failed: %s", e.Stage, e.Log)
	}
	return fmt.Sprintf("raytrace: %s: %s stage failed: %s", e.Label, e.Stage, e.Log)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LoadError reports an input image that is missing, unreadable or not
// decodable. Callers that treat the image as optional may recover from it.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("raytrace: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IOError reports a failed capture write. Rendering continues after it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("raytrace: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
