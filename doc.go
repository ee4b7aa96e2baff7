// Package raytrace renders a scene by dispatching a WGSL compute kernel that
// writes ray-traced colors into a texture, then presents that texture every
// frame through a full-screen quad.
//
// The root package holds what the GPU packages share: the [Config] passed to
// every component, the binding contract between the orchestration code and the
// kernel source (see [ImageBinding], [ParamsBinding], [ResolutionField]), the
// default WGSL [Sources], the error taxonomy and the package logger.
//
// The kernel runs once at load time. A memory barrier and a fence wait sit
// between the dispatch and the first present, so the sampled image always
// holds the finished frame.
//
// Architecture:
//
//	Sources ──► gpu.Compiler ──► Program(Raster), Program(Compute)
//	                                  │                 │
//	             gpu.Framebuffer ◄────┼── gpu.Dispatcher (once + barrier)
//	                  │               │
//	                  ├──► gpu.Presenter (every frame, 6-index quad)
//	                  └──► gpu.CaptureAndSave (on demand, BMP)
//
// The pipeline package wires these together and cmd/raytrace runs them in a
// gogpu window.
package raytrace
