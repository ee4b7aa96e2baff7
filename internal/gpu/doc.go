//go:build !nogpu

// Package gpu holds the GPU side of the ray tracer on top of wgpu/hal.
//
// The pieces are used in this order:
//
//	Compiler      WGSL → naga IR check → hal shader modules and pipelines
//	Framebuffer   one RGBA8 image with a storage view and a sampled view
//	Dispatcher    writes the resolution uniform, dispatches once, barrier, fence
//	Presenter     draws the full-screen quad sampling the framebuffer
//	ReadFrame     copies the framebuffer back to host memory for capture
//	LoadTexture   decodes an image file into a mipmapped sampled texture
//
// Every type here owns its hal objects and releases them in Destroy. None of
// them are safe for concurrent use; the device is driven from one goroutine.
package gpu
