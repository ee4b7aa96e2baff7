package raytrace

// Binding contract between the orchestration code and the WGSL sources.
// The compiler checks a compute kernel against ComputeInterface after
// lowering, so a source that moves a binding or renames the resolution
// field is rejected before any pipeline is built.
const (
	// KernelGroup is the bind group used by every program in this module.
	KernelGroup = 0

	// ImageBinding is the image unit the kernel writes its output to.
	ImageBinding = 0

	// ParamsBinding is the uniform buffer holding the kernel parameters.
	ParamsBinding = 1

	// EnvTextureBinding and EnvSamplerBinding hold the optional environment map.
	EnvTextureBinding = 2
	EnvSamplerBinding = 3

	// ResolutionField is the member of the parameter struct that receives
	// (width, height) as float32.
	ResolutionField = "resolution"

	// PresentTextureBinding and PresentSamplerBinding are read by the
	// fragment stage of the raster program.
	PresentTextureBinding = 0
	PresentSamplerBinding = 1

	// EntryPoint is the entry point name of every stage.
	EntryPoint = "main"

	// MaxWorkgroupSize is the per-axis hardware limit for workgroup sizes.
	MaxWorkgroupSize = 32
)

// ParamsSize is the byte size of the kernel parameter block:
// resolution (vec2<f32>) padded to 16 bytes for uniform layout rules.
const ParamsSize = 16

// BindingSlot names one resource binding.
type BindingSlot struct {
	Group   uint32
	Binding uint32
}

// KernelInterface describes the resources a compute kernel must declare.
type KernelInterface struct {
	Image       BindingSlot
	Params      BindingSlot
	ParamsField string
	EnvTexture  BindingSlot
	EnvSampler  BindingSlot
}

// ComputeInterface returns the contract every compute kernel is checked against.
func ComputeInterface() KernelInterface {
	return KernelInterface{
		Image:       BindingSlot{Group: KernelGroup, Binding: ImageBinding},
		Params:      BindingSlot{Group: KernelGroup, Binding: ParamsBinding},
		ParamsField: ResolutionField,
		EnvTexture:  BindingSlot{Group: KernelGroup, Binding: EnvTextureBinding},
		EnvSampler:  BindingSlot{Group: KernelGroup, Binding: EnvSamplerBinding},
	}
}
