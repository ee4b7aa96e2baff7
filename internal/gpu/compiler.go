//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace"
)

// ProgramKind distinguishes raster and compute programs.
type ProgramKind uint8

const (
	// ProgramRaster is a linked vertex + fragment pair.
	ProgramRaster ProgramKind = iota

	// ProgramCompute is a single linked compute kernel.
	ProgramCompute
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramRaster:
		return "raster"
	case ProgramCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Program is a linked shader program. It only exists after every stage
// compiled and the pipeline was created.
type Program struct {
	kind  ProgramKind
	label string

	device     hal.Device
	modules    []hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	render  hal.RenderPipeline
	compute hal.ComputePipeline

	workgroup [3]uint32
}

// Kind returns whether the program is raster or compute.
func (p *Program) Kind() ProgramKind { return p.kind }

// Workgroup returns the kernel workgroup size. Zero for raster programs.
func (p *Program) Workgroup() [3]uint32 { return p.workgroup }

// BindGroupLayout returns the layout of bind group 0.
func (p *Program) BindGroupLayout() hal.BindGroupLayout { return p.bindLayout }

// Destroy releases the pipeline and all shader modules.
func (p *Program) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.render != nil {
		p.device.DestroyRenderPipeline(p.render)
		p.render = nil
	}
	if p.compute != nil {
		p.device.DestroyComputePipeline(p.compute)
		p.compute = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	for _, m := range p.modules {
		p.device.DestroyShaderModule(m)
	}
	p.modules = nil
	p.device = nil
}

// checkKind reports ErrNilProgram or ErrWrongProgramKind.
func (p *Program) checkKind(want ProgramKind) error {
	if p == nil || p.device == nil {
		return raytrace.ErrNilProgram
	}
	if p.kind != want {
		return fmt.Errorf("%w: have %s, want %s", raytrace.ErrWrongProgramKind, p.kind, want)
	}
	return nil
}

// Compiler turns WGSL sources into linked programs.
//
// Each stage is checked with naga first (parse, lower, validate) so that a
// broken shader yields a diagnostic with source context instead of a
// driver error. Compute kernels are also checked against
// raytrace.ComputeInterface.
type Compiler struct {
	device        hal.Device
	targetFormat  gputypes.TextureFormat
	workgroupSize uint32
}

// NewCompiler creates a compiler. targetFormat is the color format raster
// programs render to. workgroupSize is the edge every compute kernel must
// declare in @workgroup_size.
func NewCompiler(device hal.Device, targetFormat gputypes.TextureFormat, workgroupSize int) *Compiler {
	return &Compiler{
		device:        device,
		targetFormat:  targetFormat,
		workgroupSize: uint32(workgroupSize), //nolint:gosec // validated by Config
	}
}

// CompileRaster compiles a vertex and a fragment stage and links them into
// a render pipeline drawing the present mesh.
func (c *Compiler) CompileRaster(vertexSource, fragmentSource string) (*Program, error) {
	vs, err := frontEnd(raytrace.StageVertex, vertexSource)
	if err != nil {
		return nil, err
	}
	if _, err := entryPoint(vs, raytrace.StageVertex, ir.StageVertex); err != nil {
		return nil, err
	}
	fs, err := frontEnd(raytrace.StageFragment, fragmentSource)
	if err != nil {
		return nil, err
	}
	if _, err := entryPoint(fs, raytrace.StageFragment, ir.StageFragment); err != nil {
		return nil, err
	}
	if err := checkVaryings(vs, fs); err != nil {
		return nil, err
	}

	p := &Program{kind: ProgramRaster, label: "present", device: c.device}
	if err := c.linkRaster(p, vertexSource, fragmentSource); err != nil {
		p.Destroy()
		return nil, &raytrace.CompileError{Stage: raytrace.StageLink, Label: p.label, Log: err.Error(), Err: err}
	}
	slogger().Debug("gpu: raster program linked")
	return p, nil
}

// CompileCompute compiles and links a compute kernel.
func (c *Compiler) CompileCompute(source string) (*Program, error) {
	m, err := frontEnd(raytrace.StageCompute, source)
	if err != nil {
		return nil, err
	}
	ep, err := entryPoint(m, raytrace.StageCompute, ir.StageCompute)
	if err != nil {
		return nil, err
	}
	if err := c.checkKernel(m, ep); err != nil {
		return nil, err
	}

	p := &Program{kind: ProgramCompute, label: "raytrace", device: c.device, workgroup: ep.Workgroup}
	if err := c.linkCompute(p, source); err != nil {
		p.Destroy()
		return nil, &raytrace.CompileError{Stage: raytrace.StageLink, Label: p.label, Log: err.Error(), Err: err}
	}
	slogger().Debug("gpu: compute program linked", "workgroup", ep.Workgroup)
	return p, nil
}

// frontEnd parses, lowers and validates one stage.
func frontEnd(stage raytrace.Stage, source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &raytrace.CompileError{Stage: stage, Log: diagnostic(err), Err: err}
	}
	lowered, err := wgsl.LowerWithWarnings(ast, source)
	if err != nil {
		return nil, &raytrace.CompileError{Stage: stage, Log: diagnostic(err), Err: err}
	}
	for _, w := range lowered.Warnings {
		slogger().Debug("gpu: shader warning", "stage", stage, "line", w.Span.Start.Line, "msg", w.Message)
	}
	module := lowered.Module
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, &raytrace.CompileError{Stage: stage, Log: err.Error(), Err: err}
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Error()
		}
		return nil, &raytrace.CompileError{Stage: stage, Log: strings.Join(msgs, "\n"), Err: verrs[0]}
	}
	return module, nil
}

// diagnostic formats a naga error with source context when available.
// The naga error types are internal, so they are matched by method.
func diagnostic(err error) string {
	var list interface{ FormatAll() string }
	if errors.As(err, &list) {
		if s := list.FormatAll(); s != "" {
			return s
		}
	}
	var single interface{ FormatWithContext() string }
	if errors.As(err, &single) {
		return single.FormatWithContext()
	}
	return err.Error()
}

func entryPoint(m *ir.Module, stage raytrace.Stage, want ir.ShaderStage) (ir.EntryPoint, error) {
	for _, ep := range m.EntryPoints {
		if ep.Name == raytrace.EntryPoint && ep.Stage == want {
			return ep, nil
		}
	}
	return ir.EntryPoint{}, &raytrace.CompileError{
		Stage: stage,
		Log:   fmt.Sprintf("no %s entry point named %q", stage, raytrace.EntryPoint),
	}
}

// checkVaryings verifies that every fragment input location is written by
// the vertex stage.
func checkVaryings(vs, fs *ir.Module) error {
	vep, _ := entryPoint(vs, raytrace.StageVertex, ir.StageVertex)
	fep, _ := entryPoint(fs, raytrace.StageFragment, ir.StageFragment)

	var outputs []uint32
	if res := vep.Function.Result; res != nil {
		outputs = locations(vs, res.Binding, res.Type)
	}
	for _, arg := range fep.Function.Arguments {
		for _, loc := range locations(fs, arg.Binding, arg.Type) {
			if !slices.Contains(outputs, loc) {
				return &raytrace.CompileError{
					Stage: raytrace.StageLink,
					Label: "present",
					Log:   fmt.Sprintf("fragment input @location(%d) is not written by the vertex stage", loc),
				}
			}
		}
	}
	return nil
}

// locations collects the @location bindings of a value, looking through one
// struct level.
func locations(m *ir.Module, binding *ir.Binding, ty ir.TypeHandle) []uint32 {
	if binding != nil {
		if loc, ok := (*binding).(ir.LocationBinding); ok {
			return []uint32{loc.Location}
		}
		return nil
	}
	if int(ty) >= len(m.Types) {
		return nil
	}
	st, ok := m.Types[ty].Inner.(ir.StructType)
	if !ok {
		return nil
	}
	var out []uint32
	for _, mem := range st.Members {
		if mem.Binding == nil {
			continue
		}
		if loc, ok := (*mem.Binding).(ir.LocationBinding); ok {
			out = append(out, loc.Location)
		}
	}
	return out
}

// checkKernel matches a lowered kernel against raytrace.ComputeInterface
// and the configured workgroup size.
func (c *Compiler) checkKernel(m *ir.Module, ep ir.EntryPoint) error {
	iface := raytrace.ComputeInterface()
	fail := func(format string, args ...any) error {
		return &raytrace.CompileError{Stage: raytrace.StageInterface, Label: "raytrace", Log: fmt.Sprintf(format, args...)}
	}

	img, ok := globalAt(m, iface.Image)
	if !ok {
		return fail("no image declared at @group(%d) @binding(%d)", iface.Image.Group, iface.Image.Binding)
	}
	if it, ok := m.Types[img.Type].Inner.(ir.ImageType); !ok || it.Class != ir.ImageClassStorage {
		return fail("%q at @binding(%d) is not a storage texture", img.Name, iface.Image.Binding)
	}

	params, ok := globalAt(m, iface.Params)
	if !ok {
		return fail("no uniform declared at @group(%d) @binding(%d)", iface.Params.Group, iface.Params.Binding)
	}
	if params.Space != ir.SpaceUniform {
		return fail("%q at @binding(%d) is not a uniform", params.Name, iface.Params.Binding)
	}
	st, ok := m.Types[params.Type].Inner.(ir.StructType)
	if !ok || !slices.ContainsFunc(st.Members, func(sm ir.StructMember) bool { return sm.Name == iface.ParamsField }) {
		return fail("uniform %q has no %q member", params.Name, iface.ParamsField)
	}

	if g, ok := globalAt(m, iface.EnvTexture); ok {
		if it, ok := m.Types[g.Type].Inner.(ir.ImageType); !ok || it.Class != ir.ImageClassSampled {
			return fail("%q at @binding(%d) is not a sampled texture", g.Name, iface.EnvTexture.Binding)
		}
	}
	if g, ok := globalAt(m, iface.EnvSampler); ok {
		if _, ok := m.Types[g.Type].Inner.(ir.SamplerType); !ok {
			return fail("%q at @binding(%d) is not a sampler", g.Name, iface.EnvSampler.Binding)
		}
	}

	want := [3]uint32{c.workgroupSize, c.workgroupSize, 1}
	if ep.Workgroup != want {
		return fail("@workgroup_size%v does not match configured %v", ep.Workgroup, want)
	}
	return nil
}

func globalAt(m *ir.Module, slot raytrace.BindingSlot) (ir.GlobalVariable, bool) {
	for _, g := range m.GlobalVariables {
		if g.Binding != nil && g.Binding.Group == slot.Group && g.Binding.Binding == slot.Binding {
			return g, true
		}
	}
	return ir.GlobalVariable{}, false
}

func (c *Compiler) createModule(p *Program, label, source string) (hal.ShaderModule, error) {
	m, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s shader module: %w", label, err)
	}
	p.modules = append(p.modules, m)
	return m, nil
}

func (c *Compiler) linkRaster(p *Program, vertexSource, fragmentSource string) error {
	vs, err := c.createModule(p, "present_vs", vertexSource)
	if err != nil {
		return err
	}
	fs, err := c.createModule(p, "present_fs", fragmentSource)
	if err != nil {
		return err
	}

	// Bind group 0:
	//   Binding 0: framebuffer texture (texture_2d, fragment)
	//   Binding 1: sampler (fragment)
	p.bindLayout, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "present_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    raytrace.PresentTextureBinding,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    raytrace.PresentSamplerBinding,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create present bind group layout: %w", err)
	}

	p.pipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "present_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create present pipeline layout: %w", err)
	}

	p.render, err = c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "present_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: raytrace.EntryPoint,
			Buffers:    []gputypes.VertexBufferLayout{quadVertexLayout()},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     fs,
			EntryPoint: raytrace.EntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    c.targetFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create present pipeline: %w", err)
	}
	return nil
}

func (c *Compiler) linkCompute(p *Program, source string) error {
	cs, err := c.createModule(p, "raytrace_cs", source)
	if err != nil {
		return err
	}

	// Bind group 0:
	//   Binding 0: output image (texture_storage_2d<rgba8unorm, write>)
	//   Binding 1: kernel parameters (uniform)
	//   Binding 2: environment map (texture_2d)
	//   Binding 3: environment sampler
	p.bindLayout, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "raytrace_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    raytrace.ImageBinding,
				Visibility: gputypes.ShaderStageCompute,
				StorageTexture: &gputypes.StorageTextureBindingLayout{
					Access:        gputypes.StorageTextureAccessWriteOnly,
					Format:        FramebufferFormat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    raytrace.ParamsBinding,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    raytrace.EnvTextureBinding,
				Visibility: gputypes.ShaderStageCompute,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    raytrace.EnvSamplerBinding,
				Visibility: gputypes.ShaderStageCompute,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create raytrace bind group layout: %w", err)
	}

	p.pipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "raytrace_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create raytrace pipeline layout: %w", err)
	}

	p.compute, err = c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "raytrace_pipeline",
		Layout: p.pipeLayout,
		Compute: hal.ComputeState{
			Module:     cs,
			EntryPoint: raytrace.EntryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("create raytrace pipeline: %w", err)
	}
	return nil
}
