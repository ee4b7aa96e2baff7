//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Device errors.
var (
	// ErrNoBackend is returned when the Vulkan backend is not registered.
	ErrNoBackend = errors.New("gpu: vulkan backend not available")

	// ErrNoAdapter is returned when the instance reports no adapters.
	ErrNoAdapter = errors.New("gpu: no GPU adapters found")

	// ErrNoHALProvider is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrNoHALProvider = errors.New("gpu: provider does not expose HAL types")

	// ErrNoSurfaceView is returned when a window frame has no view to
	// render into.
	ErrNoSurfaceView = errors.New("gpu: no surface view for this frame")
)

// Device is an opened hal device with its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	// Name is the adapter name, empty for shared devices.
	Name string

	instance hal.Instance
	shared   bool
}

// OpenVulkan opens the first discrete or integrated GPU through the Vulkan
// backend, falling back to the first adapter reported.
func OpenVulkan() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	d, err := openFirst(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	slogger().Info("gpu: device opened", "adapter", d.Name)
	return d, nil
}

// OpenNoop opens a device on the noop backend. Every object can be created
// and every command recorded, but nothing executes. Used by tests.
func OpenNoop() (*Device, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	d, err := openFirst(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return d, nil
}

func openFirst(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Name:     selected.Info.Name,
		instance: instance,
	}, nil
}

// FromProvider wraps a device owned by someone else, such as a gogpu
// window. Two shapes are accepted:
//
//   - a gpucontext.DeviceProvider whose Device() is a *wgpu.Device, as
//     returned by gogpu's App.GPUContextProvider
//   - any value with HalDevice() any and HalQueue() any returning
//     hal.Device and hal.Queue
//
// Close on the result is a no-op.
func FromProvider(provider any) (*Device, error) {
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		if wd, ok := dp.Device().(*wgpu.Device); ok && wd != nil {
			device, queue := wd.HalDevice(), wd.HalQueue()
			if device == nil || queue == nil {
				return nil, fmt.Errorf("%w: wgpu device has no HAL backend", ErrNoHALProvider)
			}
			return &Device{Device: device, Queue: queue, Name: dp.AdapterInfo().Name, shared: true}, nil
		}
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return &Device{Device: device, Queue: queue, shared: true}, nil
}

// SurfaceTarget returns the HAL view behind a window's current surface
// view. A nil or released view gives ErrNoSurfaceView; gogpu returns nil
// while the surface cannot be acquired, for example when minimized.
func SurfaceTarget(view *wgpu.TextureView) (hal.TextureView, error) {
	if view == nil {
		return nil, ErrNoSurfaceView
	}
	target := view.HalTextureView()
	if target == nil {
		return nil, fmt.Errorf("%w: view has no HAL texture view", ErrNoSurfaceView)
	}
	return target, nil
}

// Close destroys the device and instance unless they are shared.
func (d *Device) Close() {
	if d == nil || d.shared {
		return
	}
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.Queue = nil
}
