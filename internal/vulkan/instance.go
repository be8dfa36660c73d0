package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/core1_0"
	khr_surface_driver "github.com/vkngwrapper/extensions/v2/khr_surface/driver"
	"golang.org/x/exp/slog"
)

type Instance struct {
	logger     *slog.Logger
	instance   core1_0.Instance
	extensions *InstanceExtensionData
}

var _ gpu.Instance = &Instance{}

func newInstance(logger *slog.Logger, instance core1_0.Instance) *Instance {
	return &Instance{
		logger:     logger,
		instance:   instance,
		extensions: NewInstanceExtensionData(instance),
	}
}

// Handle is the raw VkInstance, for window systems that create surfaces
func (i *Instance) Handle() unsafe.Pointer {
	return unsafe.Pointer(i.instance.Handle())
}

func (i *Instance) EnumerateAdapters() ([]gpu.PhysicalDevice, error) {
	physicalDevices, _, err := i.instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "vkEnumeratePhysicalDevices")
	}

	adapters := make([]gpu.PhysicalDevice, 0, len(physicalDevices))
	for _, physicalDevice := range physicalDevices {
		adapters = append(adapters, &PhysicalDevice{logger: i.logger, physicalDevice: physicalDevice})
	}
	return adapters, nil
}

func (i *Instance) Diagnostics() (gpu.DiagnosticsChannel, bool) {
	if i.extensions.DebugUtils == nil {
		return nil, false
	}
	return &DiagnosticsChannel{instance: i.instance, extension: i.extensions.DebugUtils}, true
}

// SurfaceFromHandle adopts a VkSurfaceKHR created by the window system
func (i *Instance) SurfaceFromHandle(handle unsafe.Pointer) (gpu.Surface, error) {
	if i.extensions.Surface == nil {
		return nil, errors.New("VK_KHR_surface was not enabled on the instance")
	}

	surface, err := i.extensions.Surface.CreateSurfaceFromHandle(khr_surface_driver.VkSurfaceKHR(handle))
	if err != nil {
		return nil, errors.Wrap(err, "could not wrap surface handle")
	}
	return &Surface{surface: surface}, nil
}

func (i *Instance) Destroy() {
	i.instance.Destroy(nil)
}
