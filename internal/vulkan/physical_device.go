package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slog"
)

type PhysicalDevice struct {
	logger         *slog.Logger
	physicalDevice core1_0.PhysicalDevice
}

var _ gpu.PhysicalDevice = &PhysicalDevice{}

// The gpu flag and enum values below are the Vulkan bit values, so conversion is
// a cast.

func (p *PhysicalDevice) QueueFamilies() ([]gpu.QueueFamily, error) {
	properties := p.physicalDevice.QueueFamilyProperties()

	families := make([]gpu.QueueFamily, 0, len(properties))
	for _, family := range properties {
		families = append(families, gpu.QueueFamily{
			Flags:      gpu.QueueFlags(family.QueueFlags),
			QueueCount: family.QueueCount,
		})
	}
	return families, nil
}

func (p *PhysicalDevice) Extensions() ([]string, error) {
	extensions, _, err := p.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return nil, errors.Wrap(err, "vkEnumerateDeviceExtensionProperties")
	}
	return maps.Keys(extensions), nil
}

func (p *PhysicalDevice) MemoryLayout() (gpu.MemoryLayout, error) {
	properties := p.physicalDevice.MemoryProperties()
	if properties == nil {
		return gpu.MemoryLayout{}, errors.New("vkGetPhysicalDeviceMemoryProperties returned nothing")
	}

	layout := gpu.MemoryLayout{
		Types: make([]gpu.MemoryType, 0, len(properties.MemoryTypes)),
		Heaps: make([]gpu.MemoryHeap, 0, len(properties.MemoryHeaps)),
	}
	for _, memoryType := range properties.MemoryTypes {
		layout.Types = append(layout.Types, gpu.MemoryType{
			PropertyFlags: gpu.MemoryPropertyFlags(memoryType.PropertyFlags),
			HeapIndex:     memoryType.HeapIndex,
		})
	}
	for _, heap := range properties.MemoryHeaps {
		layout.Heaps = append(layout.Heaps, gpu.MemoryHeap{
			Size:        heap.Size,
			DeviceLocal: heap.Flags&core1_0.MemoryHeapDeviceLocal != 0,
		})
	}
	return layout, nil
}

func (p *PhysicalDevice) Properties() (gpu.Properties, error) {
	properties, err := p.physicalDevice.Properties()
	if err != nil {
		return gpu.Properties{}, errors.Wrap(err, "vkGetPhysicalDeviceProperties")
	}

	result := gpu.Properties{
		VendorID:      properties.VendorID,
		DeviceID:      properties.DeviceID,
		DriverVersion: uint32(properties.DriverVersion),
		APIVersion:    fromVersion(common.Version(properties.APIVersion)),
		Type:          gpu.DeviceType(properties.DriverType),
		Name:          properties.DriverName,
	}
	if properties.Limits != nil {
		result.Limits = gpu.Limits{
			MaxImageDimension2D:      properties.Limits.MaxImageDimension2D,
			MaxImageArrayLayers:      properties.Limits.MaxImageArrayLayers,
			MaxMemoryAllocationCount: properties.Limits.MaxMemoryAllocationCount,
			BufferImageGranularity:   properties.Limits.BufferImageGranularity,
			NonCoherentAtomSize:      properties.Limits.NonCoherentAtomSize,
		}
	}
	return result, nil
}

func (p *PhysicalDevice) Features() (gpu.Features, error) {
	features := p.physicalDevice.Features()
	if features == nil {
		return gpu.Features{}, errors.New("vkGetPhysicalDeviceFeatures returned nothing")
	}

	return gpu.Features{
		GeometryShader:     features.GeometryShader,
		TessellationShader: features.TessellationShader,
		SamplerAnisotropy:  features.SamplerAnisotropy,
		MultiDrawIndirect:  features.MultiDrawIndirect,
		FillModeNonSolid:   features.FillModeNonSolid,
		WideLines:          features.WideLines,
	}, nil
}

func (p *PhysicalDevice) CreateDevice(info gpu.DeviceInfo) (gpu.Device, error) {
	p.logger.Debug("PhysicalDevice::CreateDevice")

	queues := make([]core1_0.DeviceQueueCreateInfo, 0, len(info.Queues))
	for _, queue := range info.Queues {
		queues = append(queues, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queue.Family,
			QueuePriorities:  queue.Priorities,
		})
	}

	device, _, err := p.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queues,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			GeometryShader:     info.Features.GeometryShader,
			TessellationShader: info.Features.TessellationShader,
			SamplerAnisotropy:  info.Features.SamplerAnisotropy,
			MultiDrawIndirect:  info.Features.MultiDrawIndirect,
			FillModeNonSolid:   info.Features.FillModeNonSolid,
			WideLines:          info.Features.WideLines,
		},
		EnabledExtensionNames: info.Extensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDevice")
	}

	return &Device{device: device}, nil
}
