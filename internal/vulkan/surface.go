package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

type Surface struct {
	surface khr_surface.Surface
}

var _ gpu.Surface = &Surface{}

func physicalDevice(adapter gpu.PhysicalDevice) (core1_0.PhysicalDevice, error) {
	native, ok := adapter.(*PhysicalDevice)
	if !ok {
		return nil, errors.Newf("adapter %T does not belong to the vulkan platform", adapter)
	}
	return native.physicalDevice, nil
}

func fromExtent(extent core1_0.Extent2D) gpu.Extent2D {
	return gpu.Extent2D{Width: extent.Width, Height: extent.Height}
}

func (s *Surface) Capabilities(adapter gpu.PhysicalDevice) (gpu.SurfaceCapabilities, error) {
	device, err := physicalDevice(adapter)
	if err != nil {
		return gpu.SurfaceCapabilities{}, err
	}

	capabilities, _, err := s.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return gpu.SurfaceCapabilities{}, errors.Wrap(err, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}

	return gpu.SurfaceCapabilities{
		MinImageCount:  capabilities.MinImageCount,
		MaxImageCount:  capabilities.MaxImageCount,
		CurrentExtent:  fromExtent(capabilities.CurrentExtent),
		MinImageExtent: fromExtent(capabilities.MinImageExtent),
		MaxImageExtent: fromExtent(capabilities.MaxImageExtent),
	}, nil
}

func (s *Surface) Formats(adapter gpu.PhysicalDevice) ([]gpu.SurfaceFormat, error) {
	device, err := physicalDevice(adapter)
	if err != nil {
		return nil, err
	}

	formats, _, err := s.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return nil, errors.Wrap(err, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}

	result := make([]gpu.SurfaceFormat, 0, len(formats))
	for _, format := range formats {
		result = append(result, gpu.SurfaceFormat{
			Format:     int32(format.Format),
			ColorSpace: int32(format.ColorSpace),
		})
	}
	return result, nil
}

func (s *Surface) PresentModes(adapter gpu.PhysicalDevice) ([]gpu.PresentMode, error) {
	device, err := physicalDevice(adapter)
	if err != nil {
		return nil, err
	}

	modes, _, err := s.surface.PhysicalDeviceSurfacePresentModes(device)
	if err != nil {
		return nil, errors.Wrap(err, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}

	// gpu.PresentMode values are the VkPresentModeKHR values
	result := make([]gpu.PresentMode, 0, len(modes))
	for _, mode := range modes {
		result = append(result, gpu.PresentMode(mode))
	}
	return result, nil
}

func (s *Surface) SupportsPresent(adapter gpu.PhysicalDevice, queueFamily int) (bool, error) {
	device, err := physicalDevice(adapter)
	if err != nil {
		return false, err
	}

	supported, _, err := s.surface.PhysicalDeviceSurfaceSupport(device, queueFamily)
	if err != nil {
		return false, errors.Wrapf(err, "vkGetPhysicalDeviceSurfaceSupportKHR family %d", queueFamily)
	}
	return supported, nil
}

func (s *Surface) Destroy() {
	s.surface.Destroy(nil)
}
