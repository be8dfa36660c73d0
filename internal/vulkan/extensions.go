package vulkan

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

// InstanceExtensionData holds the instance extensions that were enabled at creation
type InstanceExtensionData struct {
	Surface    *khr_surface.VulkanExtension
	DebugUtils *ext_debug_utils.VulkanExtension
}

func NewInstanceExtensionData(instance core1_0.Instance) *InstanceExtensionData {
	data := &InstanceExtensionData{}

	if instance.IsInstanceExtensionActive(khr_surface.ExtensionName) {
		data.Surface = khr_surface.CreateExtensionFromInstance(instance)
	}

	// Only present in builds that requested diagnostics
	if instance.IsInstanceExtensionActive(ext_debug_utils.ExtensionName) {
		data.DebugUtils = ext_debug_utils.CreateExtensionFromInstance(instance)
	}

	return data
}
