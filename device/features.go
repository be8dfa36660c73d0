package device

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/gpu"
)

// SwapchainExtension is the one device extension every context enables
const SwapchainExtension = "VK_KHR_swapchain"

// RequiredFeatures is the hardware floor. It is not negotiated: an adapter
// missing any of these cannot host a context.
func RequiredFeatures() gpu.Features {
	return gpu.Features{
		GeometryShader:     true,
		TessellationShader: true,
		SamplerAnisotropy:  true,
	}
}

func RequiredExtensions() []string {
	return []string{SwapchainExtension}
}

func checkCapabilities(descriptor *adapter.Descriptor) error {
	var missing []string
	for _, feature := range descriptor.Features.Missing(RequiredFeatures()) {
		missing = append(missing, fmt.Sprintf("feature %s", feature))
	}
	for _, extension := range RequiredExtensions() {
		if !descriptor.HasExtension(extension) {
			missing = append(missing, fmt.Sprintf("extension %s", extension))
		}
	}

	if len(missing) == 0 {
		return nil
	}

	err := gpu.CapabilityMissing(nil, fmt.Sprintf("adapter %q lacks %d required capabilities", descriptor.Name(), len(missing)))
	for _, item := range missing {
		err = errors.WithDetail(err, item)
	}
	return err
}
