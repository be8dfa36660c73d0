package gputest

import "github.com/coler706/nova-renderer/gpu"

// SwapchainExtension is the extension name adapters must expose to be usable
const SwapchainExtension = "VK_KHR_swapchain"

// Qualifying returns an adapter that passes every selection and device check:
// one family doing graphics and present, one format, one present mode, the
// required features and a device-local plus a host-visible heap.
func Qualifying(name string, vendorID uint32) AdapterSetup {
	deviceType := gpu.DeviceTypeDiscreteGPU
	if vendorID == gpu.VendorIntel {
		deviceType = gpu.DeviceTypeIntegratedGPU
	}

	return AdapterSetup{
		Name:     name,
		VendorID: vendorID,
		Type:     deviceType,
		QueueFamilies: []gpu.QueueFamily{
			{Flags: gpu.QueueGraphics | gpu.QueueCompute | gpu.QueueTransfer, QueueCount: 16, SupportsPresent: true},
			{Flags: gpu.QueueTransfer, QueueCount: 2},
		},
		Extensions: []string{SwapchainExtension, "VK_KHR_maintenance1"},
		Capabilities: gpu.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  gpu.Extent2D{Width: 1280, Height: 720},
			MinImageExtent: gpu.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: gpu.Extent2D{Width: 16384, Height: 16384},
		},
		Formats:      []gpu.SurfaceFormat{{Format: 44, ColorSpace: 0}},
		PresentModes: []gpu.PresentMode{gpu.PresentModeFIFO, gpu.PresentModeMailbox},
		Memory: gpu.MemoryLayout{
			Types: []gpu.MemoryType{
				{PropertyFlags: gpu.MemoryPropertyDeviceLocal, HeapIndex: 0},
				{PropertyFlags: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent, HeapIndex: 1},
				{PropertyFlags: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent | gpu.MemoryPropertyHostCached, HeapIndex: 1},
			},
			Heaps: []gpu.MemoryHeap{
				{Size: 8 * 1024 * 1024 * 1024, DeviceLocal: true},
				{Size: 16 * 1024 * 1024 * 1024},
			},
		},
		Features: gpu.Features{
			GeometryShader:     true,
			TessellationShader: true,
			SamplerAnisotropy:  true,
			MultiDrawIndirect:  true,
		},
		Limits: gpu.Limits{
			MaxImageDimension2D:      16384,
			MaxImageArrayLayers:      2048,
			MaxMemoryAllocationCount: 4096,
			BufferImageGranularity:   1024,
			NonCoherentAtomSize:      64,
		},
	}
}

// SplitPresent is Qualifying with graphics and present served by different families
func SplitPresent(name string, vendorID uint32) AdapterSetup {
	setup := Qualifying(name, vendorID)
	setup.QueueFamilies = []gpu.QueueFamily{
		{Flags: gpu.QueueGraphics | gpu.QueueCompute, QueueCount: 1},
		{Flags: gpu.QueueTransfer, QueueCount: 0, SupportsPresent: true},
		{Flags: gpu.QueueTransfer, QueueCount: 2, SupportsPresent: true},
	}
	return setup
}
