package adapter

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/gpu/mocks"
	"github.com/coler706/nova-renderer/internal/gputest"
	"github.com/coler706/nova-renderer/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEnumerateZeroAdapters(t *testing.T) {
	platform := gputest.NewPlatform(gputest.Setup{})
	instance, err := platform.CreateInstance(gpu.InstanceInfo{})
	require.NoError(t, err)
	surface, err := platform.CreateSurface(instance)
	require.NoError(t, err)

	_, err = Enumerate(logging.Discard(), instance, surface)
	require.Error(t, err)
	require.True(t, errors.Is(err, gpu.ErrHardwareUnavailable))
}

func TestEnumerateQueryFailure(t *testing.T) {
	platform := gputest.NewPlatform(gputest.Setup{
		Adapters: []gputest.AdapterSetup{gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA)},
		Failures: gputest.Failures{QueueFamilies: errors.New("VK_ERROR_DEVICE_LOST")},
	})
	instance, err := platform.CreateInstance(gpu.InstanceInfo{})
	require.NoError(t, err)
	surface, err := platform.CreateSurface(instance)
	require.NoError(t, err)

	_, err = Enumerate(logging.Discard(), instance, surface)
	require.Error(t, err)
	require.True(t, errors.Is(err, gpu.ErrPlatformAPIFailure))
	require.Contains(t, err.Error(), "VK_ERROR_DEVICE_LOST")
	require.Contains(t, errors.FlattenDetails(err), "adapter index 0")
}

func TestEnumerateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	instance := mocks.NewMockInstance(ctrl)
	surface := mocks.NewMockSurface(ctrl)

	instance.EXPECT().EnumerateAdapters().Return(nil, errors.New("VK_ERROR_INITIALIZATION_FAILED"))

	_, err := Enumerate(logging.Discard(), instance, surface)
	require.True(t, errors.Is(err, gpu.ErrPlatformAPIFailure))
}

func TestDescribeQueryOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockPhysicalDevice(ctrl)
	surface := mocks.NewMockSurface(ctrl)

	gomock.InOrder(
		device.EXPECT().QueueFamilies().Return([]gpu.QueueFamily{
			{Flags: gpu.QueueGraphics, QueueCount: 1},
			{Flags: gpu.QueueTransfer, QueueCount: 1},
		}, nil),
		device.EXPECT().Extensions().Return([]string{"VK_KHR_swapchain", "VK_EXT_a", "VK_KHR_swapchain"}, nil),
		surface.EXPECT().Capabilities(device).Return(gpu.SurfaceCapabilities{MinImageCount: 2}, nil),
		surface.EXPECT().Formats(device).Return([]gpu.SurfaceFormat{{Format: 44}}, nil),
		surface.EXPECT().PresentModes(device).Return([]gpu.PresentMode{gpu.PresentModeFIFO}, nil),
		device.EXPECT().MemoryLayout().Return(gpu.MemoryLayout{Heaps: []gpu.MemoryHeap{{Size: 1024, DeviceLocal: true}, {Size: 2048}}}, nil),
		device.EXPECT().Properties().Return(gpu.Properties{Name: "Mock GPU", VendorID: gpu.VendorAMD}, nil),
		device.EXPECT().Features().Return(gpu.Features{GeometryShader: true}, nil),
		surface.EXPECT().SupportsPresent(device, 0).Return(false, nil),
		surface.EXPECT().SupportsPresent(device, 1).Return(true, nil),
	)

	descriptor, err := Describe(3, device, surface)
	require.NoError(t, err)
	require.Equal(t, 3, descriptor.Index)
	require.Equal(t, "Mock GPU", descriptor.Name())
	require.Equal(t, []string{"VK_EXT_a", "VK_KHR_swapchain"}, descriptor.Extensions)
	require.True(t, descriptor.HasExtension("VK_KHR_swapchain"))
	require.False(t, descriptor.HasExtension("VK_KHR_ray_query"))
	require.Equal(t, 1024, descriptor.DeviceLocalBytes())
	require.Equal(t, 0, descriptor.GraphicsFamily())
	require.Equal(t, 1, descriptor.PresentFamily())
	require.False(t, descriptor.IsIntegratedClass())
}

func TestInventoryReport(t *testing.T) {
	inventory := readyInventory(t,
		gputest.Qualifying("Intel UHD 630", gpu.VendorIntel),
		gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA),
	)

	report, err := inventory.BuildReport()
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(report, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "Intel UHD 630", decoded[0]["Name"])
	require.Equal(t, "Intel", decoded[0]["Vendor"])
	require.Equal(t, true, decoded[0]["IntegratedClass"])
	require.Equal(t, "NVIDIA", decoded[1]["Vendor"])
	require.Equal(t, []any{"geometryShader", "tessellationShader", "samplerAnisotropy", "multiDrawIndirect"}, decoded[1]["Features"])
}
