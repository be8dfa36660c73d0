package device

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/internal/gputest"
	"github.com/coler706/nova-renderer/logging"
	"github.com/coler706/nova-renderer/memory"
	"github.com/stretchr/testify/require"
)

func readySelection(t *testing.T, setup gputest.Setup) (*gputest.Platform, adapter.Selection) {
	platform := gputest.NewPlatform(setup)
	instance, err := platform.CreateInstance(gpu.InstanceInfo{})
	require.NoError(t, err)
	surface, err := platform.CreateSurface(instance)
	require.NoError(t, err)

	inventory, err := adapter.Enumerate(logging.Discard(), instance, surface)
	require.NoError(t, err)
	selection, err := adapter.Select(logging.Discard(), inventory)
	require.NoError(t, err)

	return platform, selection
}

func TestUniqueQueueRequests(t *testing.T) {
	testCases := map[string]struct {
		Graphics int
		Present  int
		Expected []QueueRequest
	}{
		"SharedFamily": {
			Graphics: 0,
			Present:  0,
			Expected: []QueueRequest{{Family: 0, Priority: 1.0}},
		},
		"SplitFamilies": {
			Graphics: 0,
			Present:  2,
			Expected: []QueueRequest{{Family: 0, Priority: 1.0}, {Family: 2, Priority: 1.0}},
		},
		"PresentBeforeGraphics": {
			Graphics: 3,
			Present:  1,
			Expected: []QueueRequest{{Family: 3, Priority: 1.0}, {Family: 1, Priority: 1.0}},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			requests := UniqueQueueRequests(adapter.Selection{
				GraphicsFamily: testCase.Graphics,
				PresentFamily:  testCase.Present,
			})
			require.Equal(t, testCase.Expected, requests)
		})
	}
}

func TestBuildSharedFamily(t *testing.T) {
	platform, selection := readySelection(t, gputest.Setup{
		Adapters: []gputest.AdapterSetup{gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA)},
	})

	context, err := NewBuilder(logging.Discard(), BuilderOptions{}).Build(selection)
	require.NoError(t, err)

	info := platform.Device().Info
	require.Len(t, info.Queues, 1)
	require.Equal(t, []float32{1.0}, info.Queues[0].Priorities)
	require.Equal(t, []string{SwapchainExtension}, info.Extensions)
	require.True(t, info.Features.GeometryShader)
	require.True(t, info.Features.TessellationShader)
	require.True(t, info.Features.SamplerAnisotropy)

	require.True(t, context.QueuesShared())
	require.Same(t, context.Graphics.Queue, context.Present.Queue)
	require.Equal(t, QueueRoleGraphics, context.Graphics.Role)
	require.Equal(t, QueueRolePresent, context.Present.Role)
	require.NotNil(t, context.Allocator)
	require.Equal(t, "GeForce RTX 3080", context.Adapter.Name())
}

func TestBuildSplitFamilies(t *testing.T) {
	platform, selection := readySelection(t, gputest.Setup{
		Adapters: []gputest.AdapterSetup{gputest.SplitPresent("Radeon RX 6800", gpu.VendorAMD)},
	})
	require.Equal(t, 0, selection.GraphicsFamily)
	require.Equal(t, 2, selection.PresentFamily)

	context, err := NewBuilder(logging.Discard(), BuilderOptions{}).Build(selection)
	require.NoError(t, err)

	require.Len(t, platform.Device().Info.Queues, 2)
	require.False(t, context.QueuesShared())
	require.Equal(t, 0, context.Graphics.Queue.Family())
	require.Equal(t, 2, context.Present.Queue.Family())
	require.Equal(t, 2, context.Present.Family)
}

func TestBuildMissingCapabilities(t *testing.T) {
	setup := gputest.Qualifying("Mali-G78", gpu.VendorARM)
	setup.Features = gpu.Features{SamplerAnisotropy: true}
	setup.Extensions = []string{"VK_KHR_maintenance1"}

	platform, selection := readySelection(t, gputest.Setup{Adapters: []gputest.AdapterSetup{setup}})

	_, err := NewBuilder(logging.Discard(), BuilderOptions{}).Build(selection)
	require.True(t, errors.Is(err, gpu.ErrCapabilityMissing))
	require.Equal(t, []string{
		"feature geometryShader",
		"feature tessellationShader",
		"extension VK_KHR_swapchain",
	}, errors.GetAllDetails(err))
	require.Equal(t, 0, platform.Count("device.create"))
}

func TestBuildDeviceCreationFailure(t *testing.T) {
	_, selection := readySelection(t, gputest.Setup{
		Adapters: []gputest.AdapterSetup{gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA)},
		Failures: gputest.Failures{CreateDevice: errors.New("VK_ERROR_INITIALIZATION_FAILED")},
	})

	_, err := NewBuilder(logging.Discard(), BuilderOptions{}).Build(selection)
	require.True(t, errors.Is(err, gpu.ErrPlatformAPIFailure))
	require.Contains(t, err.Error(), "VK_ERROR_INITIALIZATION_FAILED")
}

func TestBuildAllocatorFailureDestroysDevice(t *testing.T) {
	badAtomSize := gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA)
	badAtomSize.Limits.NonCoherentAtomSize = 48

	testCases := map[string]struct {
		Adapter gputest.AdapterSetup
		Options memory.CreateOptions
		Kind    error
	}{
		"NegativeHeapLimit": {
			Adapter: gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA),
			Options: memory.CreateOptions{HeapSizeLimits: []int{-1, 0}},
			Kind:    gpu.ErrInvalidConfiguration,
		},
		"HeapLimitCountMismatch": {
			Adapter: gputest.Qualifying("GeForce RTX 3080", gpu.VendorNVIDIA),
			Options: memory.CreateOptions{HeapSizeLimits: []int{1024}},
			Kind:    gpu.ErrInvalidConfiguration,
		},
		"AdapterLimitsUnusable": {
			Adapter: badAtomSize,
			Kind:    gpu.ErrPlatformAPIFailure,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			platform, selection := readySelection(t, gputest.Setup{
				Adapters: []gputest.AdapterSetup{testCase.Adapter},
			})

			_, err := NewBuilder(logging.Discard(), BuilderOptions{Allocator: testCase.Options}).Build(selection)
			require.True(t, errors.Is(err, testCase.Kind), gpu.Kind(err))
			require.True(t, gpu.IsFatal(err))
			require.Equal(t, 1, platform.Count("device.create"))
			require.Equal(t, 0, platform.Live("device"))
		})
	}
}

func TestBuildRequiresAdapter(t *testing.T) {
	_, err := NewBuilder(logging.Discard(), BuilderOptions{}).Build(adapter.Selection{})
	require.True(t, errors.Is(err, gpu.ErrHardwareUnavailable))
}
