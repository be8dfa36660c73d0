package memory

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/gpu/mocks"
	"github.com/coler706/nova-renderer/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type AllocatorSetup struct {
	DeviceType   gpu.DeviceType
	MemoryTypes  []gpu.MemoryType
	MemoryHeaps  []gpu.MemoryHeap
	Limits       gpu.Limits
	HeapLimits   []int
	CreateFlags  CreateFlags
	PreferredBig int
}

var defaultMemoryTypes = []gpu.MemoryType{
	{PropertyFlags: 0, HeapIndex: 1},
	{PropertyFlags: gpu.MemoryPropertyDeviceLocal, HeapIndex: 0},
	{PropertyFlags: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent, HeapIndex: 1},
	{PropertyFlags: gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent | gpu.MemoryPropertyHostCached, HeapIndex: 1},
	{PropertyFlags: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent, HeapIndex: 2},
	{PropertyFlags: gpu.MemoryPropertyDeviceLocal | gpu.MemoryPropertyLazilyAllocated, HeapIndex: 0},
}

var defaultMemoryHeaps = []gpu.MemoryHeap{
	{Size: 8 * 1024 * 1024 * 1024, DeviceLocal: true},
	{Size: 16 * 1024 * 1024 * 1024},
	{Size: 256 * 1024 * 1024, DeviceLocal: true},
}

func readyAllocator(t *testing.T, ctrl *gomock.Controller, setup AllocatorSetup) (*Allocator, *mocks.MockDevice) {
	if setup.MemoryTypes == nil {
		setup.MemoryTypes = defaultMemoryTypes
	}
	if setup.MemoryHeaps == nil {
		setup.MemoryHeaps = defaultMemoryHeaps
	}
	if setup.Limits.NonCoherentAtomSize == 0 {
		setup.Limits.NonCoherentAtomSize = 64
	}
	if setup.Limits.BufferImageGranularity == 0 {
		setup.Limits.BufferImageGranularity = 1024
	}

	device := mocks.NewMockDevice(ctrl)
	allocator, err := New(logging.Discard(), device, gpu.MemoryLayout{
		Types: setup.MemoryTypes,
		Heaps: setup.MemoryHeaps,
	}, gpu.Properties{
		Type:   setup.DeviceType,
		Limits: setup.Limits,
	}, CreateOptions{
		Flags:                       setup.CreateFlags,
		HeapSizeLimits:              setup.HeapLimits,
		PreferredLargeHeapBlockSize: setup.PreferredBig,
	})
	require.NoError(t, err)

	return allocator, device
}

func expectAllocation(ctrl *gomock.Controller, device *mocks.MockDevice, size, typeIndex int) *mocks.MockDeviceMemory {
	memory := mocks.NewMockDeviceMemory(ctrl)
	device.EXPECT().AllocateMemory(size, typeIndex).Return(memory, nil)
	return memory
}

func TestNewValidatesLayout(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	_, err := New(logging.Discard(), device, gpu.MemoryLayout{}, gpu.Properties{}, CreateOptions{})
	require.Error(t, err)

	_, err = New(logging.Discard(), device, gpu.MemoryLayout{
		Types: []gpu.MemoryType{{HeapIndex: 3}},
		Heaps: []gpu.MemoryHeap{{Size: 1024}},
	}, gpu.Properties{}, CreateOptions{})
	require.Error(t, err)

	_, err = New(logging.Discard(), device, gpu.MemoryLayout{
		Types: defaultMemoryTypes,
		Heaps: defaultMemoryHeaps,
	}, gpu.Properties{Limits: gpu.Limits{NonCoherentAtomSize: 48}}, CreateOptions{})
	require.Error(t, err)
	require.False(t, gpu.IsFatal(err))

	_, err = New(logging.Discard(), device, gpu.MemoryLayout{
		Types: defaultMemoryTypes,
		Heaps: defaultMemoryHeaps,
	}, gpu.Properties{}, CreateOptions{HeapSizeLimits: []int{0}})
	require.True(t, errors.Is(err, gpu.ErrInvalidConfiguration))

	_, err = New(logging.Discard(), device, gpu.MemoryLayout{
		Types: defaultMemoryTypes,
		Heaps: defaultMemoryHeaps,
	}, gpu.Properties{}, CreateOptions{HeapSizeLimits: []int{0, -1, 0}})
	require.True(t, errors.Is(err, gpu.ErrInvalidConfiguration))
}

func TestPreferredBlockSize(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, _ := readyAllocator(t, ctrl, AllocatorSetup{})

	require.Equal(t, defaultLargeHeapBlockSize, allocator.PreferredBlockSize(1))
	require.Equal(t, 32*1024*1024, allocator.PreferredBlockSize(4))

	allocator, _ = readyAllocator(t, ctrl, AllocatorSetup{PreferredBig: 64 * 1024 * 1024})
	require.Equal(t, 64*1024*1024, allocator.PreferredBlockSize(2))
}

func TestAllocateAndFree(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	memory := expectAllocation(ctrl, device, 4096, 1)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{
		Size:           4000,
		Alignment:      256,
		MemoryTypeBits: 0xFFFFFFFF,
	}, AllocationCreateInfo{Usage: MemoryUsageGPUOnly, Name: "vertex buffer"})
	require.NoError(t, err)
	require.Equal(t, 4096, alloc.Size())
	require.Equal(t, 1, alloc.MemoryTypeIndex())
	require.Equal(t, 0, alloc.HeapIndex())
	require.Equal(t, 1, allocator.LiveAllocations())

	budgets := allocator.HeapBudgets()
	require.Equal(t, 4096, budgets[0].Usage)
	require.Equal(t, 1, budgets[0].Statistics.AllocationCount)

	memory.EXPECT().Free()
	require.NoError(t, alloc.Free())
	require.Equal(t, 0, allocator.LiveAllocations())
	require.Equal(t, 0, allocator.HeapBudgets()[0].Usage)

	require.Error(t, alloc.Free())
}

func TestAllocateNonCoherentAlignment(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{
		MemoryTypes: []gpu.MemoryType{{PropertyFlags: gpu.MemoryPropertyHostVisible, HeapIndex: 0}},
		MemoryHeaps: []gpu.MemoryHeap{{Size: 1024 * 1024}},
		Limits:      gpu.Limits{NonCoherentAtomSize: 256},
	})

	expectAllocation(ctrl, device, 256, 0)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 100, MemoryTypeBits: 1}, AllocationCreateInfo{})
	require.NoError(t, err)
	require.Equal(t, 256, alloc.Size())
}

func TestAllocateRejectsBadRequirements(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, _ := readyAllocator(t, ctrl, AllocatorSetup{})

	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 0, MemoryTypeBits: 0xFF}, AllocationCreateInfo{})
	require.Error(t, err)

	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, Alignment: 24, MemoryTypeBits: 0xFF}, AllocationCreateInfo{})
	require.Error(t, err)

	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 0}, AllocationCreateInfo{})
	require.True(t, errors.Is(err, ErrNoMemoryType))
}

func TestAllocateHeapLimitFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{
		HeapLimits: []int{8192, 0, 0},
	})

	expectAllocation(ctrl, device, 8192, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 8192, MemoryTypeBits: 0xFF}, AllocationCreateInfo{Usage: MemoryUsageGPUOnly})
	require.NoError(t, err)

	// Heap 0 is full, next best device-local type lives in heap 2
	expectAllocation(ctrl, device, 1024, 4)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 1024, MemoryTypeBits: 0xFF}, AllocationCreateInfo{Usage: MemoryUsageGPUOnly})
	require.NoError(t, err)
	require.Equal(t, 4, alloc.MemoryTypeIndex())
}

func TestAllocateHeapLimitExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{
		HeapLimits: []int{4096, 0, 0},
	})

	expectAllocation(ctrl, device, 4096, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 4096, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)

	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 4096, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.True(t, errors.Is(err, ErrOutOfDeviceMemory))
	require.Equal(t, 4096, allocator.HeapBudgets()[0].Usage)
}

func TestAllocateTooManyObjects(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{
		Limits: gpu.Limits{MaxMemoryAllocationCount: 1},
	})

	expectAllocation(ctrl, device, 64, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)

	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.True(t, errors.Is(err, ErrTooManyObjects))
}

func TestAllocatePlatformFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	device.EXPECT().AllocateMemory(64, 1).Return(nil, errors.New("VK_ERROR_OUT_OF_DEVICE_MEMORY"))
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.True(t, errors.Is(err, gpu.ErrPlatformAPIFailure))
	require.Equal(t, 0, allocator.HeapBudgets()[0].Usage)
	require.Equal(t, 0, allocator.HeapBudgets()[0].Statistics.BlockCount)
}

func TestMapReferenceCounting(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	memory := expectAllocation(ctrl, device, 128, 2)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 128, MemoryTypeBits: 0xFF}, AllocationCreateInfo{Usage: MemoryUsageCPUOnly})
	require.NoError(t, err)
	require.Equal(t, 2, alloc.MemoryTypeIndex())

	backing := make([]byte, 128)
	memory.EXPECT().Map(0, 128).Return(unsafe.Pointer(&backing[0]), nil)

	first, err := alloc.Map()
	require.NoError(t, err)
	second, err := alloc.Map()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, first, alloc.MappedData())

	require.NoError(t, alloc.Unmap())
	memory.EXPECT().Unmap()
	require.NoError(t, alloc.Unmap())
	require.Nil(t, alloc.MappedData())
	require.Error(t, alloc.Unmap())
}

func TestMapRequiresHostVisible(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	expectAllocation(ctrl, device, 128, 1)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 128, MemoryTypeBits: 0xFF}, AllocationCreateInfo{Usage: MemoryUsageGPUOnly})
	require.NoError(t, err)

	_, err = alloc.Map()
	require.Error(t, err)
}

func TestPersistentMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	memory := expectAllocation(ctrl, device, 128, 2)
	backing := make([]byte, 128)
	memory.EXPECT().Map(0, 128).Return(unsafe.Pointer(&backing[0]), nil)

	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 128, MemoryTypeBits: 0xFF}, AllocationCreateInfo{
		Usage: MemoryUsageCPUOnly,
		Flags: AllocationCreateMapped,
	})
	require.NoError(t, err)
	require.NotNil(t, alloc.MappedData())
	require.Error(t, alloc.Unmap())

	memory.EXPECT().Unmap()
	memory.EXPECT().Free()
	require.NoError(t, alloc.Free())
}

func TestDestroyReleasesLeaks(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	first := expectAllocation(ctrl, device, 64, 1)
	second := expectAllocation(ctrl, device, 128, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{Name: "a"})
	require.NoError(t, err)
	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 128, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{Name: "b"})
	require.NoError(t, err)

	first.EXPECT().Free()
	second.EXPECT().Free()

	err = allocator.Destroy()
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 allocations")
	require.Equal(t, 0, allocator.LiveAllocations())
	require.Equal(t, 0, allocator.HeapBudgets()[0].Usage)

	require.NoError(t, allocator.Destroy())

	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.True(t, errors.Is(err, ErrDestroyed))
}

func TestExternallySynchronized(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{CreateFlags: CreateExternallySynchronized})
	require.False(t, allocator.mutex.useMutex)

	memory := expectAllocation(ctrl, device, 64, 1)
	alloc, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 64, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)

	memory.EXPECT().Free()
	require.NoError(t, alloc.Free())
	require.NoError(t, allocator.Destroy())
}
