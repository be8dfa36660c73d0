// Package memory hands out device memory for the logical device. Every allocation
// is a dedicated platform allocation; the allocator's job is picking the right
// memory type, enforcing heap limits and keeping per-heap statistics.
package memory

import (
	"cmp"
	"context"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/memutils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

var (
	// ErrNoMemoryType is returned when no memory type satisfies an allocation's requirements
	ErrNoMemoryType = errors.New("no memory type satisfies the allocation requirements")
	// ErrOutOfDeviceMemory is returned when an allocation would exceed a heap limit
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	// ErrTooManyObjects is returned when the adapter's maxMemoryAllocationCount would be exceeded
	ErrTooManyObjects = errors.New("too many device memory allocations")
	// ErrDestroyed is returned by every operation on an allocator that has been destroyed
	ErrDestroyed = errors.New("the allocator has been destroyed")
)

type heapState struct {
	limit int

	blockCount      int64
	blockBytes      int64
	allocationCount int64
	allocationBytes int64
}

// Allocator is bound to one (adapter, device) pair for the life of the device
type Allocator struct {
	logger      *slog.Logger
	device      gpu.Device
	layout      gpu.MemoryLayout
	properties  gpu.Properties
	createFlags CreateFlags

	preferredLargeHeapBlockSize int

	mutex     optionalRWMutex
	live      *swiss.Map[uint64, *Allocation]
	nextID    uint64
	destroyed bool

	deviceAllocationCount int64
	heaps                 []heapState
}

func (a *Allocator) isIntegratedGPU() bool {
	return a.properties.Type == gpu.DeviceTypeIntegratedGPU
}

// MemoryTypeCount is the number of memory types the adapter exposes
func (a *Allocator) MemoryTypeCount() int {
	return len(a.layout.Types)
}

func (a *Allocator) MemoryHeapCount() int {
	return len(a.layout.Heaps)
}

func (a *Allocator) MemoryTypeIndexToHeapIndex(memoryTypeIndex int) int {
	return a.layout.Types[memoryTypeIndex].HeapIndex
}

func (a *Allocator) memoryTypeMinimumAlignment(memoryTypeIndex int) uint {
	if a.isMemoryTypeHostNonCoherent(memoryTypeIndex) {
		alignment := uint(a.properties.Limits.NonCoherentAtomSize)
		if alignment < 1 {
			return 1
		}
		return alignment
	}

	return 1
}

func (a *Allocator) isMemoryTypeHostNonCoherent(memoryTypeIndex int) bool {
	flags := a.layout.Types[memoryTypeIndex].PropertyFlags
	return flags&(gpu.MemoryPropertyHostVisible|gpu.MemoryPropertyHostCoherent) == gpu.MemoryPropertyHostVisible
}

func (a *Allocator) findMemoryPreferences(o *AllocationCreateInfo) (requiredFlags, preferredFlags, notPreferredFlags gpu.MemoryPropertyFlags) {
	isIntegratedGPU := a.isIntegratedGPU()
	requiredFlags = o.RequiredFlags
	preferredFlags = o.PreferredFlags

	switch o.Usage {
	case MemoryUsageGPUOnly:
		if !isIntegratedGPU || preferredFlags&gpu.MemoryPropertyHostVisible == 0 {
			preferredFlags |= gpu.MemoryPropertyDeviceLocal
		}
	case MemoryUsageCPUOnly:
		requiredFlags |= gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent
	case MemoryUsageCPUToGPU:
		requiredFlags |= gpu.MemoryPropertyHostVisible
		if !isIntegratedGPU || preferredFlags&gpu.MemoryPropertyHostVisible == 0 {
			preferredFlags |= gpu.MemoryPropertyDeviceLocal
		}
	case MemoryUsageGPUToCPU:
		requiredFlags |= gpu.MemoryPropertyHostVisible
		preferredFlags |= gpu.MemoryPropertyHostCached
	case MemoryUsageGPULazilyAllocated:
		requiredFlags |= gpu.MemoryPropertyLazilyAllocated
	}

	if o.Usage != MemoryUsageGPULazilyAllocated {
		notPreferredFlags |= gpu.MemoryPropertyLazilyAllocated
	}

	return requiredFlags, preferredFlags, notPreferredFlags
}

// FindMemoryTypeIndex returns the memory type allowed by memoryTypeBits that has every
// required flag and the fewest preference mismatches. Ties go to the lowest index.
func (a *Allocator) FindMemoryTypeIndex(memoryTypeBits uint32, o AllocationCreateInfo) (int, error) {
	a.logger.Debug("Allocator::FindMemoryTypeIndex")

	return a.findMemoryTypeIndex(memoryTypeBits, &o)
}

func (a *Allocator) findMemoryTypeIndex(memoryTypeBits uint32, o *AllocationCreateInfo) (int, error) {
	if o.MemoryTypeBits != 0 {
		memoryTypeBits &= o.MemoryTypeBits
	}

	requiredFlags, preferredFlags, notPreferredFlags := a.findMemoryPreferences(o)

	bestMemoryTypeIndex := -1
	minCost := math.MaxInt

	for memTypeIndex := 0; memTypeIndex < a.MemoryTypeCount(); memTypeIndex++ {
		memTypeBit := uint32(1 << memTypeIndex)

		if memTypeBit&memoryTypeBits == 0 {
			continue
		}

		flags := a.layout.Types[memTypeIndex].PropertyFlags
		if requiredFlags&flags != requiredFlags {
			continue
		}

		missingPreferredFlags := preferredFlags & ^flags
		presentNotPreferredFlags := notPreferredFlags & flags
		cost := bits.OnesCount32(uint32(missingPreferredFlags)) + bits.OnesCount32(uint32(presentNotPreferredFlags))
		if cost == 0 {
			return memTypeIndex, nil
		} else if cost < minCost {
			bestMemoryTypeIndex = memTypeIndex
			minCost = cost
		}
	}

	if bestMemoryTypeIndex < 0 {
		return -1, errors.Wrapf(ErrNoMemoryType, "required flags %s, allowed types %#x", requiredFlags, memoryTypeBits)
	}

	return bestMemoryTypeIndex, nil
}

// AllocateMemory allocates memory satisfying requirements. When the best memory type
// is out of budget the next best type is tried, until no candidate type remains.
func (a *Allocator) AllocateMemory(requirements gpu.MemoryRequirements, o AllocationCreateInfo) (*Allocation, error) {
	a.logger.Debug("Allocator::AllocateMemory")

	if requirements.Size <= 0 {
		return nil, errors.Newf("allocation size must be positive, got %d", requirements.Size)
	}
	if requirements.Alignment > 0 {
		err := memutils.CheckPow2(requirements.Alignment, "gpu.MemoryRequirements.Alignment")
		if err != nil {
			return nil, err
		}
	}

	a.mutex.RLock()
	destroyed := a.destroyed
	a.mutex.RUnlock()
	if destroyed {
		return nil, ErrDestroyed
	}

	memoryTypeBits := requirements.MemoryTypeBits
	memoryTypeIndex, err := a.findMemoryTypeIndex(memoryTypeBits, &o)
	if err != nil {
		return nil, err
	}

	for {
		alloc, err := a.allocateOfType(requirements, &o, memoryTypeIndex)
		if err == nil {
			return alloc, nil
		}
		if !errors.Is(err, ErrOutOfDeviceMemory) {
			return nil, err
		}

		// Try the next best memory type
		memoryTypeBits &= ^(uint32(1) << memoryTypeIndex)
		memoryTypeIndex, err = a.findMemoryTypeIndex(memoryTypeBits, &o)
		if err != nil {
			return nil, errors.Wrap(ErrOutOfDeviceMemory, "every eligible memory type is exhausted")
		}
	}
}

func (a *Allocator) allocateOfType(requirements gpu.MemoryRequirements, o *AllocationCreateInfo, memoryTypeIndex int) (alloc *Allocation, err error) {
	alignment := a.memoryTypeMinimumAlignment(memoryTypeIndex)
	if uint(requirements.Alignment) > alignment {
		alignment = uint(requirements.Alignment)
	}
	size := memutils.AlignUp(requirements.Size, alignment)
	heapIndex := a.MemoryTypeIndexToHeapIndex(memoryTypeIndex)

	newDeviceCount := atomic.AddInt64(&a.deviceAllocationCount, 1)
	defer func() {
		if err != nil {
			atomic.AddInt64(&a.deviceAllocationCount, -1)
		}
	}()

	maxCount := a.properties.Limits.MaxMemoryAllocationCount
	if maxCount > 0 && int(newDeviceCount) > maxCount {
		return nil, errors.Wrapf(ErrTooManyObjects, "maxMemoryAllocationCount is %d", maxCount)
	}

	err = a.reserveHeapBytes(heapIndex, size)
	if err != nil {
		return nil, err
	}

	memory, err := a.device.AllocateMemory(size, memoryTypeIndex)
	if err != nil {
		a.releaseHeapBytes(heapIndex, size)
		a.logger.Debug("    Allocator::allocateOfType FAILED")
		return nil, gpu.PlatformAPIFailure(err, "could not allocate device memory")
	}

	alloc = &Allocation{
		allocator:       a,
		memory:          memory,
		size:            size,
		memoryTypeIndex: memoryTypeIndex,
		heapIndex:       heapIndex,
		name:            o.Name,
		hostVisible:     a.layout.Types[memoryTypeIndex].PropertyFlags&gpu.MemoryPropertyHostVisible != 0,
		mapMutex:        optionalRWMutex{useMutex: a.mutex.useMutex},
	}

	if o.Flags&AllocationCreateMapped != 0 && alloc.hostVisible {
		_, err = alloc.Map()
		if err != nil {
			memory.Free()
			a.releaseHeapBytes(heapIndex, size)
			return nil, err
		}
		alloc.persistentMap = true
	}

	a.mutex.Lock()
	a.nextID++
	alloc.id = a.nextID
	a.live.Put(alloc.id, alloc)
	a.mutex.Unlock()

	atomic.AddInt64(&a.heaps[heapIndex].allocationCount, 1)
	atomic.AddInt64(&a.heaps[heapIndex].allocationBytes, int64(size))

	return alloc, nil
}

func (a *Allocator) reserveHeapBytes(heapIndex, size int) error {
	heap := &a.heaps[heapIndex]

	if heap.limit == 0 {
		atomic.AddInt64(&heap.blockBytes, int64(size))
		atomic.AddInt64(&heap.blockCount, 1)
		return nil
	}

	maxSize := heap.limit
	heapSize := a.layout.Heaps[heapIndex].Size
	if heapSize < maxSize {
		maxSize = heapSize
	}

	for {
		currentVal := atomic.LoadInt64(&heap.blockBytes)
		targetVal := currentVal + int64(size)

		if targetVal > int64(maxSize) {
			return errors.Wrapf(ErrOutOfDeviceMemory, "heap %d limit is %d bytes", heapIndex, maxSize)
		}

		if atomic.CompareAndSwapInt64(&heap.blockBytes, currentVal, targetVal) {
			break
		}
	}

	atomic.AddInt64(&heap.blockCount, 1)
	return nil
}

func (a *Allocator) releaseHeapBytes(heapIndex, size int) {
	atomic.AddInt64(&a.heaps[heapIndex].blockBytes, -int64(size))
	atomic.AddInt64(&a.heaps[heapIndex].blockCount, -1)
}

func (a *Allocator) free(alloc *Allocation) error {
	a.mutex.Lock()
	_, ok := a.live.Get(alloc.id)
	if ok {
		a.live.Delete(alloc.id)
	}
	a.mutex.Unlock()

	if !ok {
		return errors.Newf("allocation %d is not live in this allocator", alloc.id)
	}

	a.release(alloc)
	return nil
}

func (a *Allocator) release(alloc *Allocation) {
	if alloc.mapReferences > 0 {
		alloc.memory.Unmap()
		alloc.mapReferences = 0
		alloc.mapData = nil
	}
	alloc.memory.Free()

	a.releaseHeapBytes(alloc.heapIndex, alloc.size)
	atomic.AddInt64(&a.heaps[alloc.heapIndex].allocationCount, -1)
	atomic.AddInt64(&a.heaps[alloc.heapIndex].allocationBytes, -int64(alloc.size))
	atomic.AddInt64(&a.deviceAllocationCount, -1)
}

// LiveAllocations returns the number of allocations that have not been freed
func (a *Allocator) LiveAllocations() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.live.Count()
}

// Destroy frees every allocation that is still live, logging each one, and makes
// the allocator unusable. Leaked allocations are reported in the returned error
// but are released regardless so the device can be destroyed afterward.
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")

	a.mutex.Lock()
	if a.destroyed {
		a.mutex.Unlock()
		return nil
	}
	a.destroyed = true

	var leaked []*Allocation
	a.live.Iter(func(id uint64, alloc *Allocation) bool {
		leaked = append(leaked, alloc)
		return false
	})
	a.live.Clear()
	slices.SortFunc(leaked, func(l, r *Allocation) int {
		return cmp.Compare(l.id, r.id)
	})
	a.mutex.Unlock()

	for _, alloc := range leaked {
		a.logger.LogAttrs(context.Background(),
			slog.LevelWarn,
			"[UNRELEASED MEMORY] allocation freed by allocator destruction",
			slog.String("name", alloc.name),
			slog.Int("size", alloc.size),
			slog.Int("memoryType", alloc.memoryTypeIndex),
		)
		a.release(alloc)
	}

	if len(leaked) > 0 {
		return errors.Newf("%d allocations were not freed before the allocator was destroyed", len(leaked))
	}
	return nil
}
