package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized disables the allocator's internal locking. The caller
	// must guarantee the allocator and its allocations are used from one goroutine
	// at a time.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
}

const (
	// defaultLargeHeapBlockSize is used as PreferredLargeHeapBlockSize when none is
	// provided via CreateOptions. It is equal to 256Mb.
	defaultLargeHeapBlockSize int = 256 * 1024 * 1024
	smallHeapMaxSize          int = 1024 * 1024 * 1024
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// PreferredLargeHeapBlockSize is the allocation granularity reported for heaps
	// larger than a gigabyte
	PreferredLargeHeapBlockSize int

	// HeapSizeLimits can be left empty. If it is provided it must have one entry per
	// adapter memory heap. Each entry is either the maximum number of bytes that may be
	// allocated from that heap, or 0 indicating no limit. Limits are enforced at
	// allocation time with ErrOutOfDeviceMemory.
	HeapSizeLimits []int
}

// New creates an Allocator bound to device, which must have been created from the
// adapter that reported layout and properties.
func New(logger *slog.Logger, device gpu.Device, layout gpu.MemoryLayout, properties gpu.Properties, options CreateOptions) (*Allocator, error) {
	logger.Debug("Allocator::New")

	if device == nil {
		return nil, errors.New("memory.New requires a device")
	}
	if len(layout.Types) == 0 || len(layout.Heaps) == 0 {
		return nil, errors.New("the adapter reported no memory types or heaps")
	}
	if len(layout.Types) > 32 {
		return nil, errors.Newf("the adapter reported %d memory types, at most 32 are addressable", len(layout.Types))
	}
	for typeIndex, memoryType := range layout.Types {
		if memoryType.HeapIndex < 0 || memoryType.HeapIndex >= len(layout.Heaps) {
			return nil, errors.Newf("memory type %d refers to heap %d, but there are %d heaps", typeIndex, memoryType.HeapIndex, len(layout.Heaps))
		}
	}

	err := memutils.CheckPow2(properties.Limits.BufferImageGranularity, "device bufferImageGranularity")
	if err != nil {
		return nil, err
	}
	err = memutils.CheckPow2(properties.Limits.NonCoherentAtomSize, "device nonCoherentAtomSize")
	if err != nil {
		return nil, err
	}

	heapCount := len(layout.Heaps)
	if len(options.HeapSizeLimits) > 0 && len(options.HeapSizeLimits) != heapCount {
		return nil, gpu.InvalidConfiguration(
			errors.Newf("memory.CreateOptions.HeapSizeLimits has %d entries, but the adapter has %d heaps", len(options.HeapSizeLimits), heapCount),
			"heap size limits do not match the adapter")
	}

	useMutex := options.Flags&CreateExternallySynchronized == 0
	allocator := &Allocator{
		logger:      logger,
		device:      device,
		layout:      layout,
		properties:  properties,
		createFlags: options.Flags,
		mutex:       optionalRWMutex{useMutex: useMutex},
		live:        swiss.NewMap[uint64, *Allocation](64),
		heaps:       make([]heapState, heapCount),
	}

	allocator.preferredLargeHeapBlockSize = options.PreferredLargeHeapBlockSize
	if allocator.preferredLargeHeapBlockSize == 0 {
		allocator.preferredLargeHeapBlockSize = defaultLargeHeapBlockSize
	}

	for heapIndex := range allocator.heaps {
		limit := 0
		if len(options.HeapSizeLimits) > 0 {
			limit = options.HeapSizeLimits[heapIndex]
		}
		if limit < 0 {
			return nil, gpu.InvalidConfiguration(errors.Newf("memory.CreateOptions.HeapSizeLimits[%d] is negative", heapIndex), "invalid heap size limit")
		}
		allocator.heaps[heapIndex].limit = limit
	}

	return allocator, nil
}

// PreferredBlockSize is the granularity the allocator recommends for long-lived
// allocations of memoryTypeIndex: an eighth of small heaps, otherwise
// PreferredLargeHeapBlockSize.
func (a *Allocator) PreferredBlockSize(memoryTypeIndex int) int {
	heapIndex := a.layout.Types[memoryTypeIndex].HeapIndex

	heapSize := a.layout.Heaps[heapIndex].Size
	rawSize := a.preferredLargeHeapBlockSize
	if heapSize <= smallHeapMaxSize {
		rawSize = heapSize / 8
	}

	return memutils.AlignUp(rawSize, 32)
}
