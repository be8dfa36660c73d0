package memory

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Allocation is one dedicated block of device memory
type Allocation struct {
	allocator *Allocator
	id        uint64

	memory          gpu.DeviceMemory
	size            int
	memoryTypeIndex int
	heapIndex       int
	name            string
	hostVisible     bool

	mapMutex      optionalRWMutex
	persistentMap bool
	mapReferences int
	mapData       unsafe.Pointer
}

func (a *Allocation) Size() int {
	return a.size
}

func (a *Allocation) MemoryTypeIndex() int {
	return a.memoryTypeIndex
}

func (a *Allocation) HeapIndex() int {
	return a.heapIndex
}

func (a *Allocation) Name() string {
	return a.name
}

func (a *Allocation) SetName(name string) {
	a.name = name
}

// Memory is the platform memory object backing the allocation, offset 0
func (a *Allocation) Memory() gpu.DeviceMemory {
	return a.memory
}

// MappedData returns the host pointer if the allocation is currently mapped, or nil
func (a *Allocation) MappedData() unsafe.Pointer {
	a.mapMutex.RLock()
	defer a.mapMutex.RUnlock()

	return a.mapData
}

// Map maps the whole allocation into host memory. Mappings are reference counted,
// every successful Map must be paired with an Unmap.
func (a *Allocation) Map() (unsafe.Pointer, error) {
	if !a.hostVisible {
		return nil, errors.Newf("allocation %q is in memory type %d, which is not host visible", a.name, a.memoryTypeIndex)
	}

	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	if a.mapReferences > 0 {
		if a.mapData == nil {
			return nil, errors.New("the allocation is showing existing memory mapping references, but no mapped memory")
		}
		a.mapReferences++
		return a.mapData, nil
	}

	data, err := a.memory.Map(0, a.size)
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not map device memory")
	}

	a.mapData = data
	a.mapReferences = 1
	return data, nil
}

func (a *Allocation) Unmap() error {
	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	minReferences := 0
	if a.persistentMap {
		minReferences = 1
	}
	if a.mapReferences <= minReferences {
		return errors.New("allocation has more references being unmapped than are currently mapped")
	}

	a.mapReferences--
	if a.mapReferences == 0 {
		a.memory.Unmap()
		a.mapData = nil
	}
	return nil
}

// Free releases the allocation back to the platform. The allocation must not be
// used afterward.
func (a *Allocation) Free() error {
	return a.allocator.free(a)
}

func (a *Allocation) printParameters(json *jwriter.ObjectState) {
	json.Name("Size").Int(a.size)
	json.Name("MemoryType").Int(a.memoryTypeIndex)
	json.Name("Mapped").Bool(a.mapReferences > 0)

	if a.name != "" {
		json.Name("Name").String(a.name)
	}
}
