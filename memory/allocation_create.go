package memory

import (
	"fmt"

	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/common"
)

type AllocationCreateFlags int32

var allocationCreateFlagsMapping = common.NewFlagStringMapping[AllocationCreateFlags]()

func (f AllocationCreateFlags) Register(str string) {
	allocationCreateFlagsMapping.Register(f, str)
}
func (f AllocationCreateFlags) String() string {
	return allocationCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocationCreateMapped maps the allocation as soon as it is created and keeps it
	// mapped until it is freed. It is ignored for memory types that are not host visible.
	AllocationCreateMapped AllocationCreateFlags = 1 << iota
)

func init() {
	AllocationCreateMapped.Register("AllocationCreateMapped")
}

// MemoryUsage describes how an allocation will be accessed, which the allocator
// translates into required and preferred memory property flags
type MemoryUsage uint32

const (
	// MemoryUsageUnknown derives nothing from usage, only RequiredFlags and PreferredFlags apply
	MemoryUsageUnknown MemoryUsage = iota
	// MemoryUsageGPUOnly prefers device-local memory
	MemoryUsageGPUOnly
	// MemoryUsageCPUOnly requires host-visible, host-coherent memory
	MemoryUsageCPUOnly
	// MemoryUsageCPUToGPU requires host-visible memory and prefers it device-local, for
	// data the CPU writes every frame
	MemoryUsageCPUToGPU
	// MemoryUsageGPUToCPU requires host-visible memory and prefers it cached, for readback
	MemoryUsageGPUToCPU
	// MemoryUsageGPULazilyAllocated requires lazily allocated memory, for transient attachments
	MemoryUsageGPULazilyAllocated
)

var memoryUsageMapping = map[MemoryUsage]string{
	MemoryUsageUnknown:            "MemoryUsageUnknown",
	MemoryUsageGPUOnly:            "MemoryUsageGPUOnly",
	MemoryUsageCPUOnly:            "MemoryUsageCPUOnly",
	MemoryUsageCPUToGPU:           "MemoryUsageCPUToGPU",
	MemoryUsageGPUToCPU:           "MemoryUsageGPUToCPU",
	MemoryUsageGPULazilyAllocated: "MemoryUsageGPULazilyAllocated",
}

func (u MemoryUsage) String() string {
	str, ok := memoryUsageMapping[u]
	if !ok {
		return fmt.Sprintf("MemoryUsage(%d)", uint32(u))
	}
	return str
}

// AllocationCreateInfo describes a requested allocation
type AllocationCreateInfo struct {
	Flags AllocationCreateFlags
	Usage MemoryUsage

	// RequiredFlags must all be present on the chosen memory type
	RequiredFlags gpu.MemoryPropertyFlags
	// PreferredFlags are counted against memory types that lack them
	PreferredFlags gpu.MemoryPropertyFlags
	// MemoryTypeBits further restricts the eligible memory types when nonzero
	MemoryTypeBits uint32

	// Name is reported in statistics and leak warnings
	Name string
}
