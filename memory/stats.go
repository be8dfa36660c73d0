package memory

import (
	"cmp"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/memutils"
	"golang.org/x/exp/slices"
)

// Statistics breaks current usage down by memory type and heap. Every allocation
// is its own block, so BlockCount and AllocationCount agree except for rounding of
// sizes to the memory type's alignment.
type Statistics struct {
	MemoryTypes []memutils.DetailedStatistics
	MemoryHeaps []memutils.DetailedStatistics
	Total       memutils.DetailedStatistics
}

// Budget is the usage of one heap against the amount the allocator is willing to hand out
type Budget struct {
	Statistics memutils.Statistics
	// Usage is the number of bytes allocated from the heap
	Usage int
	// Budget is the heap limit if one was configured, otherwise 80% of the heap size
	Budget int
}

// CalculateStatistics walks every live allocation
func (a *Allocator) CalculateStatistics() Statistics {
	a.logger.Debug("Allocator::CalculateStatistics")

	stats := Statistics{
		MemoryTypes: make([]memutils.DetailedStatistics, a.MemoryTypeCount()),
		MemoryHeaps: make([]memutils.DetailedStatistics, a.MemoryHeapCount()),
	}
	stats.Total.Clear()
	for i := range stats.MemoryTypes {
		stats.MemoryTypes[i].Clear()
	}
	for i := range stats.MemoryHeaps {
		stats.MemoryHeaps[i].Clear()
	}

	a.mutex.RLock()
	a.live.Iter(func(id uint64, alloc *Allocation) bool {
		typeStats := &stats.MemoryTypes[alloc.memoryTypeIndex]
		typeStats.BlockCount++
		typeStats.BlockBytes += alloc.size
		typeStats.AddAllocation(alloc.size)
		return false
	})
	a.mutex.RUnlock()

	for typeIndex := range stats.MemoryTypes {
		heapIndex := a.MemoryTypeIndexToHeapIndex(typeIndex)
		stats.MemoryHeaps[heapIndex].AddDetailedStatistics(&stats.MemoryTypes[typeIndex])
		stats.Total.AddDetailedStatistics(&stats.MemoryTypes[typeIndex])
	}

	return stats
}

// HeapBudgets reports running counters per heap without walking allocations
func (a *Allocator) HeapBudgets() []Budget {
	budgets := make([]Budget, len(a.heaps))
	for heapIndex := range a.heaps {
		heap := &a.heaps[heapIndex]
		budget := &budgets[heapIndex]

		budget.Statistics.BlockCount = int(atomic.LoadInt64(&heap.blockCount))
		budget.Statistics.BlockBytes = int(atomic.LoadInt64(&heap.blockBytes))
		budget.Statistics.AllocationCount = int(atomic.LoadInt64(&heap.allocationCount))
		budget.Statistics.AllocationBytes = int(atomic.LoadInt64(&heap.allocationBytes))
		budget.Usage = budget.Statistics.BlockBytes

		if heap.limit > 0 {
			budget.Budget = heap.limit
		} else {
			budget.Budget = a.layout.Heaps[heapIndex].Size * 8 / 10
		}
	}
	return budgets
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
}

// BuildStatsString renders statistics as JSON. With detailedMap set, every live
// allocation is listed under its memory type.
func (a *Allocator) BuildStatsString(detailedMap bool) (string, error) {
	a.logger.Debug("Allocator::BuildStatsString")

	stats := a.CalculateStatistics()
	budgets := a.HeapBudgets()

	writer := jwriter.NewWriter()
	objState := writer.Object()

	total := objState.Name("Total").Object()
	printDetailedStatistics(&total, &stats.Total)
	total.End()

	heaps := objState.Name("MemoryHeaps").Array()
	for heapIndex, heap := range a.layout.Heaps {
		heapObj := heaps.Object()
		heapObj.Name("Size").Int(heap.Size)
		heapObj.Name("DeviceLocal").Bool(heap.DeviceLocal)
		heapObj.Name("Usage").Int(budgets[heapIndex].Usage)
		heapObj.Name("Budget").Int(budgets[heapIndex].Budget)

		heapStats := heapObj.Name("Stats").Object()
		printDetailedStatistics(&heapStats, &stats.MemoryHeaps[heapIndex])
		heapStats.End()

		types := heapObj.Name("MemoryTypes").Array()
		for typeIndex, memoryType := range a.layout.Types {
			if memoryType.HeapIndex != heapIndex {
				continue
			}

			typeObj := types.Object()
			typeObj.Name("Index").Int(typeIndex)
			typeObj.Name("Flags").String(memoryType.PropertyFlags.String())
			typeStats := typeObj.Name("Stats").Object()
			printDetailedStatistics(&typeStats, &stats.MemoryTypes[typeIndex])
			typeStats.End()

			if detailedMap {
				a.printAllocations(&typeObj, typeIndex)
			}
			typeObj.End()
		}
		types.End()

		heapObj.End()
	}
	heaps.End()

	objState.End()

	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "could not build allocator statistics")
	}
	return string(writer.Bytes()), nil
}

func (a *Allocator) printAllocations(json *jwriter.ObjectState, memoryTypeIndex int) {
	a.mutex.RLock()
	var allocs []*Allocation
	a.live.Iter(func(id uint64, alloc *Allocation) bool {
		if alloc.memoryTypeIndex == memoryTypeIndex {
			allocs = append(allocs, alloc)
		}
		return false
	})
	a.mutex.RUnlock()

	slices.SortFunc(allocs, func(l, r *Allocation) int {
		return cmp.Compare(l.id, r.id)
	})

	arrayState := json.Name("Allocations").Array()
	defer arrayState.End()

	for _, alloc := range allocs {
		obj := arrayState.Object()
		alloc.printParameters(&obj)
		obj.End()
	}
}

func (a *Allocator) HeapIsDeviceLocal(heapIndex int) bool {
	return a.layout.Heaps[heapIndex].DeviceLocal
}
