package memory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/coler706/nova-renderer/gpu"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCalculateStatistics(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	expectAllocation(ctrl, device, 1024, 1)
	expectAllocation(ctrl, device, 4096, 1)
	expectAllocation(ctrl, device, 256, 2)

	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 1024, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)
	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 4096, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)
	_, err = allocator.AllocateMemory(gpu.MemoryRequirements{Size: 256, MemoryTypeBits: 1 << 2}, AllocationCreateInfo{})
	require.NoError(t, err)

	stats := allocator.CalculateStatistics()
	require.Equal(t, 3, stats.Total.AllocationCount)
	require.Equal(t, 5376, stats.Total.AllocationBytes)
	require.Equal(t, 2, stats.MemoryTypes[1].BlockCount)
	require.Equal(t, 1024, stats.MemoryTypes[1].AllocationSizeMin)
	require.Equal(t, 4096, stats.MemoryTypes[1].AllocationSizeMax)
	require.Equal(t, 5120, stats.MemoryHeaps[0].BlockBytes)
	require.Equal(t, 256, stats.MemoryHeaps[1].BlockBytes)
	require.Equal(t, 0, stats.MemoryHeaps[2].AllocationCount)
}

func TestHeapBudgetDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, _ := readyAllocator(t, ctrl, AllocatorSetup{HeapLimits: []int{0, 1024 * 1024, 0}})

	budgets := allocator.HeapBudgets()
	require.Len(t, budgets, 3)
	require.Equal(t, defaultMemoryHeaps[0].Size*8/10, budgets[0].Budget)
	require.Equal(t, 1024*1024, budgets[1].Budget)
}

func TestBuildStatsString(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	expectAllocation(ctrl, device, 2048, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 2048, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{Name: "depth"})
	require.NoError(t, err)

	out, err := allocator.BuildStatsString(true)
	require.NoError(t, err)

	var decoded struct {
		Total struct {
			AllocationCount int
			AllocationBytes int
		}
		MemoryHeaps []struct {
			Size        int
			DeviceLocal bool
			Usage       int
			MemoryTypes []struct {
				Index       int
				Allocations []struct {
					Name string
					Size int
				}
			}
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	require.Equal(t, 1, decoded.Total.AllocationCount)
	require.Equal(t, 2048, decoded.Total.AllocationBytes)
	require.Len(t, decoded.MemoryHeaps, 3)
	require.True(t, decoded.MemoryHeaps[0].DeviceLocal)
	require.Equal(t, 2048, decoded.MemoryHeaps[0].Usage)

	heapTypes := decoded.MemoryHeaps[0].MemoryTypes
	require.Len(t, heapTypes, 2)
	require.Equal(t, 1, heapTypes[0].Index)
	require.Len(t, heapTypes[0].Allocations, 1)
	require.Equal(t, "depth", heapTypes[0].Allocations[0].Name)

	out, err = allocator.BuildStatsString(false)
	require.NoError(t, err)
	require.NotContains(t, out, "Allocations")
}

func TestCollector(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator, device := readyAllocator(t, ctrl, AllocatorSetup{})

	expectAllocation(ctrl, device, 1024, 1)
	_, err := allocator.AllocateMemory(gpu.MemoryRequirements{Size: 1024, MemoryTypeBits: 1 << 1}, AllocationCreateInfo{})
	require.NoError(t, err)

	collector := NewCollector(allocator)
	require.Equal(t, 12, testutil.CollectAndCount(collector))

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))

	expected := `
# HELP nova_gpu_heap_block_bytes Bytes currently allocated from the heap.
# TYPE nova_gpu_heap_block_bytes gauge
nova_gpu_heap_block_bytes{device_local="true",heap="0"} 1024
nova_gpu_heap_block_bytes{device_local="false",heap="1"} 0
nova_gpu_heap_block_bytes{device_local="true",heap="2"} 0
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "nova_gpu_heap_block_bytes"))
}
