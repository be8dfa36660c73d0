package memory

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports per-heap allocator counters to prometheus
type Collector struct {
	allocator *Allocator

	heapSize        *prometheus.Desc
	heapBudget      *prometheus.Desc
	blockBytes      *prometheus.Desc
	allocationCount *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

func NewCollector(allocator *Allocator) *Collector {
	labels := []string{"heap", "device_local"}

	return &Collector{
		allocator: allocator,
		heapSize: prometheus.NewDesc(
			"nova_gpu_heap_size_bytes",
			"Size of the device memory heap as reported by the adapter.",
			labels, nil,
		),
		heapBudget: prometheus.NewDesc(
			"nova_gpu_heap_budget_bytes",
			"Bytes the allocator is willing to allocate from the heap.",
			labels, nil,
		),
		blockBytes: prometheus.NewDesc(
			"nova_gpu_heap_block_bytes",
			"Bytes currently allocated from the heap.",
			labels, nil,
		),
		allocationCount: prometheus.NewDesc(
			"nova_gpu_heap_allocation_count",
			"Live allocations in the heap.",
			labels, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.heapSize
	ch <- c.heapBudget
	ch <- c.blockBytes
	ch <- c.allocationCount
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for heapIndex, budget := range c.allocator.HeapBudgets() {
		heap := strconv.Itoa(heapIndex)
		deviceLocal := strconv.FormatBool(c.allocator.HeapIsDeviceLocal(heapIndex))

		ch <- prometheus.MustNewConstMetric(c.heapSize, prometheus.GaugeValue, float64(c.allocator.layout.Heaps[heapIndex].Size), heap, deviceLocal)
		ch <- prometheus.MustNewConstMetric(c.heapBudget, prometheus.GaugeValue, float64(budget.Budget), heap, deviceLocal)
		ch <- prometheus.MustNewConstMetric(c.blockBytes, prometheus.GaugeValue, float64(budget.Usage), heap, deviceLocal)
		ch <- prometheus.MustNewConstMetric(c.allocationCount, prometheus.GaugeValue, float64(budget.Statistics.AllocationCount), heap, deviceLocal)
	}
}
