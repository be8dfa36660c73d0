package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type Device struct {
	device core1_0.Device
}

var _ gpu.Device = &Device{}

func (d *Device) Queue(family, index int) (gpu.Queue, error) {
	queue := d.device.GetQueue(family, index)
	if queue == nil {
		return nil, errors.Newf("vkGetDeviceQueue returned nothing for family %d index %d", family, index)
	}
	return &Queue{queue: queue, family: family, index: index}, nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	semaphore, _, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateSemaphore")
	}
	return &Semaphore{semaphore: semaphore}, nil
}

func (d *Device) CreateCommandPool(info gpu.CommandPoolInfo) (gpu.CommandPool, error) {
	var flags core1_0.CommandPoolCreateFlags
	if info.Transient {
		flags |= core1_0.CommandPoolCreateTransient
	}
	if info.ResetIndividually {
		flags |= core1_0.CommandPoolCreateResetBuffer
	}

	pool, _, err := d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            flags,
		QueueFamilyIndex: info.Family,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateCommandPool")
	}
	return &CommandPool{pool: pool, family: info.Family}, nil
}

func (d *Device) CreatePipelineCache(initialData []byte) (gpu.PipelineCache, error) {
	cache, _, err := d.device.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkCreatePipelineCache")
	}
	return &PipelineCache{cache: cache}, nil
}

func (d *Device) AllocateMemory(size int, memoryTypeIndex int) (gpu.DeviceMemory, error) {
	memory, _, err := d.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "vkAllocateMemory of %d bytes from type %d", size, memoryTypeIndex)
	}
	return &DeviceMemory{memory: memory, size: size}, nil
}

func (d *Device) WaitIdle() error {
	_, err := d.device.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "vkDeviceWaitIdle")
	}
	return nil
}

func (d *Device) Destroy() {
	d.device.Destroy(nil)
}

type Queue struct {
	queue  core1_0.Queue
	family int
	index  int
}

func (q *Queue) Family() int { return q.family }
func (q *Queue) Index() int  { return q.index }

func (q *Queue) WaitIdle() error {
	_, err := q.queue.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "vkQueueWaitIdle")
	}
	return nil
}

type Semaphore struct {
	semaphore core1_0.Semaphore
}

func (s *Semaphore) Destroy() {
	s.semaphore.Destroy(nil)
}

type CommandPool struct {
	pool   core1_0.CommandPool
	family int
}

func (p *CommandPool) Family() int {
	return p.family
}

func (p *CommandPool) Reset() error {
	_, err := p.pool.Reset(0)
	if err != nil {
		return errors.Wrap(err, "vkResetCommandPool")
	}
	return nil
}

func (p *CommandPool) Destroy() {
	p.pool.Destroy(nil)
}

type PipelineCache struct {
	cache core1_0.PipelineCache
}

func (c *PipelineCache) Data() ([]byte, error) {
	data, _, err := c.cache.CacheData()
	if err != nil {
		return nil, errors.Wrap(err, "vkGetPipelineCacheData")
	}
	return data, nil
}

func (c *PipelineCache) Destroy() {
	c.cache.Destroy(nil)
}

type DeviceMemory struct {
	memory core1_0.DeviceMemory
	size   int
}

func (m *DeviceMemory) Size() int {
	return m.size
}

func (m *DeviceMemory) Map(offset, size int) (unsafe.Pointer, error) {
	data, _, err := m.memory.Map(offset, size, 0)
	if err != nil {
		return nil, errors.Wrap(err, "vkMapMemory")
	}
	return data, nil
}

func (m *DeviceMemory) Unmap() {
	m.memory.Unmap()
}

func (m *DeviceMemory) Free() {
	m.memory.Free(nil)
}
