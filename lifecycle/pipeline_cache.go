package lifecycle

import (
	"sync/atomic"

	"github.com/coler706/nova-renderer/gpu"
)

type PipelineCache struct {
	cache     gpu.PipelineCache
	destroyed atomic.Bool
}

// Data returns the cache contents for persisting between runs
func (c *PipelineCache) Data() ([]byte, error) {
	if c.destroyed.Load() {
		return nil, ErrTornDown
	}
	data, err := c.cache.Data()
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not read pipeline cache data")
	}
	return data, nil
}

// Handle is the platform cache, for pipeline creation
func (c *PipelineCache) Handle() gpu.PipelineCache {
	return c.cache
}

func (c *PipelineCache) destroy() {
	if c.destroyed.Swap(true) {
		return
	}
	c.cache.Destroy()
}

// CreatePipelineCache creates an empty cache, or one seeded with initialData
// saved from an earlier run
func (o *Owner) CreatePipelineCache(initialData []byte) (*PipelineCache, error) {
	o.logger.Debug("Owner::CreatePipelineCache")

	o.mutex.Lock()
	defer o.mutex.Unlock()

	device, err := o.liveDevice()
	if err != nil {
		return nil, err
	}

	cache, err := device.CreatePipelineCache(initialData)
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not create pipeline cache")
	}

	pipelineCache := &PipelineCache{cache: cache}
	o.pipelineCaches = append(o.pipelineCaches, pipelineCache)
	return pipelineCache, nil
}
