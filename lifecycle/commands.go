package lifecycle

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
)

// CommandInfrastructure is one command pool per recording worker, all on the same
// queue family. Workers never share a pool, so recording needs no locking.
type CommandInfrastructure struct {
	family    int
	pools     []gpu.CommandPool
	destroyed atomic.Bool
}

func (c *CommandInfrastructure) Family() int {
	return c.family
}

func (c *CommandInfrastructure) Workers() int {
	return len(c.pools)
}

// Pool returns the pool reserved for worker, or ErrTornDown once the pools are gone
func (c *CommandInfrastructure) Pool(worker int) (gpu.CommandPool, error) {
	if c.destroyed.Load() {
		return nil, ErrTornDown
	}
	if worker < 0 || worker >= len(c.pools) {
		return nil, errors.AssertionFailedf("worker %d is outside [0, %d)", worker, len(c.pools))
	}
	return c.pools[worker], nil
}

func (c *CommandInfrastructure) destroy() {
	if c.destroyed.Swap(true) {
		return
	}
	for _, pool := range c.pools {
		pool.Destroy()
	}
}

func (o *Owner) CreateCommandInfrastructure(queueFamily, workers int) (*CommandInfrastructure, error) {
	o.logger.Debug("Owner::CreateCommandInfrastructure")

	if workers < 1 {
		return nil, gpu.InvalidConfiguration(errors.Newf("worker count must be at least 1, got %d", workers), "could not create command infrastructure")
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	device, err := o.liveDevice()
	if err != nil {
		return nil, err
	}

	infrastructure := &CommandInfrastructure{family: queueFamily}
	for worker := 0; worker < workers; worker++ {
		pool, err := device.CreateCommandPool(gpu.CommandPoolInfo{
			Family:            queueFamily,
			ResetIndividually: true,
		})
		if err != nil {
			infrastructure.destroy()
			return nil, gpu.PlatformAPIFailure(errors.WithDetailf(err, "worker %d", worker), "could not create command pool")
		}
		infrastructure.pools = append(infrastructure.pools, pool)
	}

	o.commands = append(o.commands, infrastructure)
	return infrastructure, nil
}
