// Package lifecycle owns every GPU object created during bring-up and is the only
// place they are destroyed.
package lifecycle

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/device"
	"github.com/coler706/nova-renderer/diag"
	"github.com/coler706/nova-renderer/gpu"
	"golang.org/x/exp/slog"
)

// ErrTornDown classifies as gpu.ErrContextClosed
var ErrTornDown = errors.Mark(errors.New("the resource owner has been torn down"), gpu.ErrContextClosed)

// Owner destroys what it holds in reverse dependency order:
// diagnostics, allocator, semaphores, command pools, pipeline caches, device,
// surface, instance. Pieces that were never adopted or created are skipped.
type Owner struct {
	logger   *slog.Logger
	instance gpu.Instance

	mutex       sync.Mutex
	tornDown    bool
	diagnostics *diag.Bridge
	surface     gpu.Surface
	device      *device.Context

	syncSets       []*FrameSyncSet
	commands       []*CommandInfrastructure
	pipelineCaches []*PipelineCache
}

func NewOwner(logger *slog.Logger, instance gpu.Instance) *Owner {
	return &Owner{
		logger:   logger,
		instance: instance,
	}
}

func (o *Owner) AdoptDiagnostics(bridge *diag.Bridge) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.diagnostics = bridge
}

func (o *Owner) AdoptSurface(surface gpu.Surface) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.surface = surface
}

// AdoptDevice takes the device and its allocator. Sync objects, command pools
// and pipeline caches can only be created after this.
func (o *Owner) AdoptDevice(context *device.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.device = context
}

func (o *Owner) liveDevice() (gpu.Device, error) {
	if o.tornDown {
		return nil, ErrTornDown
	}
	if o.device == nil {
		return nil, errors.AssertionFailedf("no device has been adopted")
	}
	return o.device.Device, nil
}

// Teardown destroys everything the owner holds. Only the first call does anything.
// Failures are logged and returned, but never stop the remaining destruction.
func (o *Owner) Teardown() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.tornDown {
		return nil
	}
	o.tornDown = true
	o.logger.Debug("Owner::Teardown")

	var err error
	if o.device != nil {
		waitErr := o.device.Device.WaitIdle()
		if waitErr != nil {
			o.logger.Error("Device did not go idle before teardown", slog.Any("error", waitErr))
			err = errors.CombineErrors(err, gpu.PlatformAPIFailure(waitErr, "could not wait for device idle"))
		}
	}

	if o.diagnostics != nil {
		o.diagnostics.Detach()
		o.diagnostics = nil
	}

	if o.device != nil && o.device.Allocator != nil {
		allocErr := o.device.Allocator.Destroy()
		if allocErr != nil {
			o.logger.Warn("Allocator destroyed with live allocations", slog.Any("error", allocErr))
			err = errors.CombineErrors(err, allocErr)
		}
	}

	for _, set := range o.syncSets {
		set.destroy()
	}
	o.syncSets = nil

	for _, infrastructure := range o.commands {
		infrastructure.destroy()
	}
	o.commands = nil

	for _, cache := range o.pipelineCaches {
		cache.destroy()
	}
	o.pipelineCaches = nil

	if o.device != nil {
		o.device.Device.Destroy()
		o.device = nil
	}

	if o.surface != nil {
		o.surface.Destroy()
		o.surface = nil
	}

	if o.instance != nil {
		o.instance.Destroy()
		o.instance = nil
	}

	return err
}
