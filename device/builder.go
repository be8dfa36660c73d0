// Package device opens the logical device on a selected adapter and binds its
// queues and memory allocator.
package device

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/memory"
	"golang.org/x/exp/slog"
)

type BuilderOptions struct {
	// Allocator configures the memory allocator bound to the new device
	Allocator memory.CreateOptions
}

type Builder struct {
	logger  *slog.Logger
	options BuilderOptions
}

func NewBuilder(logger *slog.Logger, options BuilderOptions) *Builder {
	return &Builder{
		logger:  logger,
		options: options,
	}
}

// Context is the opened device. Graphics and Present may alias one queue.
type Context struct {
	Adapter   *adapter.Descriptor
	Device    gpu.Device
	Graphics  QueueHandle
	Present   QueueHandle
	Allocator *memory.Allocator
}

// QueuesShared reports whether the graphics and present roles use the same queue
func (c *Context) QueuesShared() bool {
	return c.Graphics.Family == c.Present.Family
}

// Build creates the logical device for selection. On failure nothing created here
// is left alive.
func (b *Builder) Build(selection adapter.Selection) (*Context, error) {
	b.logger.Debug("Builder::Build")

	descriptor := selection.Adapter
	if descriptor == nil {
		return nil, gpu.HardwareUnavailable(nil, "device build requires a selected adapter")
	}

	err := checkCapabilities(descriptor)
	if err != nil {
		return nil, err
	}

	requests := UniqueQueueRequests(selection)
	device, err := descriptor.Handle.CreateDevice(gpu.DeviceInfo{
		Queues:     deviceQueueInfos(requests),
		Features:   RequiredFeatures(),
		Extensions: RequiredExtensions(),
	})
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not create logical device on "+descriptor.Name())
	}

	queues := make(map[int]gpu.Queue, len(requests))
	for _, request := range requests {
		queue, err := device.Queue(request.Family, 0)
		if err != nil {
			device.Destroy()
			return nil, gpu.PlatformAPIFailure(err, "could not retrieve device queue")
		}
		queues[request.Family] = queue
	}

	allocator, err := memory.New(b.logger, device, descriptor.Memory, descriptor.Properties, b.options.Allocator)
	if err != nil {
		// not adopted by an owner yet, so nobody else will destroy it
		device.Destroy()
		if gpu.IsFatal(err) {
			return nil, errors.Wrap(err, "could not create memory allocator")
		}
		return nil, gpu.PlatformAPIFailure(err, "could not create memory allocator")
	}

	context := &Context{
		Adapter: descriptor,
		Device:  device,
		Graphics: QueueHandle{
			Role:   QueueRoleGraphics,
			Family: selection.GraphicsFamily,
			Queue:  queues[selection.GraphicsFamily],
		},
		Present: QueueHandle{
			Role:   QueueRolePresent,
			Family: selection.PresentFamily,
			Queue:  queues[selection.PresentFamily],
		},
		Allocator: allocator,
	}

	b.logger.Debug("Created logical device",
		slog.String("adapter", descriptor.Name()),
		slog.Int("queueFamilies", len(requests)),
		slog.Bool("sharedQueue", context.QueuesShared()),
	)
	return context, nil
}
