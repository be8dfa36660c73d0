// Package render brings up the GPU context: instance, diagnostics, surface,
// adapter selection, logical device and the per-frame resources built on it.
package render

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/config"
	"github.com/coler706/nova-renderer/device"
	"github.com/coler706/nova-renderer/diag"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/coler706/nova-renderer/lifecycle"
	"github.com/coler706/nova-renderer/memory"
	"golang.org/x/exp/slog"
)

// Window is the windowing layer the context presents to
type Window interface {
	// RequiredExtensions lists the instance extensions the window system needs
	RequiredExtensions() ([]string, error)
	CreateSurface(instance gpu.Instance) (gpu.Surface, error)
}

// Resources are handed to pipeline and frame code. They stay valid until the
// context is destroyed, and only the context destroys them.
type Resources struct {
	Device        *device.Context
	FrameSync     *lifecycle.FrameSyncSet
	Commands      *lifecycle.CommandInfrastructure
	PipelineCache *lifecycle.PipelineCache
}

type Context struct {
	logger *slog.Logger
	owner  *lifecycle.Owner

	inventory *adapter.Inventory
	selection adapter.Selection
	resources Resources

	mutex  sync.Mutex
	closed bool
}

// New brings up a context. Any failure tears down what was already created and
// returns one of the gpu fatal error classes. Diagnostics follow diag.Enabled.
func New(logger *slog.Logger, loader gpu.Loader, window Window, settings *config.Settings) (*Context, error) {
	return newContext(logger, loader, window, settings, diag.Enabled)
}

func newContext(logger *slog.Logger, loader gpu.Loader, window Window, settings *config.Settings, debug bool) (*Context, error) {
	logger.Debug("Context::New")

	if settings == nil {
		defaults := config.Default()
		settings = &defaults
	}
	err := settings.Validate()
	if err != nil {
		return nil, gpu.InvalidConfiguration(err, "invalid render settings")
	}

	extensions, err := window.RequiredExtensions()
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not query window system extensions")
	}
	extensions = append(extensions, diag.InstanceExtensions(debug)...)

	layers := diag.Layers(debug, settings.ValidationLayers)
	err = checkLayers(logger, loader, layers)
	if err != nil {
		return nil, err
	}

	instance, err := loader.CreateInstance(gpu.InstanceInfo{
		ApplicationName:    settings.Application.Name,
		ApplicationVersion: settings.Application.Version,
		EngineName:         settings.Engine.Name,
		EngineVersion:      settings.Engine.Version,
		APIVersion:         gpu.Version{Major: 1},
		Extensions:         extensions,
		Layers:             layers,
	})
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not create instance")
	}

	c := &Context{
		logger: logger,
		owner:  lifecycle.NewOwner(logger, instance),
	}

	err = c.build(window, instance, settings, debug)
	if err != nil {
		teardownErr := c.owner.Teardown()
		if teardownErr != nil {
			logger.Warn("Teardown after failed bring-up reported errors", slog.Any("error", teardownErr))
		}
		return nil, err
	}

	return c, nil
}

func checkLayers(logger *slog.Logger, loader gpu.Loader, layers []string) error {
	if len(layers) == 0 {
		return nil
	}

	available, err := loader.AvailableLayers()
	if err != nil {
		return gpu.PlatformAPIFailure(err, "could not enumerate instance layers")
	}

	missing := diag.MissingLayers(layers, available)
	if len(missing) == 0 {
		return nil
	}

	err = gpu.CapabilityMissing(nil, "requested diagnostic layers are not available")
	for _, layer := range missing {
		logger.Error("Diagnostic layer not available", slog.String("layer", layer))
		err = errors.WithDetailf(err, "layer %s", layer)
	}
	return err
}

func (c *Context) build(window Window, instance gpu.Instance, settings *config.Settings, debug bool) error {
	bridge, err := diag.Attach(c.logger, instance, debug)
	if err != nil {
		return err
	}
	c.owner.AdoptDiagnostics(bridge)

	surface, err := window.CreateSurface(instance)
	if err != nil {
		return gpu.PlatformAPIFailure(err, "could not create window surface")
	}
	c.owner.AdoptSurface(surface)

	c.inventory, err = adapter.Enumerate(c.logger, instance, surface)
	if err != nil {
		return err
	}

	c.selection, err = adapter.Select(c.logger, c.inventory)
	if err != nil {
		return err
	}

	builder := device.NewBuilder(c.logger, device.BuilderOptions{
		Allocator: memory.CreateOptions{
			HeapSizeLimits: settings.Memory.HeapSizeLimits,
		},
	})
	deviceContext, err := builder.Build(c.selection)
	if err != nil {
		return err
	}
	c.owner.AdoptDevice(deviceContext)
	c.resources.Device = deviceContext

	c.logDeviceLimits(deviceContext.Adapter.Properties)

	c.resources.FrameSync, err = c.owner.CreateSyncObjects(settings.FramesInFlight)
	if err != nil {
		return err
	}

	c.resources.Commands, err = c.owner.CreateCommandInfrastructure(c.selection.GraphicsFamily, settings.Workers())
	if err != nil {
		return err
	}

	c.resources.PipelineCache, err = c.owner.CreatePipelineCache(nil)
	return err
}

func (c *Context) logDeviceLimits(properties gpu.Properties) {
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "Device limits",
		slog.String("apiVersion", properties.APIVersion.String()),
		slog.Int("maxImageDimension2D", properties.Limits.MaxImageDimension2D),
		slog.Int("maxImageArrayLayers", properties.Limits.MaxImageArrayLayers),
		slog.Int("maxMemoryAllocationCount", properties.Limits.MaxMemoryAllocationCount),
		slog.Int("bufferImageGranularity", properties.Limits.BufferImageGranularity),
		slog.Int("nonCoherentAtomSize", properties.Limits.NonCoherentAtomSize),
	)
}

// Resources returns the live resources, or gpu.ErrContextClosed after Destroy
func (c *Context) Resources() (Resources, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return Resources{}, gpu.ErrContextClosed
	}
	return c.resources, nil
}

func (c *Context) Inventory() *adapter.Inventory {
	return c.inventory
}

func (c *Context) Selection() adapter.Selection {
	return c.selection
}

// Destroy tears the context down. Later calls do nothing and return nil.
func (c *Context) Destroy() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debug("Context::Destroy")

	c.resources = Resources{}
	return c.owner.Teardown()
}
