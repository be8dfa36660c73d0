// Package adapter enumerates the platform's physical GPUs and selects the one
// the renderer will open.
package adapter

import (
	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"golang.org/x/exp/slog"
)

// Inventory is the ordered list of adapters the platform reported. It is built
// once and never changes.
type Inventory struct {
	adapters []*Descriptor
}

// NewInventory wraps descriptors that were produced elsewhere, in order
func NewInventory(adapters ...*Descriptor) *Inventory {
	return &Inventory{adapters: adapters}
}

// Enumerate snapshots every adapter the instance exposes, including how each queue
// family relates to surface. A platform with no adapters is ErrHardwareUnavailable.
func Enumerate(logger *slog.Logger, instance gpu.Instance, surface gpu.Surface) (*Inventory, error) {
	logger.Debug("Inventory::Enumerate")

	handles, err := instance.EnumerateAdapters()
	if err != nil {
		return nil, gpu.PlatformAPIFailure(err, "could not enumerate adapters")
	}

	if len(handles) == 0 {
		return nil, gpu.HardwareUnavailable(nil, "the platform reported zero adapters")
	}

	inventory := &Inventory{adapters: make([]*Descriptor, 0, len(handles))}
	for index, handle := range handles {
		descriptor, err := Describe(index, handle, surface)
		if err != nil {
			return nil, err
		}

		logger.Debug("Found adapter",
			slog.Int("index", index),
			slog.String("name", descriptor.Name()),
			slog.String("vendor", gpu.VendorName(descriptor.VendorID())),
			slog.String("type", descriptor.Properties.Type.String()),
			slog.Int("queueFamilies", len(descriptor.QueueFamilies)),
		)
		inventory.adapters = append(inventory.adapters, descriptor)
	}

	return inventory, nil
}

// Describe queries one adapter: queue families, extensions, surface capabilities,
// surface formats, present modes, memory, properties, features, and finally
// present support per queue family.
func Describe(index int, handle gpu.PhysicalDevice, surface gpu.Surface) (*Descriptor, error) {
	descriptor := newDescriptor(index, handle)

	wrap := func(err error, query string) error {
		return errors.WithDetailf(
			gpu.PlatformAPIFailure(err, "could not query adapter "+query),
			"adapter index %d", index,
		)
	}

	var err error
	descriptor.QueueFamilies, err = handle.QueueFamilies()
	if err != nil {
		return nil, wrap(err, "queue families")
	}

	extensions, err := handle.Extensions()
	if err != nil {
		return nil, wrap(err, "extensions")
	}
	descriptor.setExtensions(extensions)

	descriptor.SurfaceCapabilities, err = surface.Capabilities(handle)
	if err != nil {
		return nil, wrap(err, "surface capabilities")
	}

	descriptor.SurfaceFormats, err = surface.Formats(handle)
	if err != nil {
		return nil, wrap(err, "surface formats")
	}

	descriptor.PresentModes, err = surface.PresentModes(handle)
	if err != nil {
		return nil, wrap(err, "present modes")
	}

	descriptor.Memory, err = handle.MemoryLayout()
	if err != nil {
		return nil, wrap(err, "memory properties")
	}

	descriptor.Properties, err = handle.Properties()
	if err != nil {
		return nil, wrap(err, "properties")
	}

	descriptor.Features, err = handle.Features()
	if err != nil {
		return nil, wrap(err, "features")
	}

	for family := range descriptor.QueueFamilies {
		supported, err := surface.SupportsPresent(handle, family)
		if err != nil {
			return nil, wrap(err, "present support")
		}
		descriptor.QueueFamilies[family].SupportsPresent = supported
	}

	return descriptor, nil
}

func (i *Inventory) Len() int {
	return len(i.adapters)
}

func (i *Inventory) At(index int) *Descriptor {
	return i.adapters[index]
}

// Adapters returns the descriptors in enumeration order
func (i *Inventory) Adapters() []*Descriptor {
	return append([]*Descriptor(nil), i.adapters...)
}
