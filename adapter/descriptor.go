package adapter

import (
	"github.com/coler706/nova-renderer/gpu"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// Descriptor is an immutable snapshot of one physical adapter, taken once during
// enumeration. Callers must treat every field as read-only.
type Descriptor struct {
	// Index is the adapter's position in platform enumeration order
	Index  int
	Handle gpu.PhysicalDevice

	QueueFamilies []gpu.QueueFamily
	// Extensions is sorted by name
	Extensions []string

	SurfaceCapabilities gpu.SurfaceCapabilities
	SurfaceFormats      []gpu.SurfaceFormat
	PresentModes        []gpu.PresentMode

	Memory     gpu.MemoryLayout
	Properties gpu.Properties
	Features   gpu.Features

	extensionSet *swiss.Map[string, struct{}]
}

func newDescriptor(index int, handle gpu.PhysicalDevice) *Descriptor {
	return &Descriptor{
		Index:  index,
		Handle: handle,
	}
}

func (d *Descriptor) setExtensions(names []string) {
	d.Extensions = slices.Clone(names)
	slices.Sort(d.Extensions)
	d.Extensions = slices.Compact(d.Extensions)

	d.extensionSet = swiss.NewMap[string, struct{}](uint32(len(d.Extensions)))
	for _, name := range d.Extensions {
		d.extensionSet.Put(name, struct{}{})
	}
}

func (d *Descriptor) Name() string {
	return d.Properties.Name
}

func (d *Descriptor) VendorID() uint32 {
	return d.Properties.VendorID
}

// IsIntegratedClass reports whether the adapter belongs to the low-power class that
// is skipped when an alternative exists. The classification is by vendor: Intel
// parts are treated as integrated regardless of the reported device type.
func (d *Descriptor) IsIntegratedClass() bool {
	return d.Properties.VendorID == gpu.VendorIntel
}

func (d *Descriptor) HasExtension(name string) bool {
	if d.extensionSet == nil {
		return false
	}
	return d.extensionSet.Has(name)
}

// DeviceLocalBytes sums the size of every device-local heap
func (d *Descriptor) DeviceLocalBytes() int {
	total := 0
	for _, heap := range d.Memory.Heaps {
		if heap.DeviceLocal {
			total += heap.Size
		}
	}
	return total
}

func firstFamily(families []gpu.QueueFamily, accept func(family gpu.QueueFamily) bool) int {
	for index, family := range families {
		if family.Usable() && accept(family) {
			return index
		}
	}
	return -1
}

// GraphicsFamily returns the first usable family with graphics support, or -1
func (d *Descriptor) GraphicsFamily() int {
	return firstFamily(d.QueueFamilies, func(family gpu.QueueFamily) bool {
		return family.Flags&gpu.QueueGraphics != 0
	})
}

// PresentFamily returns the first usable family that can present to the inventoried surface, or -1
func (d *Descriptor) PresentFamily() int {
	return firstFamily(d.QueueFamilies, func(family gpu.QueueFamily) bool {
		return family.SupportsPresent
	})
}
