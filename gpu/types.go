package gpu

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/common"
)

// QueueFlags describe the kinds of work a queue family accepts
type QueueFlags uint32

var queueFlagsMapping = common.NewFlagStringMapping[QueueFlags]()

func (f QueueFlags) Register(str string) {
	queueFlagsMapping.Register(f, str)
}
func (f QueueFlags) String() string {
	return queueFlagsMapping.FlagsToString(f)
}

const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

func init() {
	QueueGraphics.Register("Graphics")
	QueueCompute.Register("Compute")
	QueueTransfer.Register("Transfer")
	QueueSparseBinding.Register("SparseBinding")
}

// QueueFamily is one entry of an adapter's queue family list. SupportsPresent is
// evaluated against the surface that was active when the adapter was inventoried.
type QueueFamily struct {
	Flags           QueueFlags
	QueueCount      int
	SupportsPresent bool
}

// Usable reports whether the family exposes at least one queue
func (f QueueFamily) Usable() bool {
	return f.QueueCount > 0
}

type Extent2D struct {
	Width  int
	Height int
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// SurfaceCapabilities are the swapchain limits an adapter reports for a surface.
// MaxImageCount of 0 means there is no upper bound.
type SurfaceCapabilities struct {
	MinImageCount  int
	MaxImageCount  int
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

type SurfaceFormat struct {
	Format     int32
	ColorSpace int32
}

type PresentMode int32

const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFIFO
	PresentModeFIFORelaxed
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "Immediate",
	PresentModeMailbox:     "Mailbox",
	PresentModeFIFO:        "FIFO",
	PresentModeFIFORelaxed: "FIFORelaxed",
}

func (m PresentMode) String() string {
	name, ok := presentModeNames[m]
	if !ok {
		return fmt.Sprintf("PresentMode(%d)", int32(m))
	}
	return name
}

type MemoryPropertyFlags uint32

var memoryPropertyFlagsMapping = common.NewFlagStringMapping[MemoryPropertyFlags]()

func (f MemoryPropertyFlags) Register(str string) {
	memoryPropertyFlagsMapping.Register(f, str)
}
func (f MemoryPropertyFlags) String() string {
	return memoryPropertyFlagsMapping.FlagsToString(f)
}

const (
	MemoryPropertyDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryPropertyHostVisible
	MemoryPropertyHostCoherent
	MemoryPropertyHostCached
	MemoryPropertyLazilyAllocated
	MemoryPropertyProtected
)

func init() {
	MemoryPropertyDeviceLocal.Register("DeviceLocal")
	MemoryPropertyHostVisible.Register("HostVisible")
	MemoryPropertyHostCoherent.Register("HostCoherent")
	MemoryPropertyHostCached.Register("HostCached")
	MemoryPropertyLazilyAllocated.Register("LazilyAllocated")
	MemoryPropertyProtected.Register("Protected")
}

type MemoryHeap struct {
	Size        int
	DeviceLocal bool
}

type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
	HeapIndex     int
}

// MemoryLayout is the heap/type table of an adapter
type MemoryLayout struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// MemoryRequirements mirror what the platform reports for a buffer or image
type MemoryRequirements struct {
	Size           int
	Alignment      int
	MemoryTypeBits uint32
}

type DeviceType int32

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeOther:         "Other",
	DeviceTypeIntegratedGPU: "IntegratedGPU",
	DeviceTypeDiscreteGPU:   "DiscreteGPU",
	DeviceTypeVirtualGPU:    "VirtualGPU",
	DeviceTypeCPU:           "CPU",
}

func (t DeviceType) String() string {
	name, ok := deviceTypeNames[t]
	if !ok {
		return fmt.Sprintf("DeviceType(%d)", int32(t))
	}
	return name
}

// Limits holds the subset of adapter limits this layer consumes
type Limits struct {
	MaxImageDimension2D      int
	MaxImageArrayLayers      int
	MaxMemoryAllocationCount int
	BufferImageGranularity   int
	NonCoherentAtomSize      int
}

type Version struct {
	Major, Minor, Patch uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type Properties struct {
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    Version
	Type          DeviceType
	Name          string
	Limits        Limits
}

// Features is the set of optional device features this layer knows how to request
type Features struct {
	GeometryShader     bool
	TessellationShader bool
	SamplerAnisotropy  bool
	MultiDrawIndirect  bool
	FillModeNonSolid   bool
	WideLines          bool
}

type namedFeature struct {
	name string
	get  func(f Features) bool
}

var featureList = []namedFeature{
	{"geometryShader", func(f Features) bool { return f.GeometryShader }},
	{"tessellationShader", func(f Features) bool { return f.TessellationShader }},
	{"samplerAnisotropy", func(f Features) bool { return f.SamplerAnisotropy }},
	{"multiDrawIndirect", func(f Features) bool { return f.MultiDrawIndirect }},
	{"fillModeNonSolid", func(f Features) bool { return f.FillModeNonSolid }},
	{"wideLines", func(f Features) bool { return f.WideLines }},
}

// Missing returns the names of every feature that is set in required but not in f,
// in a fixed order
func (f Features) Missing(required Features) []string {
	var missing []string
	for _, feature := range featureList {
		if feature.get(required) && !feature.get(f) {
			missing = append(missing, feature.name)
		}
	}
	return missing
}

// Names returns the names of every enabled feature
func (f Features) Names() []string {
	var names []string
	for _, feature := range featureList {
		if feature.get(f) {
			names = append(names, feature.name)
		}
	}
	return names
}
