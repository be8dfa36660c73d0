package gpu

//go:generate mockgen -source=platform.go -destination=mocks/platform.go -package=mocks

import "unsafe"

// Loader is the entry point of a platform binding
type Loader interface {
	AvailableLayers() ([]string, error)
	CreateInstance(info InstanceInfo) (Instance, error)
}

type InstanceInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	Extensions []string
	Layers     []string
}

type Instance interface {
	EnumerateAdapters() ([]PhysicalDevice, error)
	// Diagnostics returns the platform's debug reporting channel. The second return
	// value is false when the instance was created without one.
	Diagnostics() (DiagnosticsChannel, bool)
	Destroy()
}

// Surface is a presentation target created by the windowing layer against an Instance
type Surface interface {
	Capabilities(adapter PhysicalDevice) (SurfaceCapabilities, error)
	Formats(adapter PhysicalDevice) ([]SurfaceFormat, error)
	PresentModes(adapter PhysicalDevice) ([]PresentMode, error)
	SupportsPresent(adapter PhysicalDevice, queueFamily int) (bool, error)
	Destroy()
}

type PhysicalDevice interface {
	// QueueFamilies leaves QueueFamily.SupportsPresent unset, present support
	// depends on a Surface
	QueueFamilies() ([]QueueFamily, error)
	Extensions() ([]string, error)
	MemoryLayout() (MemoryLayout, error)
	Properties() (Properties, error)
	Features() (Features, error)
	CreateDevice(info DeviceInfo) (Device, error)
}

type DeviceQueueInfo struct {
	Family     int
	Priorities []float32
}

// DeviceInfo has no layer list. Instance layers apply to every device the
// instance opens.
type DeviceInfo struct {
	Queues     []DeviceQueueInfo
	Features   Features
	Extensions []string
}

type Device interface {
	Queue(family, index int) (Queue, error)
	CreateSemaphore() (Semaphore, error)
	CreateCommandPool(info CommandPoolInfo) (CommandPool, error)
	CreatePipelineCache(initialData []byte) (PipelineCache, error)
	AllocateMemory(size int, memoryTypeIndex int) (DeviceMemory, error)
	WaitIdle() error
	Destroy()
}

type Queue interface {
	Family() int
	Index() int
	WaitIdle() error
}

type Semaphore interface {
	Destroy()
}

type CommandPoolInfo struct {
	Family int
	// Transient hints that command buffers from this pool are short-lived
	Transient bool
	// ResetIndividually allows command buffers to be reset one at a time instead
	// of only through the whole pool
	ResetIndividually bool
}

type CommandPool interface {
	Family() int
	Reset() error
	Destroy()
}

type PipelineCache interface {
	Data() ([]byte, error)
	Destroy()
}

type DeviceMemory interface {
	Size() int
	Map(offset, size int) (unsafe.Pointer, error)
	Unmap()
	Free()
}
