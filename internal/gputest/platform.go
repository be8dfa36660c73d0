// Package gputest is a scriptable in-memory implementation of the gpu platform
// interfaces. Every object creation and destruction is appended to an ordered
// event log so tests can assert on lifetimes.
package gputest

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
)

// AdapterSetup describes one fake physical device. QueueFamilies[i].SupportsPresent
// is what the fake surface answers for family i.
type AdapterSetup struct {
	Name          string
	VendorID      uint32
	Type          gpu.DeviceType
	QueueFamilies []gpu.QueueFamily
	Extensions    []string
	Capabilities  gpu.SurfaceCapabilities
	Formats       []gpu.SurfaceFormat
	PresentModes  []gpu.PresentMode
	Memory        gpu.MemoryLayout
	Features      gpu.Features
	Limits        gpu.Limits
}

// Failures injects platform errors. Counted failures trigger on the Nth call, 1-based.
type Failures struct {
	CreateInstance      error
	EnumerateAdapters   error
	CreateSurface       error
	QueueFamilies       error
	CreateDevice        error
	RegisterDiagnostics error
	CreateSemaphoreAt   int
	CreateCommandPoolAt int
	CreatePipelineCache error
	AllocateMemory      error
	DeviceWaitIdle      error
}

type Setup struct {
	Adapters      []AdapterSetup
	Layers        []string
	NoDiagnostics bool
	Failures      Failures
}

// Platform implements gpu.Loader
type Platform struct {
	setup Setup

	mutex  sync.Mutex
	events []string

	instance *Instance
	surface  *Surface
	device   *Device
	channel  *DiagnosticsChannel
}

var _ gpu.Loader = &Platform{}

func NewPlatform(setup Setup) *Platform {
	return &Platform{setup: setup}
}

func (p *Platform) record(format string, args ...any) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.events = append(p.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the event log
func (p *Platform) Events() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]string(nil), p.events...)
}

// IndexOf returns the position of the first event starting with prefix, or -1
func (p *Platform) IndexOf(prefix string) int {
	for i, event := range p.Events() {
		if strings.HasPrefix(event, prefix) {
			return i
		}
	}
	return -1
}

// LastIndexOf returns the position of the last event starting with prefix, or -1
func (p *Platform) LastIndexOf(prefix string) int {
	events := p.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if strings.HasPrefix(events[i], prefix) {
			return i
		}
	}
	return -1
}

// Count returns the number of events starting with prefix
func (p *Platform) Count(prefix string) int {
	count := 0
	for _, event := range p.Events() {
		if strings.HasPrefix(event, prefix) {
			count++
		}
	}
	return count
}

// Live returns the number of objects of kind that were created and not yet destroyed
func (p *Platform) Live(kind string) int {
	return p.Count(kind+".create") - p.Count(kind+".destroy")
}

func (p *Platform) Instance() *Instance { return p.instance }
func (p *Platform) Surface() *Surface   { return p.surface }
func (p *Platform) Device() *Device     { return p.device }

// Diagnostics returns the channel handed out by the instance, once one has been registered against
func (p *Platform) Diagnostics() *DiagnosticsChannel { return p.channel }

func (p *Platform) AvailableLayers() ([]string, error) {
	return append([]string(nil), p.setup.Layers...), nil
}

func (p *Platform) CreateInstance(info gpu.InstanceInfo) (gpu.Instance, error) {
	if p.setup.Failures.CreateInstance != nil {
		return nil, p.setup.Failures.CreateInstance
	}

	p.record("instance.create")
	p.instance = &Instance{platform: p, Info: info}
	return p.instance, nil
}

type Instance struct {
	platform *Platform
	Info     gpu.InstanceInfo
}

func (i *Instance) EnumerateAdapters() ([]gpu.PhysicalDevice, error) {
	if i.platform.setup.Failures.EnumerateAdapters != nil {
		return nil, i.platform.setup.Failures.EnumerateAdapters
	}

	adapters := make([]gpu.PhysicalDevice, 0, len(i.platform.setup.Adapters))
	for index := range i.platform.setup.Adapters {
		adapters = append(adapters, &Adapter{platform: i.platform, Setup: i.platform.setup.Adapters[index]})
	}
	return adapters, nil
}

func (i *Instance) Diagnostics() (gpu.DiagnosticsChannel, bool) {
	if i.platform.setup.NoDiagnostics {
		return nil, false
	}

	if i.platform.channel == nil {
		i.platform.channel = &DiagnosticsChannel{platform: i.platform}
	}
	return i.platform.channel, true
}

func (i *Instance) Destroy() {
	i.platform.record("instance.destroy")
}

// CreateSurface builds a surface the way a windowing layer would
func (p *Platform) CreateSurface(instance gpu.Instance) (gpu.Surface, error) {
	if p.setup.Failures.CreateSurface != nil {
		return nil, p.setup.Failures.CreateSurface
	}
	if instance == nil {
		return nil, errors.New("no instance")
	}

	p.record("surface.create")
	p.surface = &Surface{platform: p}
	return p.surface, nil
}

type Surface struct {
	platform *Platform
}

func adapterSetup(adapter gpu.PhysicalDevice) (AdapterSetup, error) {
	fake, ok := adapter.(*Adapter)
	if !ok {
		return AdapterSetup{}, errors.Newf("unexpected adapter type %T", adapter)
	}
	return fake.Setup, nil
}

func (s *Surface) Capabilities(adapter gpu.PhysicalDevice) (gpu.SurfaceCapabilities, error) {
	setup, err := adapterSetup(adapter)
	return setup.Capabilities, err
}

func (s *Surface) Formats(adapter gpu.PhysicalDevice) ([]gpu.SurfaceFormat, error) {
	setup, err := adapterSetup(adapter)
	return setup.Formats, err
}

func (s *Surface) PresentModes(adapter gpu.PhysicalDevice) ([]gpu.PresentMode, error) {
	setup, err := adapterSetup(adapter)
	return setup.PresentModes, err
}

func (s *Surface) SupportsPresent(adapter gpu.PhysicalDevice, queueFamily int) (bool, error) {
	setup, err := adapterSetup(adapter)
	if err != nil {
		return false, err
	}
	if queueFamily < 0 || queueFamily >= len(setup.QueueFamilies) {
		return false, errors.Newf("queue family %d out of range", queueFamily)
	}
	return setup.QueueFamilies[queueFamily].SupportsPresent, nil
}

func (s *Surface) Destroy() {
	s.platform.record("surface.destroy")
}

type Adapter struct {
	platform *Platform
	Setup    AdapterSetup
}

func (a *Adapter) QueueFamilies() ([]gpu.QueueFamily, error) {
	if a.platform.setup.Failures.QueueFamilies != nil {
		return nil, a.platform.setup.Failures.QueueFamilies
	}

	families := make([]gpu.QueueFamily, len(a.Setup.QueueFamilies))
	for i, family := range a.Setup.QueueFamilies {
		families[i] = gpu.QueueFamily{Flags: family.Flags, QueueCount: family.QueueCount}
	}
	return families, nil
}

func (a *Adapter) Extensions() ([]string, error) {
	return append([]string(nil), a.Setup.Extensions...), nil
}

func (a *Adapter) MemoryLayout() (gpu.MemoryLayout, error) {
	return a.Setup.Memory, nil
}

func (a *Adapter) Properties() (gpu.Properties, error) {
	return gpu.Properties{
		VendorID:   a.Setup.VendorID,
		DeviceID:   0x1000,
		APIVersion: gpu.Version{Major: 1, Minor: 3},
		Type:       a.Setup.Type,
		Name:       a.Setup.Name,
		Limits:     a.Setup.Limits,
	}, nil
}

func (a *Adapter) Features() (gpu.Features, error) {
	return a.Setup.Features, nil
}

func (a *Adapter) CreateDevice(info gpu.DeviceInfo) (gpu.Device, error) {
	if a.platform.setup.Failures.CreateDevice != nil {
		return nil, a.platform.setup.Failures.CreateDevice
	}

	a.platform.record("device.create %s", a.Setup.Name)
	a.platform.device = &Device{
		platform: a.platform,
		Adapter:  a,
		Info:     info,
		queues:   map[[2]int]*Queue{},
	}
	return a.platform.device, nil
}

type Device struct {
	platform *Platform
	Adapter  *Adapter
	Info     gpu.DeviceInfo

	queues     map[[2]int]*Queue
	semaphores int
	pools      int
}

func (d *Device) Queue(family, index int) (gpu.Queue, error) {
	requested := false
	for _, queueInfo := range d.Info.Queues {
		if queueInfo.Family == family && index < len(queueInfo.Priorities) {
			requested = true
		}
	}
	if !requested {
		return nil, errors.Newf("queue %d of family %d was not requested at device creation", index, family)
	}

	key := [2]int{family, index}
	queue, ok := d.queues[key]
	if !ok {
		queue = &Queue{family: family, index: index}
		d.queues[key] = queue
	}
	return queue, nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	d.semaphores++
	if d.semaphores == d.platform.setup.Failures.CreateSemaphoreAt {
		return nil, errors.New("semaphore creation rejected")
	}

	d.platform.record("semaphore.create %d", d.semaphores)
	return &Semaphore{platform: d.platform, id: d.semaphores}, nil
}

func (d *Device) CreateCommandPool(info gpu.CommandPoolInfo) (gpu.CommandPool, error) {
	d.pools++
	if d.pools == d.platform.setup.Failures.CreateCommandPoolAt {
		return nil, errors.New("command pool creation rejected")
	}

	d.platform.record("commandpool.create %d family=%d", d.pools, info.Family)
	return &CommandPool{platform: d.platform, id: d.pools, Info: info}, nil
}

func (d *Device) CreatePipelineCache(initialData []byte) (gpu.PipelineCache, error) {
	if d.platform.setup.Failures.CreatePipelineCache != nil {
		return nil, d.platform.setup.Failures.CreatePipelineCache
	}

	d.platform.record("pipelinecache.create")
	return &PipelineCache{platform: d.platform, data: append([]byte(nil), initialData...)}, nil
}

func (d *Device) AllocateMemory(size int, memoryTypeIndex int) (gpu.DeviceMemory, error) {
	if d.platform.setup.Failures.AllocateMemory != nil {
		return nil, d.platform.setup.Failures.AllocateMemory
	}

	d.platform.record("memory.create type=%d size=%d", memoryTypeIndex, size)
	return &DeviceMemory{platform: d.platform, data: make([]byte, size), TypeIndex: memoryTypeIndex}, nil
}

func (d *Device) WaitIdle() error {
	d.platform.record("device.waitidle")
	return d.platform.setup.Failures.DeviceWaitIdle
}

func (d *Device) Destroy() {
	d.platform.record("device.destroy")
}

type Queue struct {
	family int
	index  int
}

func (q *Queue) Family() int     { return q.family }
func (q *Queue) Index() int      { return q.index }
func (q *Queue) WaitIdle() error { return nil }

type Semaphore struct {
	platform *Platform
	id       int
}

func (s *Semaphore) Destroy() {
	s.platform.record("semaphore.destroy %d", s.id)
}

type CommandPool struct {
	platform *Platform
	id       int
	Info     gpu.CommandPoolInfo
}

func (p *CommandPool) Family() int  { return p.Info.Family }
func (p *CommandPool) Reset() error { return nil }
func (p *CommandPool) Destroy() {
	p.platform.record("commandpool.destroy %d", p.id)
}

type PipelineCache struct {
	platform *Platform
	data     []byte
}

func (c *PipelineCache) Data() ([]byte, error) {
	return append([]byte(nil), c.data...), nil
}

func (c *PipelineCache) Destroy() {
	c.platform.record("pipelinecache.destroy")
}

type DeviceMemory struct {
	platform  *Platform
	data      []byte
	mapped    bool
	TypeIndex int
}

func (m *DeviceMemory) Size() int { return len(m.data) }

func (m *DeviceMemory) Map(offset, size int) (unsafe.Pointer, error) {
	if m.mapped {
		return nil, errors.New("memory is already mapped")
	}
	if offset < 0 || offset >= len(m.data) {
		return nil, errors.Newf("map offset %d out of range", offset)
	}
	m.mapped = true
	return unsafe.Pointer(&m.data[offset]), nil
}

func (m *DeviceMemory) Unmap() {
	m.mapped = false
}

func (m *DeviceMemory) Mapped() bool { return m.mapped }

func (m *DeviceMemory) Free() {
	m.platform.record("memory.destroy type=%d size=%d", m.TypeIndex, len(m.data))
}

// DiagnosticsChannel stores the registered callback so tests can emit messages through it
type DiagnosticsChannel struct {
	platform *Platform
	Filter   gpu.DiagnosticFilter
	callback gpu.DiagnosticCallback
}

func (c *DiagnosticsChannel) Register(filter gpu.DiagnosticFilter, callback gpu.DiagnosticCallback) (gpu.Messenger, error) {
	if c.platform.setup.Failures.RegisterDiagnostics != nil {
		return nil, c.platform.setup.Failures.RegisterDiagnostics
	}

	c.platform.record("messenger.create")
	c.Filter = filter
	c.callback = callback
	return &Messenger{channel: c}, nil
}

// Emit delivers msg to the registered callback, if any
func (c *DiagnosticsChannel) Emit(msg gpu.DiagnosticMessage) {
	if c.callback != nil {
		c.callback(msg)
	}
}

type Messenger struct {
	channel *DiagnosticsChannel
}

func (m *Messenger) Destroy() {
	m.channel.callback = nil
	m.channel.platform.record("messenger.destroy")
}

// Window is a stand-in for the windowing layer
type Window struct {
	Platform   *Platform
	Extensions []string
}

func (w *Window) RequiredExtensions() ([]string, error) {
	return append([]string(nil), w.Extensions...), nil
}

func (w *Window) CreateSurface(instance gpu.Instance) (gpu.Surface, error) {
	return w.Platform.CreateSurface(instance)
}
