package lifecycle

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
)

// FrameSync is the semaphore pair for one frame slot
type FrameSync struct {
	ImageAvailable gpu.Semaphore
	RenderFinished gpu.Semaphore
}

// FrameSyncSet holds one FrameSync per frame in flight. The caller must not reuse
// a slot until the frame that last used it has retired. Len never changes, even
// after the owner tears the set down.
type FrameSyncSet struct {
	slots     []FrameSync
	destroyed atomic.Bool
}

func (s *FrameSyncSet) Len() int {
	return len(s.slots)
}

// Slot returns the pair for frame, wrapping by the set length. It fails with
// ErrTornDown once the semaphores are gone.
func (s *FrameSyncSet) Slot(frame int) (FrameSync, error) {
	if s.destroyed.Load() {
		return FrameSync{}, ErrTornDown
	}

	index := frame % len(s.slots)
	if index < 0 {
		index += len(s.slots)
	}
	return s.slots[index], nil
}

func (s *FrameSyncSet) destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	for _, slot := range s.slots {
		slot.ImageAvailable.Destroy()
		slot.RenderFinished.Destroy()
	}
}

// CreateSyncObjects creates frameCount semaphore pairs. If any creation fails, the
// semaphores already created are destroyed before returning.
func (o *Owner) CreateSyncObjects(frameCount int) (*FrameSyncSet, error) {
	o.logger.Debug("Owner::CreateSyncObjects")

	if frameCount < 1 {
		return nil, gpu.InvalidConfiguration(errors.Newf("frame count must be at least 1, got %d", frameCount), "could not create sync objects")
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	device, err := o.liveDevice()
	if err != nil {
		return nil, err
	}

	set := &FrameSyncSet{slots: make([]FrameSync, 0, frameCount)}
	var created []gpu.Semaphore
	for frame := 0; frame < frameCount; frame++ {
		var pair [2]gpu.Semaphore
		for i := range pair {
			pair[i], err = device.CreateSemaphore()
			if err != nil {
				for _, semaphore := range created {
					semaphore.Destroy()
				}
				return nil, gpu.PlatformAPIFailure(errors.WithDetailf(err, "frame slot %d", frame), "could not create semaphore")
			}
			created = append(created, pair[i])
		}

		set.slots = append(set.slots, FrameSync{
			ImageAvailable: pair[0],
			RenderFinished: pair[1],
		})
	}

	o.syncSets = append(o.syncSets, set)
	return set, nil
}
