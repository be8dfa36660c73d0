package memory

import "sync"

// optionalRWMutex only locks when the allocator was not created externally synchronized
type optionalRWMutex struct {
	mutex    sync.RWMutex
	useMutex bool
}

func (m *optionalRWMutex) Lock() {
	if m.useMutex {
		m.mutex.Lock()
	}
}

func (m *optionalRWMutex) Unlock() {
	if m.useMutex {
		m.mutex.Unlock()
	}
}

func (m *optionalRWMutex) RLock() {
	if m.useMutex {
		m.mutex.RLock()
	}
}

func (m *optionalRWMutex) RUnlock() {
	if m.useMutex {
		m.mutex.RUnlock()
	}
}
