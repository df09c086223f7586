// Package pathlock provides in-process mutual exclusion keyed by filesystem
// path. A given path is never concurrently read and written; distinct paths
// do not contend with each other.
package pathlock

import "sync"

// Map is a set of exclusive locks keyed by string. The zero value is not
// usable; construct with New.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu sync.Mutex
	// holders counts the current holder plus queued waiters. The entry is
	// removed from the map when it reaches zero so the map does not grow
	// with every path ever touched.
	holders int
}

// New returns an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock acquires the exclusive lock for key, blocking until it is available.
// Waiters for the same key are served in queue order.
func (m *Map) Lock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.holders++
	m.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. Unlocking a key that is not held is a
// programming error and panics, same as sync.Mutex.
func (m *Map) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("pathlock: unlock of unheld key " + key)
	}
	e.holders--
	if e.holders == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}

// With runs fn while holding the lock for key.
func (m *Map) With(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}
