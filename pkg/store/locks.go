package store

import "sync"

// lockMap serialises writers per backing file. Locks are keyed by path
// and created on first use; records are few and small, so entries are
// never reclaimed.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the lock for path and returns its release func.
func (m *lockMap) lock(path string) func() {
	m.mu.Lock()
	l, ok := m.locks[path]
	if !ok {
		l = &sync.Mutex{}
		m.locks[path] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
