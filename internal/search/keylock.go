package search

import "sync"

// GrabLock provides per-media grab locking to prevent race conditions
// between scheduled and manual searches attempting to grab for the same
// item at once.
type GrabLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewGrabLock creates a new GrabLock.
func NewGrabLock() *GrabLock {
	return &GrabLock{
		locks: make(map[string]struct{}),
	}
}

// TryAcquire attempts to acquire a lock for the given key.
// Returns true if the lock was acquired, false if already held.
func (g *GrabLock) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.locks[key]; held {
		return false
	}
	g.locks[key] = struct{}{}
	return true
}

// Release releases the lock for the given key.
func (g *GrabLock) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, key)
}
