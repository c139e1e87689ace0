package search

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGrabLockExclusivity(t *testing.T) {
	lock := NewGrabLock()

	if !lock.TryAcquire("a") {
		t.Fatal("first acquire should succeed")
	}
	if lock.TryAcquire("a") {
		t.Error("second acquire of held key should fail")
	}
	if !lock.TryAcquire("b") {
		t.Error("different key should be independent")
	}

	lock.Release("a")
	if !lock.TryAcquire("a") {
		t.Error("acquire after release should succeed")
	}
}

func TestGrabLockConcurrent(t *testing.T) {
	lock := NewGrabLock()
	var acquired atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire("item") {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("%d goroutines acquired the lock, want 1", got)
	}
}
