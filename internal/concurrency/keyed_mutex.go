// Package concurrency holds synchronization helpers shared by the campaign
// lifecycle manager.
package concurrency

import "sync"

// KeyedMutex provides an independent mutex per key. Operations on different
// keys proceed in parallel. Entries are reference counted and dropped once
// no goroutine holds or waits for them.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu       sync.Mutex
	refCount int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: make(map[K]*entry)}
}

// Len returns the number of keys currently held or waited on.
func (km *KeyedMutex[K]) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}

// Lock acquires the lock for key.
func (km *KeyedMutex[K]) Lock(key K) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &entry{}
		km.locks[key] = e
	}
	e.refCount++
	km.mu.Unlock()

	e.mu.Lock()
}

// TryLock acquires the lock for key without waiting. On success the caller
// must call Unlock; on failure it must not.
func (km *KeyedMutex[K]) TryLock(key K) bool {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.locks[key]
	if !ok {
		e = &entry{refCount: 1}
		e.mu.Lock()
		km.locks[key] = e
		return true
	}

	if e.mu.TryLock() {
		e.refCount++
		return true
	}
	return false
}

// Unlock releases the lock for key. Unlocking a key that is not locked panics.
func (km *KeyedMutex[K]) Unlock(key K) {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.locks[key]
	if !ok {
		panic("concurrency: unlock of unlocked KeyedMutex key")
	}

	e.mu.Unlock()

	e.refCount--
	if e.refCount <= 0 {
		delete(km.locks, key)
	}
}

// WithLock runs fn while holding the lock for key.
func (km *KeyedMutex[K]) WithLock(key K, fn func() error) error {
	km.Lock(key)
	defer km.Unlock(key)
	return fn()
}
