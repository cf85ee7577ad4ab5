package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is the control channel between the manager and one execution unit.
// All methods are safe for concurrent use and never block.
type Handle struct {
	id       uuid.UUID
	ctx      context.Context
	cancel   context.CancelFunc
	paused   atomic.Bool
	stopping atomic.Bool

	// wake is nudged on every signal change so an idle unit reacts at once
	wake chan struct{}

	// done is closed when the unit has exited and released its entry
	done chan struct{}
}

func newHandle(parent context.Context, id uuid.UUID, paused bool) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.paused.Store(paused)
	return h
}

// ID returns the task id the handle controls.
func (h *Handle) ID() uuid.UUID { return h.id }

// Pause asks the unit to stop delivering until resumed.
func (h *Handle) Pause() {
	h.paused.Store(true)
	h.notify()
}

// Resume clears a pause.
func (h *Handle) Resume() {
	h.paused.Store(false)
	h.notify()
}

// Stop asks the unit to exit. In-flight deliveries see their context canceled.
func (h *Handle) Stop() {
	h.stopping.Store(true)
	h.cancel()
	h.notify()
}

// Paused reports whether the pause signal is set.
func (h *Handle) Paused() bool { return h.paused.Load() }

// Stopped reports whether the unit has been told to exit, either by Stop or
// by manager shutdown.
func (h *Handle) Stopped() bool { return h.ctx.Err() != nil }

// Done is closed once the unit has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Registry maps task ids to the handles of their live execution units.
// It holds at most one handle per id.
type Registry struct {
	mu      sync.RWMutex
	handles map[uuid.UUID]*Handle
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[uuid.UUID]*Handle)}
}

// Register adds h under id. It fails with ErrAlreadyRunning if any handle,
// including one that is still shutting down, is registered for id.
func (r *Registry) Register(id uuid.UUID, h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	}
	r.handles[id] = h
	return nil
}

// Lookup returns the live handle for id. Handles that have been told to
// stop are reported as absent.
func (r *Registry) Lookup(id uuid.UUID) (*Handle, bool) {
	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()

	if !ok || h.stopping.Load() {
		return nil, false
	}
	return h, true
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// SignalPause pauses the live unit for id.
func (r *Registry) SignalPause(id uuid.UUID) error {
	return r.signal(id, (*Handle).Pause)
}

// SignalResume resumes the live unit for id.
func (r *Registry) SignalResume(id uuid.UUID) error {
	return r.signal(id, (*Handle).Resume)
}

// SignalStop stops the live unit for id.
func (r *Registry) SignalStop(id uuid.UUID) error {
	return r.signal(id, (*Handle).Stop)
}

// Len returns the number of registered handles, including stopping ones.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

func (r *Registry) signal(id uuid.UUID, fn func(*Handle)) error {
	h, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	fn(h)
	return nil
}

// registered reports whether any handle, stopping or not, exists for id.
func (r *Registry) registered(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[id]
	return ok
}

// release removes id only if it still maps to h, so a unit never removes a
// successor's entry.
func (r *Registry) release(id uuid.UUID, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[id] == h {
		delete(r.handles, id)
	}
}
