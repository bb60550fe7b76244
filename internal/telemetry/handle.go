package telemetry

import (
	"errors"
	"sync"
)

// ErrPoisoned is returned by Handle methods after a writer panicked while
// holding the write lock. The telemetry may be half-updated; readers get
// this error instead of a possibly torn rendering until ClearPoison.
var ErrPoisoned = errors.New("telemetry: lock poisoned by panicking writer")

// Handle shares one Telemetry across the host process behind a
// readers/writer lock. Writers hold the write lock for the whole mutation,
// so every reader sees a fully-formed state.
type Handle struct {
	mu       sync.RWMutex
	t        *Telemetry
	poisoned bool
}

// NewHandle wraps t for sharing.
func NewHandle(t *Telemetry) *Handle {
	return &Handle{t: t}
}

// Snapshot renders the telemetry under a read lock. The lock is held only
// for this call.
func (h *Handle) Snapshot() (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.poisoned {
		return "", ErrPoisoned
	}
	return h.t.Render()
}

// Read runs fn with the read lock held.
func (h *Handle) Read(fn func(*Telemetry) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.poisoned {
		return ErrPoisoned
	}
	return fn(h.t)
}

// Update runs fn with the write lock held. If fn panics the handle is
// poisoned before the lock is released and the panic continues.
func (h *Handle) Update(fn func(*Telemetry) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.poisoned {
		return ErrPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			h.poisoned = true
		}
	}()

	err := fn(h.t)
	completed = true
	return err
}

// Poisoned reports whether a writer panicked since the last ClearPoison.
func (h *Handle) Poisoned() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.poisoned
}

// ClearPoison marks the telemetry as consistent again.
func (h *Handle) ClearPoison() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.poisoned = false
}
