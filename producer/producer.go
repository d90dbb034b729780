// Package producer implements the per-goroutine front-end state (spec C5):
// it owns a current buffer, exchanges it with the backend writer when full,
// and goes inert when the writer has no free buffers to hand back.
//
// Go has no thread-local storage; callers are expected to create one State
// per producer goroutine and hold onto it for that goroutine's lifetime
// (caelanlog.Producer() returns a new State on every call; the caller keeps
// it). This is the documented Go-idiomatic
// replacement for the spec's "thread-local producer state" (spec.md §9).
package producer

import (
	"runtime"

	"github.com/caelan-systems/caelanlog/backend"
	"github.com/caelan-systems/caelanlog/buffer"
)

// State is one producer's view of the exchange: a non-owning reference to
// the backend.Writer and a handle to the buffer it currently owns.
type State struct {
	w       *backend.Writer
	current *backend.Handle
}

// New creates a producer State bound to w, eagerly acquiring a buffer. If
// the writer has none available the State starts inert — all writes through
// it are silent no-ops until a later Handoff succeeds. A nil w (e.g. the
// root writer failed to construct) yields a permanently inert State.
func New(w *backend.Writer) *State {
	s := &State{w: w}
	if w != nil {
		s.current = w.Acquire()
	}
	// Best-effort analogue of "destruction releases the current buffer back
	// to the heap (not the free queue)": nothing to do here — Go's GC
	// reclaims s.current's buffer normally once s is unreachable. The
	// cleanup only exists to make that accepted behavior observable in
	// tests, never to recycle the buffer into the writer's free queue (the
	// writer may already be torn down by the time this runs).
	runtime.AddCleanup(s, func(heldBuffer bool) {
		if debugLeakHook != nil && heldBuffer {
			debugLeakHook()
		}
	}, s.current != nil)
	return s
}

// debugLeakHook, when non-nil, is invoked from a finalizer when a State that
// acquired a buffer in New is collected. Whether it holds one at collection
// time is not checked. Only tests set this.
var debugLeakHook func()

// Current returns the buffer this producer currently owns, or nil if the
// producer is inert.
func (s *State) Current() *buffer.Buffer {
	return s.current.Buffer()
}

// Handoff exchanges the current (expected full) buffer for a fresh one. If
// the writer's free_available hint is false, Handoff returns immediately
// without taking the lock — the writer is known to be behind, so the
// producer keeps filling its current buffer rather than stall on the
// exchange (spec.md §4.4).
func (s *State) Handoff() {
	if s.w == nil || !s.w.FreeAvailable() {
		if s.w != nil {
			s.w.RecordSkippedHandoff()
		}
		return
	}
	s.current = s.w.SubmitAndAcquire(s.current)
}
