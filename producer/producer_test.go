package producer

import (
	"runtime"
	"testing"
	"time"

	"github.com/caelan-systems/caelanlog/backend"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T, cfg backend.Config) *backend.Writer {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	w, err := backend.New(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewAcquiresABuffer(t *testing.T) {
	w := newWriter(t, backend.Config{QueueCap: 4, BufSize: 64})
	p := New(w)
	require.NotNil(t, p.Current())
}

func TestHandoffReplacesCurrentBuffer(t *testing.T) {
	w := newWriter(t, backend.Config{QueueCap: 4, BufSize: 64})
	p := New(w)

	p.Current().Append([]byte("hello"))
	p.Handoff()

	require.NotNil(t, p.Current())
	require.Equal(t, 0, p.Current().Size())
}

func TestHandoffSkippedWhenFreeUnavailable(t *testing.T) {
	w := newWriter(t, backend.Config{QueueCap: 1, BufSize: 64})
	p := New(w) // drains the sole free buffer

	p.Current().Append([]byte("x"))
	before := p.Current()
	p.Handoff() // free_available hint is false; skip, retain same buffer
	require.Same(t, before, p.Current())
}

func TestInertProducerWritesAreNoop(t *testing.T) {
	w := newWriter(t, backend.Config{QueueCap: 1, BufSize: 64})
	first := New(w)  // takes the sole free buffer
	second := New(w) // free queue is empty; inert

	require.NotNil(t, first.Current())
	require.Nil(t, second.Current())

	// An inert producer exposes no buffer, so writes have nowhere to land:
	// Current stays nil.
	require.Nil(t, second.Current())
}

// TestLeakHookFiresOnCollection exercises the runtime.AddCleanup registered
// in New: a State dropped while still holding a buffer must eventually run
// debugLeakHook once the garbage collector reclaims it.
func TestLeakHookFiresOnCollection(t *testing.T) {
	w := newWriter(t, backend.Config{QueueCap: 4, BufSize: 64})

	fired := make(chan struct{})
	debugLeakHook = func() { close(fired) }
	t.Cleanup(func() { debugLeakHook = nil })

	func() {
		p := New(w)
		require.NotNil(t, p.Current())
		// p goes out of scope here, unreachable, still holding its buffer.
	}()

	deadline := time.After(5 * time.Second)
	for {
		runtime.GC()
		select {
		case <-fired:
			return
		case <-deadline:
			t.Fatal("debugLeakHook did not fire after repeated GC")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
