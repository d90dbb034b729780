// Package backend implements the buffer-exchange engine: two bounded ring
// queues (pending/free) guarded by a single mutex, and the background writer
// goroutine that drains pending buffers into a filesink.Sink. This is the
// core of the engine — see spec component C6.
package backend

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caelan-systems/caelanlog/buffer"
	"github.com/caelan-systems/caelanlog/filesink"
	"github.com/caelan-systems/caelanlog/internal/ringqueue"
)

// ErrAlreadyRunning is returned by Start when the writer goroutine is
// already running — a double-start is a programming error per the spec.
var ErrAlreadyRunning = errors.New("backend: writer already running")

// DefaultQueueCapacity is the default capacity Q of the pending/free ring
// queues.
const DefaultQueueCapacity = 10000

// DefaultBufferSize is the default capacity of each Buffer.
const DefaultBufferSize = 8192

const drainIdleSleep = time.Millisecond

// Config configures a Writer.
type Config struct {
	BufSize     int   // capacity of each Buffer; defaults to DefaultBufferSize
	QueueCap    int   // capacity Q of pending/free queues; defaults to DefaultQueueCapacity
	MaxFileSize int64 // forwarded to filesink.Config
	Dir         string
}

// entry pairs a buffer with the writer epoch it was allocated under, so a
// Restart cannot accidentally recycle a stale-generation buffer into the new
// free queue (see SPEC_FULL.md §11, "Restart safety").
type entry struct {
	buf   *buffer.Buffer
	epoch uint64
}

// Handle is an opaque reference to a Buffer currently owned by a producer.
// Producers never touch entry/epoch directly; package producer only calls
// Handle.Buffer().
type Handle struct {
	e *entry
}

// Buffer returns the underlying buffer, or nil if the Handle is the
// "producer went inert" sentinel.
func (h *Handle) Buffer() *buffer.Buffer {
	if h == nil || h.e == nil {
		return nil
	}
	return h.e.buf
}

// Stats is a point-in-time snapshot of the writer's exchange counters,
// exposed for the statshttp observability endpoint.
type Stats struct {
	PendingDepth      int
	FreeDepth         int
	DroppedFull       uint64 // buffers dropped because pending was full
	DroppedNoFree     uint64 // handoffs that left a producer inert (free empty)
	DroppedHandoff    uint64 // handoffs skipped because free_available hint was false
	BytesWritten      uint64
	CurrentFile       string
	WriterRunning     bool
	RestartGeneration uint64
}

// Writer owns the pending/free ring queues, the mutex guarding them, and the
// single background goroutine that drains pending into a filesink.Sink.
type Writer struct {
	mu      sync.Mutex // guards pending, free, and their indices — the spec's "spinlock"
	pending *ringqueue.Queue[*entry]
	free    *ringqueue.Queue[*entry]

	freeAvailable atomic.Bool
	running       atomic.Bool
	epoch         atomic.Uint64

	cfg  Config
	sink *filesink.Sink

	wg     sync.WaitGroup
	stopCh chan struct{}

	errMu sync.Mutex
	err   error

	droppedFull    atomic.Uint64
	droppedNoFree  atomic.Uint64
	droppedHandoff atomic.Uint64
}

// New allocates a Writer with Q freshly-allocated buffers in its free queue
// and opens the underlying file sink. The writer goroutine is not started —
// call Start.
func New(cfg Config) (*Writer, error) {
	if cfg.BufSize <= 0 {
		cfg.BufSize = DefaultBufferSize
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = DefaultQueueCapacity
	}
	sink, err := filesink.New(filesink.Config{Dir: cfg.Dir, MaxFileSize: cfg.MaxFileSize})
	if err != nil {
		return nil, fmt.Errorf("backend: init filesink: %w", err)
	}
	w := &Writer{
		cfg:     cfg,
		sink:    sink,
		pending: ringqueue.New[*entry](cfg.QueueCap),
		free:    ringqueue.New[*entry](cfg.QueueCap),
	}
	w.fillFree()
	return w, nil
}

func (w *Writer) fillFree() {
	epoch := w.epoch.Load()
	for i := 0; i < w.cfg.QueueCap; i++ {
		w.free.Push(&entry{buf: buffer.New(w.cfg.BufSize), epoch: epoch})
	}
	w.freeAvailable.Store(true)
}

// Start spawns the writer goroutine. It fails with ErrAlreadyRunning if one
// is already running, matching the spec's "double-start is a programming
// error" policy.
func (w *Writer) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop signals the writer goroutine to finish and waits for it. Joining
// guarantees the final drain has completed before Stop returns.
func (w *Writer) Stop() error {
	if !w.running.CompareAndSwap(true, false) {
		return nil
	}
	close(w.stopCh)
	w.wg.Wait()
	return w.sink.Close()
}

// Restart stops the writer, reinitializes the file sink, reallocates the
// free queue with buffers of the new size, bumps the epoch so in-flight
// producer buffers from the old generation are rejected rather than
// corrupting the new free queue, and starts again.
//
// Not safe to call concurrently with producers still holding buffers from
// before the call — this mirrors the accepted caveat in the spec; the epoch
// bump only prevents corruption of internal state, it does not recover
// those producers' in-flight records.
func (w *Writer) Restart(bufSize int) error {
	if w.running.Load() {
		if err := w.Stop(); err != nil {
			return err
		}
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	w.cfg.BufSize = bufSize
	w.epoch.Add(1)

	sink, err := filesink.New(filesink.Config{Dir: w.cfg.Dir, MaxFileSize: w.cfg.MaxFileSize})
	if err != nil {
		return fmt.Errorf("backend: restart filesink: %w", err)
	}
	w.sink = sink
	w.pending = ringqueue.New[*entry](w.cfg.QueueCap)
	w.free = ringqueue.New[*entry](w.cfg.QueueCap)
	w.fillFree()
	w.clearErr()
	return w.Start()
}

// Acquire pops one buffer from the free queue for a newly created producer.
// Returns nil if the writer has no free buffers (e.g. it is currently
// behind). The free queue is filled by New, so Acquire works before Start.
func (w *Writer) Acquire() *Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.free.Pop()
	if !ok {
		w.freeAvailable.Store(false)
		return nil
	}
	if w.free.Empty() {
		w.freeAvailable.Store(false)
	}
	return &Handle{e: e}
}

// FreeAvailable reports the advisory "writer is not known-behind" hint.
// Correctness never depends on it; it only avoids entering the mutex path
// when the writer is known-behind, letting producers drop a handoff cheaply
// instead of spinning on the lock.
func (w *Writer) FreeAvailable() bool { return w.freeAvailable.Load() }

// SubmitAndAcquire is the single atomic exchange primitive (spec C6
// submit_and_acquire). Given a full handle, it submits it to the pending
// queue and returns a fresh handle for the producer to keep writing into —
// or nil if none is currently available.
func (w *Writer) SubmitAndAcquire(full *Handle) *Handle {
	if full == nil || full.e == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if full.e.epoch != w.epoch.Load() {
		// Stale generation from before a Restart; drop it rather than risk
		// mixing buffer sizes/generations in the queues.
		return nil
	}

	if w.pending.Full() {
		// Writer cannot keep up; drop the newest rather than block the
		// producer. The producer keeps the same buffer, reset for reuse.
		w.droppedFull.Add(1)
		full.e.buf.Reset()
		return full
	}

	w.pending.Push(full.e)

	e, ok := w.free.Pop()
	if !ok {
		w.freeAvailable.Store(false)
		w.droppedNoFree.Add(1)
		return nil
	}
	if w.free.Empty() {
		w.freeAvailable.Store(false)
	}
	return &Handle{e: e}
}

// run is the writer goroutine's main loop (spec C6 "run").
func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			for w.drainOnce() {
			}
			return
		default:
			if !w.drainOnce() {
				time.Sleep(drainIdleSleep)
			}
		}
	}
}

// drainOnce snapshots the entire pending queue under one lock acquisition,
// persists each buffer outside the lock, then returns the reset buffers to
// the free queue. Returns true if anything was drained.
func (w *Writer) drainOnce() bool {
	w.mu.Lock()
	if w.pending.Empty() {
		w.mu.Unlock()
		return false
	}
	batch := w.pending.DrainAll(make([]*entry, 0, w.pending.Len()))
	w.mu.Unlock()

	for _, e := range batch {
		if w.sink.ShouldRoll(e.buf.Size()) {
			if err := w.sink.Roll(); err != nil {
				w.setErr(fmt.Errorf("backend: roll: %w", err))
				e.buf.Reset()
				continue
			}
		}
		if err := w.sink.Append(e.buf.Data()); err != nil {
			w.setErr(fmt.Errorf("backend: append: %w", err))
		}
		e.buf.Reset()
	}

	w.mu.Lock()
	currentEpoch := w.epoch.Load()
	for _, e := range batch {
		if e.epoch != currentEpoch {
			continue // stale generation; let it be collected, don't recycle
		}
		if !w.free.Push(e) {
			break // free queue full (shouldn't happen; population is conserved)
		}
	}
	if !w.free.Empty() {
		w.freeAvailable.Store(true)
	}
	w.mu.Unlock()
	return true
}

func (w *Writer) setErr(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *Writer) clearErr() {
	w.errMu.Lock()
	w.err = nil
	w.errMu.Unlock()
}

// Err returns the first fatal error the writer goroutine encountered, if
// any. Producer-path drops are never surfaced here — only FS-level failures.
func (w *Writer) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

// Stats returns a point-in-time snapshot of the writer's counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	pd, fd := w.pending.Len(), w.free.Len()
	w.mu.Unlock()
	return Stats{
		PendingDepth:      pd,
		FreeDepth:         fd,
		DroppedFull:       w.droppedFull.Load(),
		DroppedNoFree:     w.droppedNoFree.Load(),
		DroppedHandoff:    w.droppedHandoff.Load(),
		BytesWritten:      w.sink.WrittenBytes(),
		CurrentFile:       w.sink.Path(),
		WriterRunning:     w.running.Load(),
		RestartGeneration: w.epoch.Load(),
	}
}

// RecordSkippedHandoff lets package producer report a handoff that was
// skipped at the FreeAvailable gate, for observability parity with the
// other drop counters.
func (w *Writer) RecordSkippedHandoff() { w.droppedHandoff.Add(1) }
