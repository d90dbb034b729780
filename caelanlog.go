// Package caelanlog is the process-wide entry point for the logging engine
// (spec component C7, LoggerRoot): it owns the single backend.Writer,
// configures the buffer size, hands out per-goroutine producer.State
// handles, and exposes init/shutdown/restart lifecycle calls.
//
// Usage:
//
//	caelanlog.Init(caelanlog.Config{BufSize: 8192})
//	defer caelanlog.Shutdown()
//
//	p := caelanlog.Producer() // one per goroutine, kept for its lifetime
//	b := caelanlog.Log(p, levels.Info)
//	b.Str("server started on ").Int(8080)
//	b.Close()
package caelanlog

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caelan-systems/caelanlog/backend"
	"github.com/caelan-systems/caelanlog/levels"
	"github.com/caelan-systems/caelanlog/linebuilder"
	"github.com/caelan-systems/caelanlog/producer"
	"github.com/caelan-systems/caelanlog/timesource"
)

// ErrNotInitialized is returned by operations that require an active writer
// when none has been started (uninitialized or after Shutdown, before a
// Restart).
var ErrNotInitialized = errors.New("caelanlog: not initialized")

// Config configures the singleton writer. See backend.Config for field
// semantics; Config is intentionally a thin, zero-value-friendly subset of
// it, matching the spec's "init(bufSize)" single-knob surface while still
// letting advanced callers reach the rest through Dir/MaxFileSize/QueueCap.
type Config struct {
	BufSize     int
	QueueCap    int
	Dir         string
	MaxFileSize int64
}

var (
	rootMu  sync.Mutex
	root    atomic.Pointer[backend.Writer]
	cfg     Config
	ts      = timesource.New()
	started atomic.Bool
)

// Init sets the configured buffer size (and other Config fields) before
// first use. Calling Init after the writer has already started has no
// effect on the running writer. Restart applies a new buffer size; a running
// writer keeps its other settings across Restart.
func Init(c Config) {
	rootMu.Lock()
	defer rootMu.Unlock()
	cfg = c
}

// ensure lazily constructs and starts the singleton writer on first access,
// per spec.md §4.6 ("the first access constructs the single BackendWriter
// and calls start()").
func ensure() (*backend.Writer, error) {
	if w := root.Load(); w != nil {
		return w, nil
	}
	rootMu.Lock()
	defer rootMu.Unlock()
	if w := root.Load(); w != nil {
		return w, nil
	}
	w, err := backend.New(backend.Config{
		BufSize:     cfg.BufSize,
		QueueCap:    cfg.QueueCap,
		Dir:         cfg.Dir,
		MaxFileSize: cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("caelanlog: construct writer: %w", err)
	}
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("caelanlog: start writer: %w", err)
	}
	root.Store(w)
	started.Store(true)
	return w, nil
}

// Producer lazily creates and returns a producer.State bound to the
// singleton writer. Go has no thread-local storage, so — unlike the spec's
// systems-language original — the caller must create one Producer() per
// goroutine and retain it for that goroutine's lifetime; see SPEC_FULL.md
// §6 for the rationale.
func Producer() *producer.State {
	w, err := ensure()
	if err != nil {
		return producer.New(nil) // inert: ensure() failed, no writer to bind to
	}
	return producer.New(w)
}

// Log starts a new scoped record at the given level for producer p. Close
// the returned Builder (typically via defer) to terminate the record.
func Log(p *producer.State, level levels.Level) *linebuilder.Builder {
	return linebuilder.New(p, level, ts)
}

// Shutdown stops the writer, guaranteeing the final drain has completed
// before it returns. Producers with buffers not yet submitted via Handoff
// at the moment Shutdown is called may lose those buffers' contents — call
// Handoff on every live producer before Shutdown in a clean-exit path.
func Shutdown() error {
	w := root.Load()
	if w == nil {
		return ErrNotInitialized
	}
	rootMu.Lock()
	defer rootMu.Unlock()
	root.Store(nil)
	started.Store(false)
	return w.Stop()
}

// Restart reconfigures and restarts the singleton writer with a new buffer
// size. Not safe to call concurrently with live producers — see
// backend.Writer.Restart and SPEC_FULL.md §11.
func Restart(bufSize int) error {
	rootMu.Lock()
	cfg.BufSize = bufSize
	w := root.Load()
	rootMu.Unlock()

	if w == nil {
		_, err := ensure()
		return err
	}
	return w.Restart(bufSize)
}

// Writer returns the underlying backend.Writer for health checks (e.g.
// w.Err(), w.Stats()) and the statshttp endpoint. Returns nil if not
// initialized.
func Writer() *backend.Writer {
	return root.Load()
}
