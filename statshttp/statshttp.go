// Package statshttp exposes a small opt-in HTTP endpoint over a
// backend.Writer's health and exchange counters. It is pure operational
// convenience around the core engine: no log record ever crosses this
// endpoint, only counters, so the spec's "no network shipping" non-goal is
// untouched.
//
// Adapted from the teacher's xhttp.Server: same graceful-shutdown-on-signal
// lifecycle, generalized from "wrap an arbitrary handler" to "serve the
// writer's /healthz and /stats routes".
package statshttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caelan-systems/caelanlog/backend"
)

// Default values for Config, everything else defaults to zero values.
const (
	DefaultAddr            = ":9090"
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds configuration options for Server.
type Config struct {
	Addr            string        // Address to listen on. Default ":9090".
	ReadTimeout     time.Duration // Default 5s. Negative to disable.
	WriteTimeout    time.Duration // Default 10s. Negative to disable.
	ShutdownTimeout time.Duration // Default 10s. Negative to disable.
}

// Server wraps http.Server with graceful shutdown and sensible defaults,
// serving a fixed pair of routes over a backend.Writer.
type Server struct {
	cfg    Config
	writer *backend.Writer
	server *http.Server
}

// NewServer builds a Server exposing w's health and stats over HTTP.
func NewServer(w *backend.Writer, cfg Config) (*Server, error) {
	if w == nil {
		return nil, fmt.Errorf("statshttp: writer must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{cfg: cfg, writer: w}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.writer.Err(); err != nil {
		http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.writer.Stats()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "running %t\n", st.WriterRunning)
	fmt.Fprintf(w, "pending_depth %d\n", st.PendingDepth)
	fmt.Fprintf(w, "free_depth %d\n", st.FreeDepth)
	fmt.Fprintf(w, "dropped_pending_full %d\n", st.DroppedFull)
	fmt.Fprintf(w, "dropped_no_free %d\n", st.DroppedNoFree)
	fmt.Fprintf(w, "dropped_handoff_skipped %d\n", st.DroppedHandoff)
	fmt.Fprintf(w, "bytes_written %d\n", st.BytesWritten)
	fmt.Fprintf(w, "current_file %s\n", st.CurrentFile)
	fmt.Fprintf(w, "restart_generation %d\n", st.RestartGeneration)
}

// Listen starts the server and blocks until it receives SIGINT/SIGTERM or
// the listener errors, then shuts down gracefully within ShutdownTimeout.
func (s *Server) Listen() error {
	listenErrCh := make(chan error, 1)
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() { listenErrCh <- s.server.ListenAndServe() }()

	select {
	case <-shutdownCh:
		signal.Stop(shutdownCh)
		if s.cfg.ShutdownTimeout <= 0 {
			return s.server.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(ctx)
	case err := <-listenErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			if errors.Is(err, syscall.EADDRINUSE) {
				return fmt.Errorf("statshttp: address already in use: %w", err)
			}
			return err
		}
		return nil
	}
}

// Close shuts the server down immediately.
func (s *Server) Close() error { return s.server.Close() }

// Addr returns the configured listen address, resolving a ":0"-style
// ephemeral port after Listen has started is not supported here — callers
// that need the bound port should parse it from their own net.Listener.
func (s *Server) Addr() string { return s.cfg.Addr }
