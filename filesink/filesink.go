// Package filesink implements the append-only, size-rolling file sink that
// the backend writer drains into. Unlike a buffered io.Writer, Sink performs
// direct, unbuffered OS writes on every Append call — buffering is the
// Buffer's job, one layer up in the pipeline (see package buffer).
package filesink

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/caelan-systems/caelanlog/timesource"
)

// DefaultMaxFileSize is the soft ceiling on a log file's size before it is
// rolled to a new one.
const DefaultMaxFileSize int64 = 256 * 1024 * 1024

// EnvDir names the environment variable that overrides the log directory.
const EnvDir = "CAELAN_LOG_DIR"

const defaultFileMode fs.FileMode = 0o644
const defaultDirMode fs.FileMode = 0o755

// Config configures a Sink.
type Config struct {
	// Dir is the caller-supplied log directory. Ignored if empty or equal to
	// the trivial default "." or "log" — see ResolveDir.
	Dir string
	// MaxFileSize is the soft ceiling on a log file's size before rolling.
	// Defaults to DefaultMaxFileSize when <= 0.
	MaxFileSize int64
}

// Sink is an append-only file with size-triggered rolling. A Sink is touched
// only by the single writer goroutine that owns it — it performs no internal
// locking of its own beyond what cross-process rotation requires.
type Sink struct {
	dir         string
	maxFileSize int64
	file        *os.File
	path        string
	written     int64
	seq         uint32
}

// New resolves the log directory (see ResolveDir), creates it if necessary,
// opens the first log file, and returns a ready-to-use Sink.
func New(cfg Config) (*Sink, error) {
	dir, err := ResolveDir(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("filesink: create log directory %q: %w", dir, err)
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	s := &Sink{dir: dir, maxFileSize: maxSize}
	if err := s.openNewFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// ResolveDir implements the directory-resolution order from the spec: the
// first non-empty of {CAELAN_LOG_DIR, callerDir (when not a trivial
// default), XDG_STATE_HOME/caelanlogger/logs, $HOME/.local/state/caelanlogger/logs,
// ./log}. The result is canonicalized to an absolute path.
func ResolveDir(callerDir string) (string, error) {
	candidate := ""
	switch {
	case os.Getenv(EnvDir) != "":
		candidate = os.Getenv(EnvDir)
	case callerDir != "" && callerDir != "." && callerDir != "log":
		candidate = callerDir
	case os.Getenv("XDG_STATE_HOME") != "":
		candidate = filepath.Join(os.Getenv("XDG_STATE_HOME"), "caelanlogger", "logs")
	case os.Getenv("HOME") != "":
		candidate = filepath.Join(os.Getenv("HOME"), ".local", "state", "caelanlogger", "logs")
	default:
		candidate = filepath.Join(".", "log")
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("filesink: resolve log directory %q: %w", candidate, err)
	}
	return abs, nil
}

// Append persists p to the current file, rolling first if p would overflow
// MaxFileSize. Writes retry on EINTR; any other error is returned to the
// caller. Append is not safe for concurrent use — it is called only from
// the single writer goroutine.
func (s *Sink) Append(p []byte) error {
	if s.file == nil {
		if err := s.openNewFile(); err != nil {
			return err
		}
	}
	if s.ShouldRoll(len(p)) {
		if err := s.Roll(); err != nil {
			return err
		}
	}
	for len(p) > 0 {
		n, err := s.file.Write(p)
		if n > 0 {
			p = p[n:]
			s.written += int64(n)
		}
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("filesink: write: %w", err)
		}
	}
	return nil
}

// ShouldRoll reports whether appending n more bytes would exceed MaxFileSize.
func (s *Sink) ShouldRoll(n int) bool {
	return s.written+int64(n) > s.maxFileSize
}

// Roll closes the current file and opens a new one via generateName.
func (s *Sink) Roll() error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("filesink: close rolling file: %w", err)
		}
		s.file = nil
	}
	return s.openNewFile()
}

// WrittenBytes returns the number of bytes written to the current file.
func (s *Sink) WrittenBytes() uint64 { return uint64(s.written) }

// Path returns the path of the file the Sink most recently opened. It keeps
// returning that path after Close.
func (s *Sink) Path() string { return s.path }

// Close closes the currently open file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Sink) openNewFile() error {
	unlock, err := acquireRotationLock(s.dir)
	if err != nil {
		return fmt.Errorf("filesink: acquire rotation lock: %w", err)
	}
	if unlock != nil {
		defer unlock()
	}
	path := filepath.Join(s.dir, s.generateName())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return fmt.Errorf("filesink: open %q: %w", path, err)
	}
	setCloseOnExec(f)
	s.file = f
	s.path = path
	s.written = 0
	return nil
}

// generateName builds "<YYYY-MM-DD HH:MM:SS.mmm>_LOG_<seq>" where seq is a
// per-process counter modulo 10000. Filenames need not be globally unique
// across rolls within the same second; the rolling seq disambiguates them
// within a single run.
func (s *Sink) generateName() string {
	seq := atomic.AddUint32(&s.seq, 1) - 1
	return fmt.Sprintf("%s_LOG_%d", timesource.FileNameStamp(time.Now()), seq%10000)
}

var _ io.Writer = (*sinkIOWriter)(nil)

// sinkIOWriter adapts Sink to io.Writer for callers that want to hand it to
// code expecting the standard interface (e.g. log.SetOutput in tests).
type sinkIOWriter struct{ s *Sink }

func (w *sinkIOWriter) Write(p []byte) (int, error) {
	if err := w.s.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// AsIOWriter wraps the Sink as a plain io.Writer.
func (s *Sink) AsIOWriter() io.Writer { return &sinkIOWriter{s: s} }
