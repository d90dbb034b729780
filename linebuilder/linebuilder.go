// Package linebuilder implements the record front-end (spec C4): a scoped,
// per-record formatter bound to a producer.State and a severity level. It
// prepends the level tag and timestamp, accepts typed payload appends, and
// appends the terminating newline on Close.
package linebuilder

import (
	"strconv"

	"github.com/caelan-systems/caelanlog/buffer"
	"github.com/caelan-systems/caelanlog/levels"
	"github.com/caelan-systems/caelanlog/producer"
	"github.com/caelan-systems/caelanlog/timesource"
)

// LMax is the upper bound on any single record's byte length. Construction
// hands off the current buffer when it has less than this much remaining
// capacity, so that a record fitting within LMax lands entirely within one
// Buffer — the line-atomicity invariant. When that handoff is skipped (the
// writer's free hint is false) or the buffer's capacity is itself below
// LMax, the record is built in whatever space remains and appends that do
// not fit are dropped.
const LMax = 1028

// minIntDigits is the minimum remaining capacity required before a numeric
// append is even attempted, per spec.md §4.3.
const minIntDigits = 32

// Builder is a scoped per-record formatter. It is not safe for concurrent
// use — exactly one goroutine owns a Builder for the lifetime of one record.
type Builder struct {
	buf *buffer.Buffer // nil => inert; every append is a no-op
}

// New starts a new record at the given level, using ts for the timestamp.
// If p is inert, or remains inert after a forced handoff, the returned
// Builder is inert: every append silently no-ops and Close is a no-op too.
func New(p *producer.State, level levels.Level, ts *timesource.Source) *Builder {
	b := p.Current()
	if b == nil {
		return &Builder{}
	}
	if b.Remaining() < LMax {
		p.Handoff()
		b = p.Current()
		if b == nil {
			return &Builder{}
		}
	}
	builder := &Builder{buf: b}
	builder.raw(level.Tag())
	builder.raw(ts.Now())
	builder.raw(" ")
	return builder
}

func (b *Builder) raw(s string) { b.str(s) }

func (b *Builder) str(s string) {
	if b.buf == nil {
		return
	}
	b.buf.Append([]byte(s))
}

// Str appends s verbatim.
func (b *Builder) Str(s string) *Builder {
	b.str(s)
	return b
}

// Bytes appends p verbatim.
func (b *Builder) Bytes(p []byte) *Builder {
	if b.buf == nil {
		return b
	}
	b.buf.Append(p)
	return b
}

// Bool appends "true" or "false".
func (b *Builder) Bool(v bool) *Builder {
	if v {
		b.str("true")
		return b
	}
	b.str("false")
	return b
}

// Int appends the decimal ASCII representation of a signed 64-bit integer.
func (b *Builder) Int(v int64) *Builder {
	if b.buf == nil || b.buf.Remaining() < minIntDigits {
		return b
	}
	var tmp [20]byte // max digits for int64 incl sign
	n := formatInt(tmp[:], v)
	b.buf.Append(tmp[:n])
	return b
}

// Uint appends the decimal ASCII representation of an unsigned 64-bit
// integer.
func (b *Builder) Uint(v uint64) *Builder {
	if b.buf == nil || b.buf.Remaining() < minIntDigits {
		return b
	}
	var tmp [20]byte
	n := formatUint(tmp[:], v)
	b.buf.Append(tmp[:n])
	return b
}

// Float appends a floating point value formatted to ~12 significant digits.
func (b *Builder) Float(v float64) *Builder {
	if b.buf == nil || b.buf.Remaining() < minIntDigits {
		return b
	}
	s := strconv.FormatFloat(v, 'g', 12, 64)
	b.buf.Append([]byte(s))
	return b
}

// Close appends the record-terminating newline. It is the explicit release
// hook standing in for the spec's destructor-triggered newline — callers
// must call it (typically via defer) exactly once per record.
func (b *Builder) Close() error {
	if b.buf == nil {
		return nil
	}
	b.buf.AppendByte('\n')
	return nil
}

// formatInt writes the decimal, sign-prefixed representation of v into dst
// and returns the number of bytes written. Implemented by repeated mod-10
// division with digit reversal, per spec.md §4.3, rather than delegating to
// strconv, so that int64 math never needs to negate math.MinInt64 (which
// overflows) — the unsigned conversion trick below sidesteps that.
func formatInt(dst []byte, v int64) int {
	if v == 0 {
		dst[0] = '0'
		return 1
	}
	neg := v < 0
	// Converting to uint64 via two's complement negation works even for
	// math.MinInt64, where -v would overflow int64.
	u := uint64(v)
	if neg {
		u = uint64(-(v + 1)) + 1
	}
	n := formatUint(dst[1:], u)
	if neg {
		// digits are already sitting at dst[1:1+n]; just prefix the sign.
		dst[0] = '-'
		return n + 1
	}
	// shift digits down to start at dst[0] since no sign byte is needed.
	copy(dst, dst[1:1+n])
	return n
}

func formatUint(dst []byte, v uint64) int {
	if v == 0 {
		dst[0] = '0'
		return 1
	}
	var tmp [20]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	n := copy(dst, tmp[i:])
	return n
}
