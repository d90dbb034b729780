// Package buffer provides a fixed-capacity byte slab used as the unit of
// exchange between log producers and the background writer. A Buffer never
// grows; once full, Append refuses further writes and leaves its contents
// untouched.
package buffer

// Buffer is a contiguous, fixed-capacity byte region with a write cursor.
// It is owned by exactly one actor at a time — either a producer filling it
// or the writer draining it — and is never shared concurrently.
type Buffer struct {
	data []byte
	size int
}

// New allocates a Buffer with the given capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Append copies p into the buffer and advances the cursor. If p would
// overflow the remaining capacity, Append returns false and leaves the
// buffer byte-for-byte unchanged.
func (b *Buffer) Append(p []byte) bool {
	if len(p) > b.Remaining() {
		return false
	}
	copy(b.data[b.size:], p)
	b.size += len(p)
	return true
}

// AppendByte is Append for a single byte.
func (b *Buffer) AppendByte(c byte) bool {
	if b.Remaining() < 1 {
		return false
	}
	b.data[b.size] = c
	b.size++
	return true
}

// Reset zeroes the write cursor. It is idempotent: Size() == 0 and
// Remaining() == Capacity() afterward.
func (b *Buffer) Reset() {
	b.size = 0
}

// Data returns the written portion of the buffer. The returned slice aliases
// the buffer's backing array and is only valid until the next Append/Reset.
func (b *Buffer) Data() []byte { return b.data[:b.size] }

// Size returns the number of bytes written so far.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the buffer's fixed capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// Remaining returns the number of bytes that can still be appended.
func (b *Buffer) Remaining() int { return len(b.data) - b.size }
