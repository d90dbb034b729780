package buffer

import "testing"

func TestAppendWithinCapacity(t *testing.T) {
	b := New(8)
	if !b.Append([]byte("abcd")) {
		t.Fatalf("expected append to succeed")
	}
	if b.Size() != 4 || b.Remaining() != 4 {
		t.Fatalf("size=%d remaining=%d, want 4/4", b.Size(), b.Remaining())
	}
	if string(b.Data()) != "abcd" {
		t.Fatalf("data=%q", b.Data())
	}
}

func TestAppendOverflowLeavesStateUnchanged(t *testing.T) {
	b := New(4)
	b.Append([]byte("ab"))
	if b.Append([]byte("xyz")) {
		t.Fatalf("expected overflow to be refused")
	}
	if b.Size() != 2 || string(b.Data()) != "ab" {
		t.Fatalf("overflowing append mutated buffer: size=%d data=%q", b.Size(), b.Data())
	}
}

func TestAppendByte(t *testing.T) {
	b := New(1)
	if !b.AppendByte('x') {
		t.Fatalf("expected append to succeed")
	}
	if b.AppendByte('y') {
		t.Fatalf("expected second append to be refused")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	b := New(8)
	b.Append([]byte("hello"))
	b.Reset()
	if b.Size() != 0 || b.Remaining() != b.Capacity() {
		t.Fatalf("reset left size=%d remaining=%d", b.Size(), b.Remaining())
	}
	b.Reset()
	if b.Size() != 0 {
		t.Fatalf("second reset changed state: size=%d", b.Size())
	}
}

func TestSizeNeverExceedsCapacity(t *testing.T) {
	b := New(4)
	for i := 0; i < 10; i++ {
		b.AppendByte('a')
		if b.Size() > b.Capacity() {
			t.Fatalf("size %d exceeded capacity %d", b.Size(), b.Capacity())
		}
	}
}
