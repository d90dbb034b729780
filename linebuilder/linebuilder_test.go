package linebuilder

import (
	"math"
	"os"
	"testing"

	"github.com/caelan-systems/caelanlog/backend"
	"github.com/caelan-systems/caelanlog/levels"
	"github.com/caelan-systems/caelanlog/producer"
	"github.com/caelan-systems/caelanlog/timesource"
	"github.com/stretchr/testify/require"
)

func newProducer(t *testing.T, bufSize int) (*producer.State, *backend.Writer) {
	t.Helper()
	w, err := backend.New(backend.Config{Dir: t.TempDir(), QueueCap: 4, BufSize: bufSize})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return producer.New(w), w
}

func TestRecordFormatIncludesTagTimestampPayloadNewline(t *testing.T) {
	p, w := newProducer(t, 256)
	ts := timesource.New()

	b := New(p, levels.Info, ts)
	b.Str("hello world")
	require.NoError(t, b.Close())

	p.Handoff()
	require.NoError(t, w.Stop())

	data, err := readLatest(t, w)
	require.NoError(t, err)
	line := string(data)
	require.True(t, len(line) > 0 && line[len(line)-1] == '\n')
	require.Contains(t, line, "INFO ")
	require.Contains(t, line, "hello world")
}

func TestNumericRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*Builder) *Builder
		want string
	}{
		{"zero", func(b *Builder) *Builder { return b.Int(0) }, "0"},
		{"neg one", func(b *Builder) *Builder { return b.Int(-1) }, "-1"},
		{"int64 min", func(b *Builder) *Builder { return b.Int(math.MinInt64) }, "-9223372036854775808"},
		{"float 3.5", func(b *Builder) *Builder { return b.Float(3.5) }, "3.5"},
		{"pi 12 sig figs", func(b *Builder) *Builder { return b.Float(3.141592653589793) }, "3.14159265359"},
		{"true", func(b *Builder) *Builder { return b.Bool(true) }, "true"},
		{"false", func(b *Builder) *Builder { return b.Bool(false) }, "false"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, w := newProducer(t, 256)
			ts := timesource.New()
			b := New(p, levels.Info, ts)
			c.fn(b)
			require.NoError(t, b.Close())
			p.Handoff()
			require.NoError(t, w.Stop())

			data, err := readLatest(t, w)
			require.NoError(t, err)
			require.Contains(t, string(data), c.want)
		})
	}
}

func TestInertBuilderNoops(t *testing.T) {
	w, err := backend.New(backend.Config{Dir: t.TempDir(), QueueCap: 1, BufSize: 64})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	first := producer.New(w)  // takes sole buffer
	second := producer.New(w) // inert

	b := New(second, levels.Error, timesource.New())
	b.Str("should not panic")
	require.NoError(t, b.Close())
	_ = first
}

func readLatest(t *testing.T, w *backend.Writer) ([]byte, error) {
	t.Helper()
	return os.ReadFile(w.Stats().CurrentFile)
}
