// Command caelanbench drives the logging engine end to end: N producer
// goroutines each emitting a fixed number of records, with periodic
// handoffs, followed by a clean shutdown. It is the spec's peripheral
// "CLI/benchmark harness" — a consumer of the core, not part of it.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caelan-systems/caelanlog"
	"github.com/caelan-systems/caelanlog/levels"
	"github.com/caelan-systems/caelanlog/statshttp"
	"github.com/caelan-systems/caelanlog/xterm/prompt"
)

func main() {
	var (
		dir          = flag.String("dir", "", "log directory (defaults per filesink.ResolveDir)")
		bufSize      = flag.Int("bufsize", 8192, "per-buffer capacity in bytes")
		producers    = flag.Int("producers", 4, "number of concurrent producer goroutines")
		records      = flag.Int("records", 50000, "records emitted per producer")
		handoffEvery = flag.Int("handoff-every", 200, "force a handoff every N records")
		statsAddr    = flag.String("stats-addr", "", "if set, serve /healthz and /stats on this address")
		interactive  = flag.Bool("interactive", false, "prompt for settings instead of using flags")
	)
	flag.Parse()

	if *interactive {
		if v, err := prompt.Int("buffer size (bytes)"); err == nil {
			*bufSize = v
		}
		if v, err := prompt.Uint("producer goroutines"); err == nil {
			*producers = int(v)
		}
		if v, err := prompt.Uint("records per producer"); err == nil {
			*records = int(v)
		}
	}

	caelanlog.Init(caelanlog.Config{BufSize: *bufSize, Dir: *dir})
	defer func() {
		if err := caelanlog.Shutdown(); err != nil && err != caelanlog.ErrNotInitialized {
			fmt.Fprintln(os.Stderr, "shutdown:", err)
		}
	}()

	if *statsAddr != "" {
		caelanlog.Producer() // force the writer to start before serving stats
		srv, err := statshttp.NewServer(caelanlog.Writer(), statshttp.Config{Addr: *statsAddr})
		if err != nil {
			fmt.Fprintln(os.Stderr, "statshttp:", err)
		} else {
			go func() {
				if err := srv.Listen(); err != nil {
					fmt.Fprintln(os.Stderr, "statshttp listen:", err)
				}
			}()
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *producers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			p := caelanlog.Producer()
			for j := 0; j < *records; j++ {
				b := caelanlog.Log(p, levels.Info)
				b.Str("producer ").Int(int64(idx)).Str(" record ").Int(int64(j))
				b.Close()
				if *handoffEvery > 0 && j%*handoffEvery == 0 {
					p.Handoff()
				}
			}
			p.Handoff()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := *producers * *records
	fmt.Printf("wrote %d records across %d producers in %s (%.0f records/sec)\n",
		total, *producers, elapsed, float64(total)/elapsed.Seconds())

	if st := caelanlog.Writer(); st != nil {
		s := st.Stats()
		fmt.Printf("bytes_written=%d dropped_pending_full=%d dropped_no_free=%d dropped_handoff=%d\n",
			s.BytesWritten, s.DroppedFull, s.DroppedNoFree, s.DroppedHandoff)
	}
}
