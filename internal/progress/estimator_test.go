package progress

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) add(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// fakeClock lets tests step past the throttle interval deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestEstimator(mt types.MediaType, meta Metadata) (*Estimator, *eventCollector, *fakeClock) {
	col := &eventCollector{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	e := New(mt, meta, col.add)
	e.now = clk.now
	return e, col, clk
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		mt   types.MediaType
		meta Metadata
		want Strategy
	}{
		{types.MediaDirect, Metadata{TotalBytes: 1000}, StrategySize},
		{types.MediaDirect, Metadata{Duration: 60}, StrategyDuration},
		{types.MediaDirect, Metadata{AudioOnly: true, Duration: 60, TotalBytes: 1000}, StrategyDuration},
		{types.MediaDirect, Metadata{}, StrategyDynamic},
		{types.MediaHLS, Metadata{Duration: 120}, StrategyDuration},
		{types.MediaHLS, Metadata{TotalBytes: 1000}, StrategySize},
		{types.MediaHLS, Metadata{TotalSegments: 50}, StrategySegments},
		{types.MediaHLS, Metadata{}, StrategyDynamic},
		{types.MediaDASH, Metadata{Duration: 60}, StrategyDuration},
		{types.MediaDASH, Metadata{TotalSegments: 50}, StrategyDynamic},
	}
	for _, tt := range tests {
		if got := SelectStrategy(tt.mt, tt.meta); got != tt.want {
			t.Fatalf("SelectStrategy(%s, %+v) = %s, want %s", tt.mt, tt.meta, got, tt.want)
		}
	}
}

func TestEstimator_SizeStrategyHalfway(t *testing.T) {
	e, col, _ := newTestEstimator(types.MediaDirect, Metadata{TotalBytes: 1_000_000})
	defer e.Close()

	e.Consume("total_size=500000\n")

	events := col.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Progress; got < 49.9 || got > 50.1 {
		t.Fatalf("progress = %v, want ≈50", got)
	}
	if events[0].Strategy != "size" {
		t.Fatalf("strategy = %q", events[0].Strategy)
	}
}

func TestEstimator_DurationStrategyHLS(t *testing.T) {
	e, col, _ := newTestEstimator(types.MediaHLS, Metadata{Duration: 120})
	defer e.Close()

	e.Consume("out_time_ms=60000000\n")

	events := col.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Progress; got < 49.9 || got > 50.1 {
		t.Fatalf("progress = %v, want ≈50", got)
	}
	if events[0].Strategy != "duration" {
		t.Fatalf("strategy = %q, want duration", events[0].Strategy)
	}
}

func TestEstimator_CappedBelowHundredUntilEndMarker(t *testing.T) {
	e, col, clk := newTestEstimator(types.MediaDirect, Metadata{TotalBytes: 1000})
	defer e.Close()

	// Reported bytes overshoot the expected total.
	e.Consume("total_size=5000\n")
	clk.advance(time.Second)
	e.Consume("total_size=9000\n")

	for _, ev := range col.all() {
		if ev.Progress > progressCap {
			t.Fatalf("progress %v exceeds pre-finalization cap", ev.Progress)
		}
	}

	e.Consume("progress=end\n")
	if got := e.Snapshot(true).Progress; got != 100 {
		t.Fatalf("final progress = %v, want 100", got)
	}
	if got := e.Snapshot(false).Progress; got == 100 {
		t.Fatal("unverified outcome must not report 100")
	}
}

func TestEstimator_ProgressNeverRegresses(t *testing.T) {
	e, col, clk := newTestEstimator(types.MediaHLS, Metadata{Duration: 100})
	defer e.Close()

	for i := 1; i <= 8; i++ {
		e.Consume(fmt.Sprintf("out_time_ms=%d\n", i*10*1_000_000))
		clk.advance(time.Second)
	}

	events := col.all()
	if len(events) < 4 {
		t.Fatalf("expected a steady event stream, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Progress < events[i-1].Progress {
			t.Fatalf("progress regressed: %v after %v", events[i].Progress, events[i-1].Progress)
		}
		if events[i].Progress < 0 || events[i].Progress > 100 {
			t.Fatalf("progress out of bounds: %v", events[i].Progress)
		}
	}
}

func TestEstimator_ThrottlesPrimaryUpdates(t *testing.T) {
	e, col, clk := newTestEstimator(types.MediaHLS, Metadata{Duration: 100})
	defer e.Close()

	// A burst of updates inside one throttle interval yields one immediate
	// emission; the rest coalesce into a pending timer flush.
	e.Consume("out_time_ms=10000000\n")
	clk.advance(time.Millisecond)
	e.Consume("out_time_ms=20000000\n")
	clk.advance(time.Millisecond)
	e.Consume("out_time_ms=30000000\n")

	if got := len(col.all()); got != 1 {
		t.Fatalf("immediate emissions = %d, want 1", got)
	}

	// The scheduled flush arrives once the interval elapses in real time.
	deadline := time.Now().Add(2 * time.Second)
	for len(col.all()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := len(col.all()); got != 2 {
		t.Fatalf("total emissions = %d, want 2", got)
	}
}

func TestEstimator_DynamicLocksFirstUsableStrategy(t *testing.T) {
	e, col, _ := newTestEstimator(types.MediaHLS, Metadata{})
	if e.primary != StrategyDynamic {
		t.Fatalf("primary = %s, want dynamic", e.primary)
	}

	// Segment totals arrive late (e.g. a slow manifest analysis); the
	// first usable data locks the segments strategy for good.
	e.mu.Lock()
	e.totalSegments = 10
	e.mu.Unlock()

	e.Consume("Opening 'https://cdn.example.com/seg1.ts' for reading\n")
	if got := e.PrimaryStrategy(); got != StrategySegments {
		t.Fatalf("locked = %s, want segments", got)
	}

	// Duration data later must not flip the lock.
	e.mu.Lock()
	e.totalDuration = 120
	e.mu.Unlock()
	e.Consume("out_time_ms=60000000\n")
	if got := e.PrimaryStrategy(); got != StrategySegments {
		t.Fatalf("lock flipped to %s", got)
	}

	events := col.all()
	if len(events) == 0 || events[0].Strategy != "segments" {
		t.Fatalf("events = %+v", events)
	}
	e.Close()
}

func TestEstimator_SpeedFromRollingWindow(t *testing.T) {
	e, col, clk := newTestEstimator(types.MediaDirect, Metadata{TotalBytes: 10_000_000})
	defer e.Close()

	e.Consume("total_size=1000000\n")
	clk.advance(time.Second)
	e.Consume("total_size=2000000\n")
	clk.advance(time.Second)
	e.Consume("total_size=3000000\n")

	events := col.all()
	last := events[len(events)-1]
	// 2 MB over 2 s across the window.
	if last.Speed < 900_000 || last.Speed > 1_100_000 {
		t.Fatalf("speed = %v, want ≈1e6", last.Speed)
	}
	if last.ETA <= 0 {
		t.Fatalf("eta = %v, want positive", last.ETA)
	}
}

func TestEstimator_FinalStatsCaptured(t *testing.T) {
	e, _, _ := newTestEstimator(types.MediaHLS, Metadata{Duration: 60})
	defer e.Close()

	e.Consume("size= 1024kB time=00:00:30.00 bitrate= 900.0kbits/s speed=1x\n")
	e.Consume("video:5708kB audio:321kB subtitle:0kB other streams:0kB global headers:0kB muxing overhead: 0.5%\n")

	final := e.Final()
	if final == nil {
		t.Fatal("expected final stats")
	}
	if final.VideoBytes != 5708*1024 {
		t.Fatalf("video bytes = %d", final.VideoBytes)
	}
	if final.FinalBitrate != 900.0 {
		t.Fatalf("final bitrate = %v", final.FinalBitrate)
	}

	// Strategy updates stop after finalization.
	before := e.Snapshot(false).CurrentTime
	e.Consume("out_time_ms=50000000\n")
	if got := e.Snapshot(false).CurrentTime; got != before {
		t.Fatalf("state advanced after finalization: %v -> %v", before, got)
	}
}
