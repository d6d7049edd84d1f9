package progress

import (
	"strings"
	"sync"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

const (
	// primaryInterval is the minimum spacing between emissions driven by
	// the session's active strategy.
	primaryInterval = 250 * time.Millisecond
	// secondaryInterval is the fallback spacing for data that does not
	// belong to the active strategy; a primary update preempts it.
	secondaryInterval = time.Second
	// speedWindow is the span of the rolling byte-sample window.
	speedWindow = 3 * time.Second
	// historyLen bounds the recent raw values blended for smoothing.
	historyLen = 5
	// progressCap is the ceiling before an end-of-stream marker is seen.
	progressCap = 99.9
)

// Event is one throttled progress report for a session.
type Event struct {
	Progress        float64 `json:"progress"`
	Speed           float64 `json:"speed,omitempty"` // bytes per second
	ETA             float64 `json:"eta,omitempty"`   // seconds
	DownloadedBytes int64   `json:"downloadedBytes,omitempty"`
	TotalBytes      int64   `json:"totalBytes,omitempty"`
	CurrentTime     float64 `json:"currentTime,omitempty"`
	TotalDuration   float64 `json:"totalDuration,omitempty"`
	CurrentSegment  int     `json:"currentSegment,omitempty"`
	TotalSegments   int     `json:"totalSegments,omitempty"`
	Strategy        string  `json:"strategy"`
}

type byteSample struct {
	at    time.Time
	bytes int64
}

// Estimator converts raw transcoder status text into throttled, smoothed,
// never-regressing progress events for one session. All methods are safe
// for concurrent use; in practice Consume is called from the single
// goroutine draining the transcoder's error stream.
type Estimator struct {
	mu        sync.Mutex
	mediaType types.MediaType
	primary   Strategy
	locked    Strategy // set once when primary is dynamic

	currentTime     float64
	downloadedBytes int64
	currentSegment  int
	totalDuration   float64
	totalBytes      int64
	totalSegments   int

	history     []float64
	lastEmitted float64
	lastEmitAt  time.Time

	samples []byteSample
	diags   diagRing

	final       *FinalStats
	finalized   bool
	closed      bool
	lastBitrate float64

	emit           func(Event)
	primaryTimer   *time.Timer
	secondaryTimer *time.Timer

	now func() time.Time
}

// New initializes an estimator for one session. emit receives each
// throttled event; it is called without the estimator lock held.
func New(mt types.MediaType, meta Metadata, emit func(Event)) *Estimator {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Estimator{
		mediaType:     mt,
		primary:       SelectStrategy(mt, meta),
		totalDuration: meta.Duration,
		totalBytes:    meta.TotalBytes,
		totalSegments: meta.TotalSegments,
		emit:          emit,
		now:           time.Now,
	}
}

// PrimaryStrategy returns the selected strategy; for dynamic sessions it is
// the locked strategy once one has been locked.
func (e *Estimator) PrimaryStrategy() Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active()
}

// Consume processes one chunk of transcoder status text. Chunks may split
// lines arbitrarily only at line boundaries supplied by the caller's
// scanner; each line is parsed independently.
func (e *Estimator) Consume(chunk string) {
	var toEmit *Event

	e.mu.Lock()
	for _, line := range strings.FieldsFunc(chunk, func(r rune) bool { return r == '\n' || r == '\r' }) {
		e.diags.scan(line)
		if e.finalized {
			continue
		}
		u := parseStatusLine(line)
		if ev := e.applyLocked(u); ev != nil {
			toEmit = ev
		}
	}
	e.mu.Unlock()

	if toEmit != nil {
		e.emit(*toEmit)
	}
}

// applyLocked folds one update into the state and decides emission.
// It returns a non-nil event when an immediate emission is due.
func (e *Estimator) applyLocked(u statusUpdate) *Event {
	if u.summary != nil {
		if e.final == nil {
			e.final = u.summary
			if e.final.FinalBitrate == 0 {
				e.final.FinalBitrate = e.lastBitrate
			}
		}
		e.finalized = true
		e.stopTimersLocked()
		return nil
	}
	if u.end {
		e.finalized = true
		e.stopTimersLocked()
		return nil
	}

	var touched Strategy
	if u.currentTime >= 0 && u.currentTime >= e.currentTime {
		e.currentTime = u.currentTime
		touched = StrategyDuration
	}
	if u.totalBytes >= 0 && u.totalBytes >= e.downloadedBytes {
		e.downloadedBytes = u.totalBytes
		e.samples = append(e.samples, byteSample{at: e.now(), bytes: u.totalBytes})
		e.trimSamplesLocked()
		if touched == StrategyNone {
			touched = StrategySize
		}
	}
	if u.segment {
		e.currentSegment++
		if touched == StrategyNone {
			touched = StrategySegments
		}
	}
	if u.bitrate > 0 {
		e.lastBitrate = u.bitrate
	}
	if touched == StrategyNone {
		return nil
	}

	e.maybeLockLocked(touched)
	return e.scheduleLocked(touched == e.active())
}

// maybeLockLocked locks the first strategy that produced usable data when
// the session started with the dynamic strategy. The lock holds for the
// rest of the session so the estimation method never visibly oscillates.
func (e *Estimator) maybeLockLocked(touched Strategy) {
	if e.primary != StrategyDynamic || e.locked != StrategyNone {
		return
	}
	switch touched {
	case StrategyDuration:
		if e.totalDuration > 0 {
			e.locked = StrategyDuration
		}
	case StrategySize:
		if e.totalBytes > 0 {
			e.locked = StrategySize
		}
	case StrategySegments:
		if e.totalSegments > 0 {
			e.locked = StrategySegments
		}
	}
}

func (e *Estimator) active() Strategy {
	if e.primary == StrategyDynamic {
		return e.locked
	}
	return e.primary
}

// computeLocked evaluates the active strategy's formula, clamped to
// [0, progressCap] until finalization.
func (e *Estimator) computeLocked() float64 {
	var pct float64
	switch e.active() {
	case StrategyDuration:
		if e.totalDuration <= 0 {
			return 0
		}
		t := min(e.currentTime, e.totalDuration)
		pct = t / e.totalDuration * 100
	case StrategySize:
		if e.totalBytes <= 0 {
			return 0
		}
		pct = min(float64(e.downloadedBytes)/float64(e.totalBytes), 1) * 100
	case StrategySegments:
		if e.totalSegments <= 0 {
			return 0
		}
		pct = min(float64(e.currentSegment)/float64(e.totalSegments), 1) * 100
	default:
		return 0
	}
	return max(0, min(pct, progressCap))
}

// scheduleLocked implements the two-tier throttle. Primary updates emit
// immediately once the minimum interval has passed, otherwise exactly when
// it elapses. Secondary updates ride a longer fallback timer that a pending
// or delivered primary update cancels.
func (e *Estimator) scheduleLocked(primary bool) *Event {
	if e.closed || e.active() == StrategyNone {
		return nil
	}
	if primary {
		if e.secondaryTimer != nil {
			e.secondaryTimer.Stop()
			e.secondaryTimer = nil
		}
		since := e.now().Sub(e.lastEmitAt)
		if since >= primaryInterval {
			ev := e.buildEventLocked()
			return &ev
		}
		if e.primaryTimer == nil {
			e.primaryTimer = time.AfterFunc(primaryInterval-since, e.flushPrimary)
		}
		return nil
	}
	if e.primaryTimer == nil && e.secondaryTimer == nil {
		e.secondaryTimer = time.AfterFunc(secondaryInterval, e.flushSecondary)
	}
	return nil
}

func (e *Estimator) flushPrimary() {
	e.mu.Lock()
	e.primaryTimer = nil
	if e.closed || e.finalized {
		e.mu.Unlock()
		return
	}
	ev := e.buildEventLocked()
	e.mu.Unlock()
	e.emit(ev)
}

func (e *Estimator) flushSecondary() {
	e.mu.Lock()
	e.secondaryTimer = nil
	if e.closed || e.finalized || e.primaryTimer != nil {
		e.mu.Unlock()
		return
	}
	ev := e.buildEventLocked()
	e.mu.Unlock()
	e.emit(ev)
}

// buildEventLocked produces the next event: raw value from the active
// formula, blended with recent history, never below the last emission.
func (e *Estimator) buildEventLocked() Event {
	raw := e.computeLocked()
	e.history = append(e.history, raw)
	if len(e.history) > historyLen {
		e.history = e.history[len(e.history)-historyLen:]
	}
	var sum float64
	for _, v := range e.history {
		sum += v
	}
	smoothed := sum / float64(len(e.history))
	value := max(e.lastEmitted, min(smoothed, progressCap))
	e.lastEmitted = value
	e.lastEmitAt = e.now()

	speed := e.speedLocked()
	return Event{
		Progress:        value,
		Speed:           speed,
		ETA:             e.etaLocked(value, speed),
		DownloadedBytes: e.downloadedBytes,
		TotalBytes:      e.totalBytes,
		CurrentTime:     e.currentTime,
		TotalDuration:   e.totalDuration,
		CurrentSegment:  e.currentSegment,
		TotalSegments:   e.totalSegments,
		Strategy:        e.active().String(),
	}
}

// speedLocked derives bytes/sec from the rolling window rather than an
// instantaneous delta, so bursty reads do not spike the reading.
func (e *Estimator) speedLocked() float64 {
	e.trimSamplesLocked()
	if len(e.samples) < 2 {
		return 0
	}
	first, last := e.samples[0], e.samples[len(e.samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		return 0
	}
	return float64(last.bytes-first.bytes) / dt
}

func (e *Estimator) etaLocked(progress, speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	total := float64(e.totalBytes)
	if total <= 0 && progress > 0 {
		total = float64(e.downloadedBytes) / (progress / 100)
	}
	remaining := total - float64(e.downloadedBytes)
	if remaining <= 0 {
		return 0
	}
	return remaining / speed
}

func (e *Estimator) trimSamplesLocked() {
	cutoff := e.now().Add(-speedWindow)
	i := 0
	for i < len(e.samples)-1 && e.samples[i].at.Before(cutoff) {
		i++
	}
	e.samples = e.samples[i:]
}

func (e *Estimator) stopTimersLocked() {
	if e.primaryTimer != nil {
		e.primaryTimer.Stop()
		e.primaryTimer = nil
	}
	if e.secondaryTimer != nil {
		e.secondaryTimer.Stop()
		e.secondaryTimer = nil
	}
}

// Snapshot returns the final event for terminal reporting. On verified
// success the value is finalized to 100.
func (e *Estimator) Snapshot(success bool) Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev := Event{
		Progress:        e.lastEmitted,
		DownloadedBytes: e.downloadedBytes,
		TotalBytes:      e.totalBytes,
		CurrentTime:     e.currentTime,
		TotalDuration:   e.totalDuration,
		CurrentSegment:  e.currentSegment,
		TotalSegments:   e.totalSegments,
		Strategy:        e.active().String(),
	}
	if success {
		ev.Progress = 100
	}
	return ev
}

// Diagnostics returns the retained failure-looking transcoder lines joined
// for error reporting.
func (e *Estimator) Diagnostics() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diags.join()
}

// Final returns the end-of-stream summary statistics, or nil when the
// transcoder never reported them.
func (e *Estimator) Final() *FinalStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.final
}

// Close stops pending timers. Further Consume calls are ignored.
func (e *Estimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.stopTimersLocked()
}
