package orchestrator

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/progress"
	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// transcoderProc is the slice of the external process the orchestrator
// drives. The real implementation is ffmpeg.Process; tests stub it.
type transcoderProc interface {
	Stderr() io.Reader
	Quit() error
	Terminate() error
	Kill() error
	Wait() error
}

// Session is the mutable per-download record. It is created when the
// transcoder is spawned and leaves the registry on cancel or on exit,
// whichever comes first.
type Session struct {
	ID         string
	Request    types.DownloadRequest
	OutputPath string
	StartedAt  time.Time

	proc transcoderProc
	est  *progress.Estimator

	// canceled is the cooperative cancellation flag checked between steps.
	canceled atomic.Bool
	// handled latches emission of the terminal event so the cancel path
	// and the exit path can never both report.
	handled atomic.Bool
	// exited gates the forced-kill escalation.
	exited atomic.Bool
}

// Canceled reports whether cancellation was requested for this session.
func (s *Session) Canceled() bool { return s.canceled.Load() }

// Elapsed is the session age in seconds.
func (s *Session) Elapsed() float64 { return time.Since(s.StartedAt).Seconds() }
