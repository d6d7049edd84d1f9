// Package orchestrator owns the session registry, spawns and supervises the
// external transcoder, and turns process exits into exactly one terminal
// event per download.
package orchestrator

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Suwot/max-video-downloader-sub001/internal/ffmpeg"
	"github.com/Suwot/max-video-downloader-sub001/internal/history"
	"github.com/Suwot/max-video-downloader-sub001/internal/manifest"
	"github.com/Suwot/max-video-downloader-sub001/internal/progress"
	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// defaultGracePeriod is how long a canceled transcoder gets to exit on its
// own before the forced kill.
const defaultGracePeriod = 5 * time.Second

// Recorder persists terminal outcomes. Nil disables recording.
type Recorder interface {
	Record(e history.Entry) error
}

// Config wires an Engine.
type Config struct {
	Sink        EventSink
	Binaries    ffmpeg.Binaries
	Analyzer    *manifest.Analyzer
	History     Recorder
	Logger      types.Logger
	DownloadDir string        // default save location override
	GracePeriod time.Duration // cancel → forced kill window
}

// Engine is the download orchestrator.
type Engine struct {
	sink     EventSink
	bins     ffmpeg.Binaries
	analyzer *manifest.Analyzer
	registry *Registry
	history  Recorder
	log      types.Logger

	downloadDir string
	grace       time.Duration

	// spawn is swappable for tests.
	spawn func(bin string, args []string) (transcoderProc, error)
}

func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = types.NopLogger{}
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = manifest.New(nil, log)
	}
	return &Engine{
		sink:        cfg.Sink,
		bins:        cfg.Binaries,
		analyzer:    analyzer,
		registry:    NewRegistry(),
		history:     cfg.History,
		log:         log,
		downloadDir: cfg.DownloadDir,
		grace:       grace,
		spawn: func(bin string, args []string) (transcoderProc, error) {
			return ffmpeg.Start(bin, args)
		},
	}
}

// Registry exposes the session table for liveness checks and tests.
func (e *Engine) Registry() *Registry { return e.registry }

// Start validates the request, resolves a collision-free output path,
// gathers duration metadata, spawns the transcoder, and registers the
// session before its output listeners attach.
func (e *Engine) Start(ctx context.Context, req types.DownloadRequest) (*Session, error) {
	if req.DownloadID == "" {
		return nil, &CommandError{Field: "downloadId", Err: types.ErrMissingDownloadID}
	}
	if req.DownloadURL == "" && len(req.Inputs) == 0 {
		return nil, &CommandError{Field: "downloadUrl", Err: types.ErrMissingURL}
	}
	if req.DownloadURL == "" {
		req.DownloadURL = req.Inputs[0]
	}
	if req.Type == "" {
		req.Type = types.MediaDirect
	}
	if !req.Type.Valid() {
		return nil, &CommandError{Field: "type", Err: types.ErrInvalidMediaType}
	}

	savePath := req.SavePath
	if savePath == "" {
		savePath = e.downloadDir
	}
	dir, err := resolveDir(savePath)
	if err != nil {
		return nil, &CommandError{Field: "savePath", Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CommandError{Field: "savePath", Err: err}
	}
	base, ext := resolveFileName(req)
	outPath := uniquePath(dir, base, ext, e.registry.ActiveOutputPaths())

	meta := e.gatherMetadata(ctx, req)

	args := ffmpeg.BuildArgs(req, outPath)
	proc, err := e.spawn(e.bins.FFmpeg, args)
	if err != nil {
		serr := &SpawnError{DownloadID: req.DownloadID, Err: err}
		id := req.DownloadID
		_ = e.sink.Send(terminalEvent{
			Command:     cmdError,
			DownloadID:  &id,
			DownloadURL: req.DownloadURL,
			Outcome:     OutcomeError.String(),
			Reason:      serr.Error(),
			Method:      "spawn",
			Error:       serr.Error(),
			Request:     &req,
		})
		return nil, serr
	}

	sess := &Session{
		ID:         req.DownloadID,
		Request:    req,
		OutputPath: outPath,
		StartedAt:  time.Now(),
		proc:       proc,
	}
	sess.est = progress.New(req.Type, meta, func(ev progress.Event) {
		_ = e.sink.Send(progressEvent{
			Command:     cmdProgress,
			DownloadID:  sess.ID,
			DownloadURL: sess.Request.DownloadURL,
			Event:       ev,
		})
	})

	e.registry.Add(sess)
	go e.runSession(sess)

	e.log.Debugf("session %s: started strategy=%s out=%s", sess.ID, sess.est.PrimaryStrategy(), outPath)
	return sess, nil
}

// gatherMetadata fills the estimation metadata gaps: the manifest analyzer
// for streaming types, then a duration probe when duration is still
// unknown. Both are optional enrichment; failure means starting without.
func (e *Engine) gatherMetadata(ctx context.Context, req types.DownloadRequest) progress.Metadata {
	meta := progress.Metadata{
		Duration:      req.Duration,
		TotalBytes:    req.FileSizeBytes,
		TotalSegments: req.SegmentCount,
		AudioOnly:     req.AudioOnly,
	}

	if req.Type == types.MediaHLS || req.Type == types.MediaDASH {
		if meta.Duration <= 0 || meta.TotalSegments == 0 || meta.TotalBytes == 0 {
			info, err := e.analyzer.Parse(ctx, req.DownloadURL, req.Type, req.Headers)
			if err != nil {
				e.log.Debugf("session %s: no manifest metadata: %v", req.DownloadID, err)
			} else {
				if meta.Duration <= 0 {
					meta.Duration = info.TotalDuration
				}
				if meta.TotalSegments == 0 {
					meta.TotalSegments = info.SegmentCount
				}
				if meta.TotalBytes == 0 && info.Bandwidth > 0 && meta.Duration > 0 {
					// Best-effort size from peak bitrate; good enough for
					// ETA math, never for byte-exact accounting.
					meta.TotalBytes = int64(float64(info.Bandwidth) / 8 * meta.Duration)
				}
			}
		}
	}

	if meta.Duration <= 0 {
		if d, err := e.bins.ProbeDuration(ctx, req.DownloadURL, req.Headers); err == nil {
			meta.Duration = d
		} else {
			e.log.Debugf("session %s: duration probe: %v", req.DownloadID, err)
		}
	}
	return meta
}

// Cancel is idempotent: the session leaves the registry synchronously, so
// a second cancel for the same id finds nothing and only re-acknowledges.
// Non-direct downloads get their terminal event immediately; direct ones
// defer it to the exit handler, which alone can verify whether the partial
// file is playable.
// It reports whether an active session was found.
func (e *Engine) Cancel(id, fallbackURL string) bool {
	sess, ok := e.registry.Get(id)
	if !ok {
		sess, ok = e.registry.FindByURL(fallbackURL)
	}
	if !ok {
		// The caller always gets a terminal acknowledgement.
		_ = e.sink.Send(terminalEvent{
			Command:     cmdCanceled,
			DownloadID:  nil,
			DownloadURL: fallbackURL,
			Outcome:     OutcomeCanceled.String(),
			Reason:      "no active session",
			Method:      "not-found",
		})
		return false
	}

	sess.canceled.Store(true)
	e.registry.MarkCanceled(sess.ID)
	e.registry.Remove(sess.ID)

	if err := sess.proc.Quit(); err != nil {
		if terr := sess.proc.Terminate(); terr != nil {
			e.log.Warnf("session %s: terminate failed: %v", sess.ID, terr)
		}
	}
	time.AfterFunc(e.grace, func() {
		if !sess.exited.Load() {
			e.log.Warnf("session %s: grace period expired, killing transcoder", sess.ID)
			_ = sess.proc.Kill()
		}
	})

	if sess.Request.Type != types.MediaDirect {
		if sess.handled.CompareAndSwap(false, true) {
			sid := sess.ID
			snap := sess.est.Snapshot(false)
			_ = e.sink.Send(terminalEvent{
				Command:     cmdCanceled,
				DownloadID:  &sid,
				DownloadURL: sess.Request.DownloadURL,
				Outcome:     OutcomeCanceled.String(),
				Reason:      "canceled by user",
				Method:      "cancel-request",
				Elapsed:     sess.Elapsed(),
				Progress:    &snap,
				Request:     &sess.Request,
			})
		}
	}
	return true
}

// CancelAll cancels every active session, used during orderly shutdown.
func (e *Engine) CancelAll() {
	for _, sess := range e.registry.All() {
		e.Cancel(sess.ID, "")
	}
}

// runSession drains the transcoder's status stream into the estimator,
// then classifies the exit. One goroutine per active transcoder.
func (e *Engine) runSession(sess *Session) {
	scanner := bufio.NewScanner(sess.proc.Stderr())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	scanner.Split(scanStatusLines)
	for scanner.Scan() {
		sess.est.Consume(scanner.Text())
	}
	e.handleExit(sess, sess.proc.Wait())
}

// handleExit classifies the termination and emits the terminal event unless
// the cancel path already has.
func (e *Engine) handleExit(sess *Session, waitErr error) {
	sess.exited.Store(true)
	sess.est.Close()

	code, sig := ffmpeg.ExitStatus(waitErr)
	canceled := sess.Canceled() || e.registry.WasCanceled(sess.ID)
	term := classify(exitFacts{
		ExitCode:    code,
		Signal:      sig,
		Canceled:    canceled,
		ValidOutput: validOutput(sess.OutputPath, sess.Request.SubsOnly),
		MediaType:   sess.Request.Type,
	})

	e.registry.Remove(sess.ID)
	e.registry.ClearTombstone(sess.ID)

	if term.Outcome == OutcomeCanceled && sess.Request.Type != types.MediaDirect {
		if err := os.Remove(sess.OutputPath); err != nil && !os.IsNotExist(err) {
			// Cleanup failure never blocks the terminal event.
			e.log.Warnf("session %s: partial file cleanup failed: %v", sess.ID, err)
		}
	}

	if sess.handled.CompareAndSwap(false, true) {
		e.emitTerminal(sess, term)
	}
	e.record(sess, term)

	snap := sess.est.Snapshot(false)
	e.log.Debugf("session %s: closed outcome=%s method=%s downloaded=%s elapsed=%.1fs",
		sess.ID, term.Outcome, term.Method,
		humanize.Bytes(uint64(snap.DownloadedBytes)), sess.Elapsed())
}

func (e *Engine) emitTerminal(sess *Session, term Termination) {
	sid := sess.ID
	snap := sess.est.Snapshot(term.Outcome == OutcomeSuccess)
	ev := terminalEvent{
		DownloadID:  &sid,
		DownloadURL: sess.Request.DownloadURL,
		OutputPath:  sess.OutputPath,
		Outcome:     term.Outcome.String(),
		Reason:      term.Reason,
		Method:      term.Method,
		Elapsed:     sess.Elapsed(),
		Progress:    &snap,
		Stats:       sess.est.Final(),
		Request:     &sess.Request,
	}
	switch term.Outcome {
	case OutcomeSuccess, OutcomePartialSuccess:
		ev.Command = cmdSuccess
	case OutcomeCanceled:
		ev.Command = cmdCanceled
	default:
		ev.Command = cmdError
		ev.Error = term.Reason
		ev.Diagnostics = sess.est.Diagnostics()
	}
	if err := e.sink.Send(ev); err != nil {
		e.log.Warnf("session %s: terminal event send failed: %v", sess.ID, err)
	}
}

func (e *Engine) record(sess *Session, term Termination) {
	if e.history == nil {
		return
	}
	snap := sess.est.Snapshot(false)
	err := e.history.Record(history.Entry{
		DownloadID: sess.ID,
		URL:        sess.Request.DownloadURL,
		OutputPath: sess.OutputPath,
		MediaType:  string(sess.Request.Type),
		Outcome:    term.Outcome.String(),
		Bytes:      snap.DownloadedBytes,
		Elapsed:    sess.Elapsed(),
	})
	if err != nil {
		e.log.Warnf("session %s: history record failed: %v", sess.ID, err)
	}
}

// scanStatusLines splits on \n like bufio.ScanLines but also on \r, which
// the transcoder uses to repaint its classic status line in place.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
