package orchestrator

import (
	"github.com/Suwot/max-video-downloader-sub001/internal/progress"
	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// EventSink is where session events leave the orchestrator, normally the
// message channel. Events carry no correlation id: they are fire-and-forget
// and not constrained to a single reply per request.
type EventSink interface {
	Send(v any) error
}

const (
	cmdProgress = "download-progress"
	cmdSuccess  = "download-success"
	cmdError    = "download-error"
	cmdCanceled = "download-canceled"
)

// progressEvent is the wire form of one throttled estimator event.
type progressEvent struct {
	Command     string `json:"command"`
	DownloadID  string `json:"downloadId"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	progress.Event
}

// terminalEvent is the single terminal report per session. DownloadID is a
// pointer so a cancel for an unknown download acknowledges with null.
type terminalEvent struct {
	Command     string                 `json:"command"`
	DownloadID  *string                `json:"downloadId"`
	DownloadURL string                 `json:"downloadUrl,omitempty"`
	OutputPath  string                 `json:"outputPath,omitempty"`
	Outcome     string                 `json:"outcome,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Diagnostics string                 `json:"diagnostics,omitempty"`
	Elapsed     float64                `json:"elapsed,omitempty"`
	Progress    *progress.Event        `json:"progress,omitempty"`
	Stats       *progress.FinalStats   `json:"stats,omitempty"`
	Request     *types.DownloadRequest `json:"request,omitempty"`
}
