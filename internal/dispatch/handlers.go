package dispatch

import (
	"context"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/ffmpeg"
	"github.com/Suwot/max-video-downloader-sub001/internal/history"
	"github.com/Suwot/max-video-downloader-sub001/internal/orchestrator"
	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// Deps are the collaborators the core command handlers need.
type Deps struct {
	Engine   *orchestrator.Engine
	History  *history.Store // may be nil
	Binaries ffmpeg.Binaries
	Version  string // host build version reported to the extension
	Shutdown func() // orderly host exit
	Touch    func() // refreshes the liveness clock, optional
}

// RegisterCore binds the host's command set onto d.
func RegisterCore(d *Dispatcher, deps Deps) {
	d.Register("download", func(ctx context.Context, req *Request) {
		var dl types.DownloadRequest
		if err := req.Decode(&dl); err != nil {
			req.RespondError(err)
			return
		}
		sess, err := deps.Engine.Start(ctx, dl)
		if err != nil {
			req.RespondError(err)
			return
		}
		req.Respond(map[string]any{
			"status":     "started",
			"downloadId": sess.ID,
			"outputPath": sess.OutputPath,
		})
	})

	d.Register("cancel-download", func(ctx context.Context, req *Request) {
		var c struct {
			DownloadID  string `json:"downloadId"`
			DownloadURL string `json:"downloadUrl"`
		}
		if err := req.Decode(&c); err != nil {
			req.RespondError(err)
			return
		}
		found := deps.Engine.Cancel(c.DownloadID, c.DownloadURL)
		status := "canceling"
		if !found {
			status = "not found"
		}
		req.Respond(map[string]any{"status": status})
	})

	d.Register("heartbeat", func(_ context.Context, req *Request) {
		if deps.Touch != nil {
			deps.Touch()
		}
		req.Respond(map[string]any{
			"status": "alive",
			"ts":     time.Now().UnixMilli(),
		})
	})

	d.Register("quit", func(_ context.Context, req *Request) {
		req.Respond(map[string]any{"status": "bye"})
		if deps.Shutdown != nil {
			deps.Shutdown()
		}
	})

	d.Register("get-config", func(_ context.Context, req *Request) {
		req.Respond(map[string]any{
			"version":   deps.Version,
			"ffmpeg":    deps.Binaries.FFmpeg,
			"ffprobe":   deps.Binaries.FFprobe,
			"available": deps.Binaries.Available(),
		})
	})

	d.Register("list-history", func(_ context.Context, req *Request) {
		if deps.History == nil {
			req.Respond(map[string]any{"error": "history unavailable"})
			return
		}
		var q struct {
			Limit int `json:"limit"`
		}
		_ = req.Decode(&q)
		entries, err := deps.History.List(q.Limit)
		if err != nil {
			req.RespondError(err)
			return
		}
		req.Respond(map[string]any{"entries": entries})
	})

	d.Register("clear-history", func(_ context.Context, req *Request) {
		if deps.History == nil {
			req.Respond(map[string]any{"error": "history unavailable"})
			return
		}
		if err := deps.History.Clear(); err != nil {
			req.RespondError(err)
			return
		}
		req.Respond(map[string]any{"status": "cleared"})
	})
}
