// Command host is the native messaging helper behind the browser
// extension: it reads framed JSON commands from stdin, drives the external
// transcoder, and streams progress and terminal events back over stdout.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/config"
	"github.com/Suwot/max-video-downloader-sub001/internal/dispatch"
	"github.com/Suwot/max-video-downloader-sub001/internal/ffmpeg"
	"github.com/Suwot/max-video-downloader-sub001/internal/history"
	"github.com/Suwot/max-video-downloader-sub001/internal/ipc"
	"github.com/Suwot/max-video-downloader-sub001/internal/orchestrator"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.FromEnv()

	logOut := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			logOut = io.MultiWriter(os.Stderr, f)
		}
	}
	logger := &stdLogger{l: log.New(logOut, "host ", log.LstdFlags|log.Lmsgprefix), debug: cfg.Debug}

	exitCh := make(chan struct{})
	var exitOnce sync.Once
	shutdown := func() { exitOnce.Do(func() { close(exitCh) }) }

	channel := ipc.New(os.Stdin, os.Stdout, logger, shutdown)

	bins, err := ffmpeg.Resolve(cfg.FFmpegPath, cfg.FFprobePath)
	if err != nil {
		// Keep serving: get-config lets the extension surface the problem,
		// and download requests fail with a clear spawn error.
		logger.Errorf("startup: %v", err)
	}

	var hist *history.Store
	if cfg.DataDir != "" {
		if s, herr := history.Open(cfg.DataDir); herr != nil {
			logger.Warnf("startup: history disabled: %v", herr)
		} else {
			hist = s
			defer s.Close()
		}
	}

	engCfg := orchestrator.Config{
		Sink:        channel,
		Binaries:    bins,
		Logger:      logger,
		DownloadDir: cfg.DownloadDir,
	}
	if hist != nil {
		engCfg.History = hist
	}
	engine := orchestrator.NewEngine(engCfg)

	dispatcher := dispatch.New(channel, logger)
	dispatch.RegisterCore(dispatcher, dispatch.Deps{
		Engine:   engine,
		History:  hist,
		Binaries: bins,
		Version:  version,
		Shutdown: shutdown,
	})

	stopWatchdog := channel.StartWatchdog(3*cfg.HeartbeatInterval, 2*time.Second)
	defer stopWatchdog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if rerr := channel.Run(func(m *ipc.Message) { dispatcher.Dispatch(ctx, m) }); rerr != nil {
			logger.Errorf("channel: %v", rerr)
		}
		shutdown()
	}()

	<-exitCh
	engine.CancelAll()
	// Give in-flight terminal events a moment to flush before the pipe
	// goes away with the process.
	time.Sleep(300 * time.Millisecond)
	logger.Warnf("exiting")
}

type stdLogger struct {
	l     *log.Logger
	debug bool
}

func (s *stdLogger) Debugf(format string, args ...any) {
	if s.debug {
		s.l.Printf("DEBUG "+format, args...)
	}
}

func (s *stdLogger) Warnf(format string, args ...any) {
	s.l.Printf("WARN "+format, args...)
}

func (s *stdLogger) Errorf(format string, args ...any) {
	s.l.Printf("ERROR "+format, args...)
}
