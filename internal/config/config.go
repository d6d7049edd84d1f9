// Package config resolves host configuration from the environment with
// sensible zero-config defaults: the host is normally launched by the
// browser, not by a user who can pass flags.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the deployment knobs of the host process.
type Config struct {
	// FFmpegPath and FFprobePath override PATH lookup of the transcoder
	// and its probe companion.
	FFmpegPath  string
	FFprobePath string

	// DownloadDir is the default save location when a request names none.
	// Empty resolves to the user's Downloads directory.
	DownloadDir string

	// DataDir holds the download-history database.
	DataDir string

	// LogFile, when set, duplicates stderr logging into a file.
	LogFile string

	// Debug enables verbose per-session logging.
	Debug bool

	// HeartbeatInterval is the expected spacing of extension heartbeats.
	// The watchdog exits the host after three missed intervals.
	HeartbeatInterval time.Duration
}

// FromEnv reads configuration from MVD_* environment variables and applies
// defaults.
func FromEnv() Config {
	cfg := Config{
		FFmpegPath:        os.Getenv("MVD_FFMPEG"),
		FFprobePath:       os.Getenv("MVD_FFPROBE"),
		DownloadDir:       os.Getenv("MVD_DOWNLOAD_DIR"),
		DataDir:           os.Getenv("MVD_DATA_DIR"),
		LogFile:           os.Getenv("MVD_LOG_FILE"),
		Debug:             os.Getenv("MVD_DEBUG") != "",
		HeartbeatInterval: 10 * time.Second,
	}
	if v := os.Getenv("MVD_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HeartbeatInterval = d
		}
	}
	if cfg.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.DataDir = filepath.Join(dir, "max-video-downloader")
		}
	}
	return cfg
}
