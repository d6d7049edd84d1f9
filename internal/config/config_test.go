package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MVD_FFMPEG", "MVD_FFPROBE", "MVD_DOWNLOAD_DIR", "MVD_DATA_DIR", "MVD_LOG_FILE", "MVD_DEBUG", "MVD_HEARTBEAT_INTERVAL"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.FFmpegPath != "" || cfg.DownloadDir != "" || cfg.Debug {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Fatalf("heartbeat = %v", cfg.HeartbeatInterval)
	}
	if cfg.DataDir == "" {
		t.Fatal("data dir default missing")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MVD_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("MVD_DOWNLOAD_DIR", "/data/media")
	t.Setenv("MVD_DEBUG", "1")
	t.Setenv("MVD_HEARTBEAT_INTERVAL", "30s")

	cfg := FromEnv()
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg = %q", cfg.FFmpegPath)
	}
	if cfg.DownloadDir != "/data/media" {
		t.Fatalf("download dir = %q", cfg.DownloadDir)
	}
	if !cfg.Debug {
		t.Fatal("debug not set")
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("heartbeat = %v", cfg.HeartbeatInterval)
	}
}

func TestFromEnv_BadHeartbeatFallsBack(t *testing.T) {
	t.Setenv("MVD_HEARTBEAT_INTERVAL", "soon")
	if got := FromEnv().HeartbeatInterval; got != 10*time.Second {
		t.Fatalf("heartbeat = %v", got)
	}
}
