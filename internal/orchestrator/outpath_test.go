package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

func TestResolveFileName(t *testing.T) {
	tests := []struct {
		name     string
		req      types.DownloadRequest
		wantBase string
		wantExt  string
	}{
		{
			"explicit filename wins",
			types.DownloadRequest{Filename: "My Clip", Container: "mp4", DownloadURL: "https://e.com/x.mp4"},
			"My Clip", ".mp4",
		},
		{
			"url basename with query stripped",
			types.DownloadRequest{DownloadURL: "https://cdn.example.com/media/trailer.mp4?token=abc", Container: "mp4"},
			"trailer", ".mp4",
		},
		{
			"matching extension not doubled",
			types.DownloadRequest{Filename: "clip.mp4", Container: "mp4"},
			"clip", ".mp4",
		},
		{
			"foreign extension stripped",
			types.DownloadRequest{Filename: "stream.m3u8", Container: "mp4"},
			"stream", ".mp4",
		},
		{
			"long dotted name survives",
			types.DownloadRequest{Filename: "episode.season.finale", Container: "mp4"},
			"episode.season", ".mp4",
		},
		{
			"empty defaults to video",
			types.DownloadRequest{DownloadURL: "https://cdn.example.com/"},
			"video", ".mp4",
		},
		{
			"empty audio-only defaults to audio",
			types.DownloadRequest{DownloadURL: "https://cdn.example.com/", AudioOnly: true},
			"audio", ".m4a",
		},
		{
			"subs-only default container",
			types.DownloadRequest{Filename: "captions", SubsOnly: true},
			"captions", ".srt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := resolveFileName(tt.req)
			if base != tt.wantBase || ext != tt.wantExt {
				t.Fatalf("got (%q, %q), want (%q, %q)", base, ext, tt.wantBase, tt.wantExt)
			}
		})
	}
}

func TestResolveDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	downloads := filepath.Join(home, "Downloads")

	for _, in := range []string{"", "Desktop"} {
		got, err := resolveDir(in)
		if err != nil {
			t.Fatalf("resolveDir(%q): %v", in, err)
		}
		if got != downloads {
			t.Fatalf("resolveDir(%q) = %q, want %q", in, got, downloads)
		}
	}

	if got, _ := resolveDir("/data/media"); got != "/data/media" {
		t.Fatalf("explicit dir = %q", got)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := uniquePath(dir, "video", ".mp4", nil)
	if first != filepath.Join(dir, "video.mp4") {
		t.Fatalf("first = %q", first)
	}

	// Collision with an existing file.
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := uniquePath(dir, "video", ".mp4", nil)
	if second != filepath.Join(dir, "video (1).mp4") {
		t.Fatalf("second = %q", second)
	}

	// Collision with an active session's reserved path.
	taken := map[string]struct{}{second: {}}
	third := uniquePath(dir, "video", ".mp4", taken)
	if third != filepath.Join(dir, "video (2).mp4") {
		t.Fatalf("third = %q", third)
	}
}
