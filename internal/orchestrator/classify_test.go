package orchestrator

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		facts exitFacts
		want  Outcome
	}{
		{
			"clean exit with valid output",
			exitFacts{ExitCode: 0, ValidOutput: true, MediaType: types.MediaHLS},
			OutcomeSuccess,
		},
		{
			"clean exit without output",
			exitFacts{ExitCode: 0, ValidOutput: false, MediaType: types.MediaHLS},
			OutcomeError,
		},
		{
			"signal beats everything",
			exitFacts{Signal: "terminated", ExitCode: 0, ValidOutput: true, MediaType: types.MediaDirect},
			OutcomeCanceled,
		},
		{
			"cancel flag beats clean exit",
			exitFacts{Canceled: true, ExitCode: 0, ValidOutput: true, MediaType: types.MediaHLS},
			OutcomeCanceled,
		},
		{
			"canceled direct download with playable partial",
			exitFacts{Canceled: true, ExitCode: 0, ValidOutput: true, MediaType: types.MediaDirect},
			OutcomePartialSuccess,
		},
		{
			"canceled direct download without valid output",
			exitFacts{Canceled: true, ExitCode: 1, ValidOutput: false, MediaType: types.MediaDirect},
			OutcomeCanceled,
		},
		{
			"nonzero exit",
			exitFacts{ExitCode: 1, ValidOutput: false, MediaType: types.MediaHLS},
			OutcomeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.facts)
			if got.Outcome != tt.want {
				t.Fatalf("outcome = %s, want %s (reason %q)", got.Outcome, tt.want, got.Reason)
			}
			if got.Reason == "" || got.Method == "" {
				t.Fatalf("termination incomplete: %+v", got)
			}
		})
	}
}

func TestValidOutput(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, bytes.Repeat([]byte("x"), size), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	if validOutput(filepath.Join(dir, "missing.mp4"), false) {
		t.Fatal("missing file reported valid")
	}
	if validOutput(write("tiny.mp4", 100), false) {
		t.Fatal("100B media file reported valid")
	}
	if !validOutput(write("ok.mp4", 10*1024), false) {
		t.Fatal("10KB media file reported invalid")
	}
	if validOutput(write("tiny.srt", 50), true) {
		t.Fatal("50B subtitle file reported valid")
	}
	if !validOutput(write("ok.srt", 200), true) {
		t.Fatal("200B subtitle file reported invalid")
	}
	if validOutput(dir, false) {
		t.Fatal("directory reported valid")
	}
}
