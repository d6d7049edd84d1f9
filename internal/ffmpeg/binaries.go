// Package ffmpeg wraps the external transcoder and its metadata-probe
// companion. Both are black boxes: arguments go in, status text and an
// exit code come out.
package ffmpeg

import (
	"fmt"
	"os/exec"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// Binaries holds resolved paths to the transcoder and probe tools.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// Resolve locates the binaries. Empty overrides fall back to PATH lookup.
func Resolve(ffmpegPath, ffprobePath string) (Binaries, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return Binaries{}, fmt.Errorf("%w: %s", types.ErrTranscoderNotFound, ffmpegPath)
	}
	probe, err := exec.LookPath(ffprobePath)
	if err != nil {
		// The probe is optional enrichment; downloads still work without
		// it, they just start without a known duration.
		probe = ""
	}
	return Binaries{FFmpeg: resolved, FFprobe: probe}, nil
}

// Available reports whether the transcoder was resolved.
func (b Binaries) Available() bool { return b.FFmpeg != "" }
