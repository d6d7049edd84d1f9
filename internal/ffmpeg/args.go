package ffmpeg

import (
	"sort"
	"strings"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// streamingProtocols is the allow-list passed for playlist inputs, which
// reference further resources over mixed protocols.
const streamingProtocols = "file,http,https,tcp,tls,crypto"

// BuildArgs constructs the transcoder argument list for one download.
// Status and machine-readable progress both go to the error stream; stdout
// stays silent so it never competes with the wire protocol of a caller
// that forgot to redirect it.
func BuildArgs(req types.DownloadRequest, outputPath string) []string {
	args := []string{"-hide_banner", "-y", "-loglevel", "info", "-stats"}

	inputs := req.Inputs
	if len(inputs) == 0 {
		inputs = []string{req.DownloadURL}
	}
	headerBlock := HeaderBlock(req.Headers)
	for _, in := range inputs {
		if req.Type == types.MediaHLS || req.Type == types.MediaDASH {
			args = append(args, "-protocol_whitelist", streamingProtocols)
		}
		if headerBlock != "" {
			args = append(args, "-headers", headerBlock)
		}
		args = append(args, "-i", in)
	}

	args = append(args, mapArgs(req, len(inputs))...)
	args = append(args, codecArgs(req)...)
	args = append(args, containerArgs(req)...)
	args = append(args, "-progress", "pipe:2")
	args = append(args, outputPath)
	return args
}

// mapArgs selects tracks. An explicit selection spec wins; otherwise the
// flags decide, and multi-input downloads pair video from the first input
// with audio from the second.
func mapArgs(req types.DownloadRequest, inputCount int) []string {
	if req.StreamSelection != "" {
		var args []string
		for _, sel := range strings.Split(req.StreamSelection, ",") {
			sel = strings.TrimSpace(sel)
			if sel != "" {
				args = append(args, "-map", sel)
			}
		}
		return args
	}
	switch {
	case req.SubsOnly:
		return []string{"-map", "0:s:0?"}
	case req.AudioOnly:
		return []string{"-map", "0:a:0?"}
	case inputCount > 1:
		return []string{"-map", "0:v:0", "-map", "1:a:0"}
	}
	return nil
}

// codecArgs picks stream copy when the container can take the source tracks
// as-is, a bounded re-encode otherwise.
func codecArgs(req types.DownloadRequest) []string {
	if req.SubsOnly {
		if req.Container == "vtt" {
			return []string{"-c:s", "webvtt"}
		}
		return []string{"-c:s", "srt"}
	}
	switch req.Container {
	case "mp3":
		return []string{"-c:a", "libmp3lame", "-b:a", "192k"}
	case "ogg":
		return []string{"-c:a", "libvorbis", "-b:a", "192k"}
	}
	if req.AudioOnly {
		return []string{"-c:a", "copy"}
	}
	return []string{"-c", "copy"}
}

func containerArgs(req types.DownloadRequest) []string {
	var args []string
	switch req.Container {
	case "mp4", "m4a", "mov", "":
		args = append(args, "-movflags", "+faststart")
		if req.Type == types.MediaHLS && !req.AudioOnly && !req.SubsOnly {
			// ADTS AAC from transport streams needs repackaging for mp4.
			args = append(args, "-bsf:a", "aac_adtstoasc")
		}
	}
	return args
}

// HeaderBlock renders headers in the transcoder's expected escaped form:
// one "Name: value" pair per CRLF-terminated line, deterministic order.
func HeaderBlock(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.String()
}
