package orchestrator

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

// defaultContainer picks an extension when the request names none.
func defaultContainer(req types.DownloadRequest) string {
	switch {
	case req.SubsOnly:
		return "srt"
	case req.AudioOnly:
		return "m4a"
	}
	return "mp4"
}

// resolveFileName derives the base filename (without extension) for the
// output: the explicit filename when given, otherwise the last URL path
// element with its query string stripped. A pre-existing extension matching
// the container is removed so "clip.mp4" + container mp4 does not become
// "clip.mp4.mp4". Empty results default by flags.
func resolveFileName(req types.DownloadRequest) (base, ext string) {
	container := strings.TrimPrefix(strings.ToLower(req.Container), ".")
	if container == "" {
		container = defaultContainer(req)
	}
	ext = "." + container

	base = strings.TrimSpace(req.Filename)
	if base == "" {
		if u, err := url.Parse(req.DownloadURL); err == nil {
			base = path.Base(u.Path)
			if base == "." || base == "/" {
				base = ""
			}
		}
	}
	base = strings.TrimSuffix(base, ext)
	if dot := strings.LastIndex(base, "."); dot > 0 && len(base)-dot <= 5 {
		// Any other trailing extension goes too; the container decides.
		base = base[:dot]
	}
	if base == "" {
		if req.AudioOnly {
			base = "audio"
		} else {
			base = "video"
		}
	}
	return base, ext
}

// resolveDir maps the requested save location to a concrete directory.
// Empty and the legacy "Desktop" sentinel both resolve to the user's
// Downloads directory.
func resolveDir(savePath string) (string, error) {
	if savePath != "" && savePath != "Desktop" {
		return savePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// uniquePath returns dir/base+ext, appending " (n)" before the extension
// until the result collides with neither the filesystem nor taken (the
// output paths of all currently-active sessions).
func uniquePath(dir, base, ext string, taken map[string]struct{}) string {
	candidate := filepath.Join(dir, base+ext)
	for n := 1; pathTaken(candidate, taken); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
	return candidate
}

func pathTaken(p string, taken map[string]struct{}) bool {
	if _, ok := taken[p]; ok {
		return true
	}
	_, err := os.Stat(p)
	return err == nil
}
