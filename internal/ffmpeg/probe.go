package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const probeTimeout = 30 * time.Second

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration runs the metadata-query tool with a format-only JSON query
// and returns the media duration in seconds. It is a short-lived child
// process awaited before the main transcode starts, so progress math never
// begins without a duration while encoding is already underway.
func (b Binaries) ProbeDuration(ctx context.Context, url string, headers map[string]string) (float64, error) {
	if b.FFprobe == "" {
		return 0, fmt.Errorf("probe tool not available")
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-v", "quiet", "-print_format", "json", "-show_format"}
	if block := HeaderBlock(headers); block != "" {
		args = append(args, "-headers", block)
	}
	args = append(args, url)

	out, err := exec.CommandContext(ctx, b.FFprobe, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("duration probe failed: %w", err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("duration probe output: %w", err)
	}
	dur, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("duration probe returned no usable duration")
	}
	return dur, nil
}
