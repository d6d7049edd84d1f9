package progress

import (
	"regexp"
	"strconv"
	"strings"
)

// statusUpdate is the distilled content of one transcoder status line.
// Negative numeric fields mean "not present in this line".
type statusUpdate struct {
	currentTime float64 // seconds
	totalBytes  int64   // cumulative output size
	bitrate     float64 // kbits/s
	segment     bool    // one more media segment opened
	end         bool    // end-of-stream marker
	summary     *FinalStats
}

// FinalStats holds the transcoder's end-of-run summary, captured once and
// immutable afterwards.
type FinalStats struct {
	VideoBytes         int64   `json:"videoBytes"`
	AudioBytes         int64   `json:"audioBytes"`
	SubtitleBytes      int64   `json:"subtitleBytes"`
	OtherBytes         int64   `json:"otherBytes"`
	GlobalHeaderBytes  int64   `json:"globalHeaderBytes"`
	MuxOverheadPercent float64 `json:"muxOverheadPercent"`
	FinalBitrate       float64 `json:"finalBitrate,omitempty"` // kbits/s
}

var (
	// Classic one-line status: size=    1024kB time=00:00:10.00 bitrate= 838.9kbits/s speed=1.2x
	classicSizeRe    = regexp.MustCompile(`size=\s*(\d+)(k?i?B)`)
	classicTimeRe    = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	classicBitrateRe = regexp.MustCompile(`bitrate=\s*([\d.]+)\s*kbits/s`)

	// End-of-run mux summary:
	// video:5708kB audio:321kB subtitle:0kB other streams:0kB global headers:0kB muxing overhead: 0.527468%
	summaryRe = regexp.MustCompile(`video:(\d+)[kK]i?B audio:(\d+)[kK]i?B subtitle:(\d+)[kK]i?B other streams:(\d+)[kK]i?B global headers:(\d+)[kK]i?B muxing overhead:?\s*([\d.]+)%`)

	segmentOpenRe = regexp.MustCompile(`Opening '(https?://[^']+)' for reading`)
)

// parseStatusLine extracts progress data from one line of transcoder status
// text. It understands both the machine-readable key=value form emitted by
// "-progress" and the classic human status line, since both arrive on the
// same stream.
func parseStatusLine(line string) statusUpdate {
	u := statusUpdate{currentTime: -1, totalBytes: -1, bitrate: -1}
	line = strings.TrimSpace(line)
	if line == "" {
		return u
	}

	if m := summaryRe.FindStringSubmatch(line); m != nil {
		u.summary = &FinalStats{
			VideoBytes:        kbToBytes(m[1]),
			AudioBytes:        kbToBytes(m[2]),
			SubtitleBytes:     kbToBytes(m[3]),
			OtherBytes:        kbToBytes(m[4]),
			GlobalHeaderBytes: kbToBytes(m[5]),
		}
		u.summary.MuxOverheadPercent, _ = strconv.ParseFloat(m[6], 64)
		u.end = true
		return u
	}

	if segmentOpenRe.MatchString(line) {
		u.segment = true
		return u
	}

	// key=value pairs from -progress output.
	if k, v, ok := strings.Cut(line, "="); ok && !strings.ContainsAny(k, " \t") {
		v = strings.TrimSpace(v)
		switch k {
		case "out_time_ms", "out_time_us":
			// Despite the _ms name the value is microseconds.
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				u.currentTime = float64(n) / 1e6
			}
			return u
		case "out_time":
			if sec, ok := parseClock(v); ok {
				u.currentTime = sec
			}
			return u
		case "total_size":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				u.totalBytes = n
			}
			return u
		case "bitrate":
			if m := classicBitrateRe.FindStringSubmatch(line); m != nil {
				u.bitrate, _ = strconv.ParseFloat(m[1], 64)
			}
			return u
		case "progress":
			u.end = v == "end"
			return u
		}
	}

	// Classic combined status line.
	if strings.Contains(line, "time=") && strings.Contains(line, "size=") {
		if m := classicSizeRe.FindStringSubmatch(line); m != nil {
			u.totalBytes = kbToBytes(m[1])
		}
		if m := classicTimeRe.FindStringSubmatch(line); m != nil {
			h, _ := strconv.Atoi(m[1])
			mi, _ := strconv.Atoi(m[2])
			s, _ := strconv.ParseFloat(m[3], 64)
			u.currentTime = float64(h)*3600 + float64(mi)*60 + s
		}
		if m := classicBitrateRe.FindStringSubmatch(line); m != nil {
			u.bitrate, _ = strconv.ParseFloat(m[1], 64)
		}
	}
	return u
}

func parseClock(v string) (float64, bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}

func kbToBytes(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n * 1024
}
