package progress

import "github.com/Suwot/max-video-downloader-sub001/internal/types"

// Strategy identifies how percent-complete is computed for a session.
type Strategy int

const (
	// StrategyNone means no usable estimation basis yet.
	StrategyNone Strategy = iota
	// StrategyDuration estimates from transcoded time vs total duration.
	StrategyDuration
	// StrategySize estimates from downloaded bytes vs total bytes.
	StrategySize
	// StrategySegments estimates from fetched segments vs total segments.
	StrategySegments
	// StrategyDynamic defers the choice until real data arrives, then locks
	// the first strategy that produced usable numbers for the whole session.
	StrategyDynamic
)

func (s Strategy) String() string {
	switch s {
	case StrategyDuration:
		return "duration"
	case StrategySize:
		return "size"
	case StrategySegments:
		return "segments"
	case StrategyDynamic:
		return "dynamic"
	}
	return "none"
}

// Metadata is what is known about the media before transcoding starts.
// Zero values mean unknown.
type Metadata struct {
	Duration      float64 // seconds
	TotalBytes    int64
	TotalSegments int
	AudioOnly     bool
}

// SelectStrategy picks the primary strategy for a media type given the
// available metadata. First match wins.
//
// For direct audio-only extraction the source file size reflects the whole
// source media, not the extracted track, and would undercount badly, so a
// known duration takes precedence over a known size.
func SelectStrategy(mt types.MediaType, meta Metadata) Strategy {
	switch mt {
	case types.MediaDirect:
		if meta.AudioOnly && meta.Duration > 0 {
			return StrategyDuration
		}
		if meta.TotalBytes > 0 {
			return StrategySize
		}
		if meta.Duration > 0 {
			return StrategyDuration
		}
	case types.MediaHLS:
		if meta.Duration > 0 {
			return StrategyDuration
		}
		if meta.TotalBytes > 0 {
			return StrategySize
		}
		if meta.TotalSegments > 0 {
			return StrategySegments
		}
	case types.MediaDASH:
		if meta.Duration > 0 {
			return StrategyDuration
		}
		if meta.TotalBytes > 0 {
			return StrategySize
		}
	}
	return StrategyDynamic
}
