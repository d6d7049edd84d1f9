package types

// MediaType identifies how the source media is delivered.
type MediaType string

const (
	// MediaDirect is a plain progressive file (mp4, webm, mp3, ...).
	MediaDirect MediaType = "direct"
	// MediaHLS is an HTTP Live Streaming playlist.
	MediaHLS MediaType = "hls"
	// MediaDASH is an MPEG-DASH manifest.
	MediaDASH MediaType = "dash"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaDirect, MediaHLS, MediaDASH:
		return true
	}
	return false
}

// DownloadRequest is the immutable input for one download, decoded from the
// "download" wire command. It is never mutated after dispatch; sessions keep
// a reference to the original request so terminal events can echo it back
// for the redownload UX.
type DownloadRequest struct {
	// DownloadID is the caller-assigned unique token for this download.
	// It is mandatory: a request without it is a contract violation.
	DownloadID string `json:"downloadId"`

	// DownloadURL is the primary source URL.
	DownloadURL string `json:"downloadUrl"`

	// Inputs lists additional source URLs for multi-input downloads
	// (e.g. separate video and audio renditions). When set, DownloadURL
	// is the first input.
	Inputs []string `json:"inputs,omitempty"`

	// MasterURL is the master playlist this stream was selected from,
	// when known. Used only for reporting.
	MasterURL string `json:"masterUrl,omitempty"`

	Type      MediaType `json:"type"`
	Container string    `json:"container,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	SavePath  string    `json:"savePath,omitempty"`

	AudioOnly bool `json:"audioOnly,omitempty"`
	SubsOnly  bool `json:"subsOnly,omitempty"`

	// StreamSelection is a transcoder -map style track selection spec for
	// DASH/advanced HLS downloads (e.g. "0:v:0,1:a:0").
	StreamSelection string `json:"streamSelection,omitempty"`

	// Headers are sent with every media/manifest request and forwarded to
	// the transcoder per input.
	Headers map[string]string `json:"headers,omitempty"`

	// Optional caller-known metadata. Zero means unknown.
	Duration      float64 `json:"duration,omitempty"`
	FileSizeBytes int64   `json:"fileSizeBytes,omitempty"`
	SegmentCount  int     `json:"segmentCount,omitempty"`

	// IsRedownload marks a retry of a previously finished download.
	IsRedownload bool `json:"isRedownload,omitempty"`
}
