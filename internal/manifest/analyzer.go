// Package manifest fetches and inspects streaming playlists to enrich
// progress estimation with duration, segment count, and bandwidth. All of
// it is optional: any network or parse failure means "no metadata", never
// a failed download.
package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

const (
	fetchTimeout = 15 * time.Second
	// defaultBandwidth is a conservative fallback when no bitrate is
	// declared anywhere in the document.
	defaultBandwidth = 5_000_000
	// assumedSegmentSeconds backfills segment counts for DASH manifests
	// without a usable SegmentTemplate.
	assumedSegmentSeconds = 6.0

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// Info is the analyzer's output for one manifest fetch.
type Info struct {
	SegmentCount  int
	TotalDuration float64 // seconds
	Bandwidth     int64   // bits/sec, peak across variants/representations
	IsMaster      bool
	Variants      []Variant
}

// Variant is one entry of a master playlist.
type Variant struct {
	URL       string
	Bandwidth int64
}

// Classification is the result of a cheap light parse.
type Classification struct {
	IsMaster  bool
	IsVariant bool
}

// Analyzer fetches and parses manifests.
type Analyzer struct {
	client *http.Client
	log    types.Logger
}

// New returns an analyzer. A nil client uses http.DefaultClient.
func New(client *http.Client, log types.Logger) *Analyzer {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = types.NopLogger{}
	}
	return &Analyzer{client: client, log: log}
}

// Parse fetches the document at url and extracts stream metadata. For a
// master HLS playlist the top-bandwidth variant is fetched and parsed in
// its place. Errors mean metadata is unavailable, nothing more.
func (a *Analyzer) Parse(ctx context.Context, url string, mt types.MediaType, headers map[string]string) (*Info, error) {
	switch mt {
	case types.MediaHLS:
		return a.parseHLS(ctx, url, headers)
	case types.MediaDASH:
		return a.parseDASH(ctx, url, headers)
	}
	return nil, fmt.Errorf("no manifest for media type %q", mt)
}

// LightParse classifies the document with a small byte-range fetch, enough
// to decide whether a full parse pass is worth doing.
func (a *Analyzer) LightParse(ctx context.Context, url string, mt types.MediaType, headers map[string]string) Classification {
	body, err := a.fetchRange(ctx, url, headers, 2048)
	if err != nil {
		a.log.Debugf("manifest: light parse of %s failed: %v", url, err)
		return Classification{}
	}
	return classify(string(body), mt)
}

func (a *Analyzer) fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return a.fetchRange(ctx, url, headers, 0)
}

func (a *Analyzer) fetchRange(ctx context.Context, url string, headers map[string]string, limit int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if limit > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", limit-1))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("manifest fetch failed: status %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	return io.ReadAll(r)
}
