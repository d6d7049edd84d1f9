package manifest

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/Suwot/max-video-downloader-sub001/internal/types"
)

var errUnknownPlaylist = errors.New("unknown playlist type")

func (a *Analyzer) parseHLS(ctx context.Context, manifestURL string, headers map[string]string) (*Info, error) {
	body, err := a.fetch(ctx, manifestURL, headers)
	if err != nil {
		return nil, err
	}

	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, err
	}

	switch listType {
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		return a.parseMaster(ctx, manifestURL, master, headers)
	case m3u8.MEDIA:
		media := pl.(*m3u8.MediaPlaylist)
		info := mediaInfo(media)
		info.Bandwidth = defaultBandwidth
		return info, nil
	}
	return nil, errUnknownPlaylist
}

// parseMaster picks the top-bandwidth variant and parses its media playlist
// in place of the master document.
func (a *Analyzer) parseMaster(ctx context.Context, baseURL string, master *m3u8.MasterPlaylist, headers map[string]string) (*Info, error) {
	variants := make([]Variant, 0, len(master.Variants))
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		variants = append(variants, Variant{
			URL:       resolveRef(baseURL, v.URI),
			Bandwidth: int64(v.Bandwidth),
		})
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Bandwidth > variants[j].Bandwidth })

	info := &Info{IsMaster: true, Variants: variants, Bandwidth: defaultBandwidth}
	if len(variants) == 0 {
		return info, nil
	}
	if variants[0].Bandwidth > 0 {
		info.Bandwidth = variants[0].Bandwidth
	}

	body, err := a.fetch(ctx, variants[0].URL, headers)
	if err != nil {
		a.log.Debugf("manifest: top variant fetch failed: %v", err)
		return info, nil
	}
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil || listType != m3u8.MEDIA {
		a.log.Debugf("manifest: top variant parse failed: %v", err)
		return info, nil
	}

	media := mediaInfo(pl.(*m3u8.MediaPlaylist))
	info.SegmentCount = media.SegmentCount
	info.TotalDuration = media.TotalDuration
	return info, nil
}

func mediaInfo(media *m3u8.MediaPlaylist) *Info {
	info := &Info{}
	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}
		info.SegmentCount++
		info.TotalDuration += seg.Duration
	}
	return info
}

func resolveRef(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

func classify(head string, mt types.MediaType) Classification {
	switch mt {
	case types.MediaHLS:
		return Classification{
			IsMaster:  strings.Contains(head, "#EXT-X-STREAM-INF"),
			IsVariant: strings.Contains(head, "#EXTINF"),
		}
	case types.MediaDASH:
		return Classification{IsVariant: strings.Contains(head, "<MPD")}
	}
	return Classification{}
}
