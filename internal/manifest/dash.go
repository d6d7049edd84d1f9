package manifest

import (
	"context"
	"encoding/xml"
	"regexp"
	"strconv"
)

type mpdDocument struct {
	XMLName                   xml.Name    `xml:"MPD"`
	MediaPresentationDuration string      `xml:"mediaPresentationDuration,attr"`
	Periods                   []mpdPeriod `xml:"Period"`
}

type mpdPeriod struct {
	AdaptationSets []mpdAdaptationSet `xml:"AdaptationSet"`
}

type mpdAdaptationSet struct {
	SegmentTemplate *mpdSegmentTemplate `xml:"SegmentTemplate"`
	Representations []mpdRepresentation `xml:"Representation"`
}

type mpdRepresentation struct {
	Bandwidth       int64               `xml:"bandwidth,attr"`
	SegmentTemplate *mpdSegmentTemplate `xml:"SegmentTemplate"`
}

type mpdSegmentTemplate struct {
	Duration  int64 `xml:"duration,attr"`
	Timescale int64 `xml:"timescale,attr"`
}

func (a *Analyzer) parseDASH(ctx context.Context, manifestURL string, headers map[string]string) (*Info, error) {
	body, err := a.fetch(ctx, manifestURL, headers)
	if err != nil {
		return nil, err
	}

	var doc mpdDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	info := &Info{
		TotalDuration: parseISODuration(doc.MediaPresentationDuration),
		Bandwidth:     defaultBandwidth,
	}

	var template *mpdSegmentTemplate
	for _, period := range doc.Periods {
		for _, set := range period.AdaptationSets {
			if template == nil && usableTemplate(set.SegmentTemplate) {
				template = set.SegmentTemplate
			}
			for _, rep := range set.Representations {
				if rep.Bandwidth > info.Bandwidth || (rep.Bandwidth > 0 && info.Bandwidth == defaultBandwidth) {
					info.Bandwidth = rep.Bandwidth
				}
				if template == nil && usableTemplate(rep.SegmentTemplate) {
					template = rep.SegmentTemplate
				}
			}
		}
	}

	if info.TotalDuration > 0 {
		segSeconds := assumedSegmentSeconds
		if template != nil {
			segSeconds = float64(template.Duration) / float64(template.Timescale)
		}
		if segSeconds > 0 {
			info.SegmentCount = int(info.TotalDuration/segSeconds + 0.5)
			if info.SegmentCount == 0 {
				info.SegmentCount = 1
			}
		}
	}
	return info, nil
}

func usableTemplate(t *mpdSegmentTemplate) bool {
	return t != nil && t.Duration > 0 && t.Timescale > 0
}

// isoDurationRe matches the xs:duration subset DASH manifests use, e.g.
// "PT1H23M45.6S" or "P1DT2H".
var isoDurationRe = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

func parseISODuration(v string) float64 {
	m := isoDurationRe.FindStringSubmatch(v)
	if m == nil {
		return 0
	}
	var total float64
	for i, mult := range []float64{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0
		}
		total += n * mult
	}
	return total
}
