package video

import (
	"bytes"
	"context"
	"encoding/xml"
	"html"
	"log/slog"
	"net/url"
	"strings"
)

// DefaultLanguages are tried after the requested locale
var DefaultLanguages = []string{"en", "en-US", "en-GB"}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Languages returns locale followed by DefaultLanguages, without duplicates
func Languages(locale string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range append([]string{locale}, DefaultLanguages...) {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// kindASR marks automatically generated captions
const kindASR = "asr"

// captionTrack addresses one timedtext track
type captionTrack struct {
	Lang string `xml:"lang_code,attr"`
	Kind string `xml:"kind,attr"`
	Name string `xml:"name,attr"`
}

type trackList struct {
	Tracks []captionTrack `xml:"track"`
}

// Transcript returns the plain-text captions for id. Manual captions in langs are tried
// first, then generated captions in langs, then every track the video lists.
// Fetch failures are logged and yield "", so a missing transcript and an unreachable
// endpoint look the same to callers; only a canceled ctx is returned as an error.
func (f *Fetcher) Transcript(ctx context.Context, id string, langs []string) (string, error) {
	preferred := make([]captionTrack, 0, 2*len(langs))
	for _, lang := range langs {
		preferred = append(preferred, captionTrack{Lang: lang})
	}
	for _, lang := range langs {
		preferred = append(preferred, captionTrack{Lang: lang, Kind: kindASR})
	}

	text, err := f.firstTranscript(ctx, id, preferred)
	if text != "" || err != nil {
		return text, err
	}

	listed, err := f.listTracks(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.Warn("[Video] caption track list failed", "id", id, "error", err)
		return "", nil
	}
	return f.firstTranscript(ctx, id, listed)
}

func (f *Fetcher) firstTranscript(ctx context.Context, id string, tracks []captionTrack) (string, error) {
	for _, track := range tracks {
		text, err := f.transcriptIn(ctx, id, track)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			slog.Warn("[Video] transcript fetch failed", "id", id, "lang", track.Lang, "kind", track.Kind, "error", err)
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

// listTracks returns the caption tracks the video advertises, in listed order
func (f *Fetcher) listTracks(ctx context.Context, id string) ([]captionTrack, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", id)

	body, err := f.get(ctx, f.timedTextURL+"?"+q.Encode(), "text/xml")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, err
	}
	tracks := list.Tracks[:0]
	for _, t := range list.Tracks {
		if t.Lang != "" {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (f *Fetcher) transcriptIn(ctx context.Context, id string, track captionTrack) (string, error) {
	q := url.Values{}
	q.Set("v", id)
	q.Set("lang", track.Lang)
	if track.Kind != "" {
		q.Set("kind", track.Kind)
	}
	if track.Name != "" {
		q.Set("name", track.Name)
	}

	body, err := f.get(ctx, f.timedTextURL+"?"+q.Encode(), "text/xml")
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		line := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), nil
}
