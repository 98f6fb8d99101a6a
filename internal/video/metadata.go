package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
	"golang.org/x/net/html"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// pageMeta is what the watch page contributes
type pageMeta struct {
	title    string
	channel  string
	duration int
}

// Metadata returns display metadata for id. Fields that cannot be fetched keep their defaults;
// the error reports the first failure so callers can log it.
func (f *Fetcher) Metadata(ctx context.Context, id string) (model.Video, error) {
	v := Placeholder(id)

	if f.api != nil {
		err := f.fromDataAPI(ctx, &v)
		if err == nil {
			return v, nil
		}
		slog.Warn("[Video] data API lookup failed, falling back to oEmbed", "id", id, "error", err)
	}

	var firstErr error
	if err := f.fromOEmbed(ctx, &v); err != nil {
		firstErr = err
	}

	page, err := f.watchPage(ctx, id)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		return v, firstErr
	}

	v.DurationSec = page.duration
	if v.Title == defaultTitle && page.title != "" {
		v.Title = page.title
	}
	if v.Channel == defaultChannel && page.channel != "" {
		v.Channel = page.channel
	}
	return v, firstErr
}

func (f *Fetcher) fromOEmbed(ctx context.Context, v *model.Video) error {
	q := url.Values{}
	q.Set("url", WatchURL(v.ID))
	q.Set("format", "json")

	body, err := f.get(ctx, f.oembedURL+"?"+q.Encode(), "application/json")
	if err != nil {
		return fmt.Errorf("oembed: %w", err)
	}

	var resp oembedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("oembed: decode: %w", err)
	}

	if resp.Title != "" {
		v.Title = resp.Title
	}
	if resp.AuthorName != "" {
		v.Channel = resp.AuthorName
	}
	return nil
}

// watchPage reads duration (and title/channel fallbacks) from the watch page microdata
func (f *Fetcher) watchPage(ctx context.Context, id string) (pageMeta, error) {
	pageURL := f.watchURL + "?v=" + url.QueryEscape(id)

	if !f.robots.IsAllowed(ctx, pageURL) {
		return pageMeta{}, fmt.Errorf("watch page disallowed by robots.txt")
	}

	body, err := f.get(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return pageMeta{}, fmt.Errorf("watch page: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("watch page: parse: %w", err)
	}
	return parseWatchPage(doc), nil
}

func parseWatchPage(doc *html.Node) pageMeta {
	var meta pageMeta

	var walk func(n *html.Node, inAuthor bool)
	walk = func(n *html.Node, inAuthor bool) {
		if n.Type == html.ElementNode {
			attrs := attrMap(n)
			switch {
			case n.Data == "meta" && attrs["itemprop"] == "duration":
				if secs, ok := ParseISODuration(attrs["content"]); ok {
					meta.duration = secs
				}
			case n.Data == "meta" && (attrs["name"] == "title" || attrs["property"] == "og:title"):
				if meta.title == "" {
					meta.title = strings.TrimSpace(attrs["content"])
				}
			case n.Data == "link" && inAuthor && attrs["itemprop"] == "name":
				if meta.channel == "" {
					meta.channel = strings.TrimSpace(attrs["content"])
				}
			}
			if attrs["itemprop"] == "author" {
				inAuthor = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inAuthor)
		}
	}

	walk(doc, false)
	return meta
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
