// Package video resolves video references and fetches metadata and transcripts.
package video

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ppiankov/claimlens/internal/util"
	"google.golang.org/api/youtube/v3"
)

const (
	defaultOEmbedURL    = "https://www.youtube.com/oembed"
	defaultWatchURL     = "https://www.youtube.com/watch"
	defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

	// maxBodyBytes bounds any single response read
	maxBodyBytes = 4 << 20

	defaultTitle   = "YouTube Video"
	defaultChannel = "YouTube"
)

// Fetcher talks to the public YouTube endpoints
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	robots     *util.RobotsChecker
	api        *youtube.Service

	oembedURL    string
	watchURL     string
	timedTextURL string
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithDataAPI uses the YouTube Data API for metadata instead of scraping
func WithDataAPI(svc *youtube.Service) Option {
	return func(f *Fetcher) { f.api = svc }
}

// NewFetcher creates a new Fetcher
func NewFetcher(client *http.Client, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:   client,
		userAgent:    userAgent,
		robots:       util.NewRobotsChecker(client, userAgent),
		oembedURL:    defaultOEmbedURL,
		watchURL:     defaultWatchURL,
		timedTextURL: defaultTimedTextURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// get fetches rawURL and returns the body of a 2xx response
func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
