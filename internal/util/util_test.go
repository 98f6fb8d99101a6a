package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		hits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: ClaimLens\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "ClaimLens/0.1 (+https://example.com)")
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/watch?v=abc")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("expected /watch to be allowed for ClaimLens")
	}
	if delay != 2*time.Second {
		t.Errorf("crawl delay = %v, want 2s", delay)
	}

	if checker.IsAllowed(ctx, server.URL+"/private/page") {
		t.Error("expected /private to be disallowed")
	}

	if hits.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", hits.Load())
	}
}

func TestRobotsCheckerUnreachableAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := NewRobotsChecker(&http.Client{Timeout: time.Second}, "ClaimLens")
	if !checker.IsAllowed(context.Background(), url+"/watch") {
		t.Error("unreachable robots.txt should allow")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"ClaimLens/0.1 (+https://github.com/ppiankov/claimlens)": "ClaimLens",
		"curl/8.0": "curl",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProxyFunc(t *testing.T) {
	fn := ProxyFunc("http://proxy:8080", "http://secure-proxy:8443")

	req, _ := http.NewRequest(http.MethodGet, "https://www.youtube.com/", nil)
	u, err := fn(req)
	if err != nil || u.Host != "secure-proxy:8443" {
		t.Errorf("https proxy = %v, %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, err = fn(req)
	if err != nil || u.Host != "proxy:8080" {
		t.Errorf("http proxy = %v, %v", u, err)
	}
}
