package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearch_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "cx-1", r.URL.Query().Get("cx"))
		assert.Equal(t, "eiffel tower height", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("num"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"title": "Eiffel Tower", "link": "https://example.com/eiffel", "snippet": "330 m tall"},
			{"title": "No link", "snippet": "dropped"},
			{"title": "Paris", "link": "https://example.com/paris", "snippet": "capital"}
		]}`))
	}))
	defer server.Close()

	ws := NewWebSearch("test-key", "cx-1", server.Client(), worker.NewLimiter(0, 1))
	ws.endpoint = server.URL + "/"

	got, err := ws.Search(context.Background(), "eiffel tower height", 3)
	require.NoError(t, err)
	assert.Equal(t, []model.Snippet{
		{Title: "Eiffel Tower", Snippet: "330 m tall", URL: "https://example.com/eiffel"},
		{Title: "Paris", Snippet: "capital", URL: "https://example.com/paris"},
	}, got)
}

func TestWebSearch_NoCredentials(t *testing.T) {
	got, err := NewWebSearch("", "", nil, nil).Search(context.Background(), "q", 3)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWebSearch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "quota"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	ws := NewWebSearch("k", "cx", server.Client(), nil)
	ws.endpoint = server.URL + "/"

	_, err := ws.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestFactCheck_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1alpha1/claims:search", r.URL.Path)
		assert.Equal(t, "fc-key", r.URL.Query().Get("key"))
		assert.Empty(t, r.URL.Query().Get("languageCode"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"claims": [
			{"text": "Vaccines cause autism", "claimReview": [
				{"publisher": {"name": "PolitiFact"}, "url": "https://example.org/r1", "title": "No link found", "textualRating": "False"},
				{"publisher": {"site": "factcheck.org"}, "url": "https://example.org/r2", "textualRating": "Pants on Fire"}
			]},
			{"text": "Another", "claimReview": [{"url": "https://example.org/r3"}]}
		]}`))
	}))
	defer server.Close()

	fc := NewFactCheck("fc-key", server.Client(), nil)
	fc.endpoint = server.URL + "/"

	got, err := fc.Search(context.Background(), "vaccines autism", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "No link found", got[0].Title)
	assert.Equal(t, `Rated "False" by PolitiFact: Vaccines cause autism`, got[0].Snippet)
	assert.Equal(t, "https://example.org/r1", got[0].URL)
	assert.Equal(t, "Vaccines cause autism", got[1].Title)
	assert.Contains(t, got[1].Snippet, "factcheck.org")
}

type stubProvider struct {
	name     string
	snippets []model.Snippet
	err      error
	limits   []int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, _ string, limit int) ([]model.Snippet, error) {
	s.limits = append(s.limits, limit)
	return s.snippets, s.err
}

func TestGatherer_OrderAndLimits(t *testing.T) {
	web := &stubProvider{name: "web", snippets: []model.Snippet{
		{URL: "w1"}, {URL: "w2"}, {URL: "w3"}, {URL: "w4"},
	}}
	fc := &stubProvider{name: "fc", snippets: []model.Snippet{{URL: "f1"}, {URL: "f2"}, {URL: "f3"}}}

	got := NewGatherer(true, web, fc).Gather(context.Background(), "claim")

	var urls []string
	for _, s := range got {
		urls = append(urls, s.URL)
	}
	assert.Equal(t, []string{"w1", "w2", "w3", "f1", "f2"}, urls)
	assert.Equal(t, []int{WebLimit}, web.limits)
	assert.Equal(t, []int{FactCheckLimit}, fc.limits)
}

func TestGatherer_ProviderErrorContributesNothing(t *testing.T) {
	web := &stubProvider{name: "web", err: errors.New("boom")}
	fc := &stubProvider{name: "fc", snippets: []model.Snippet{{URL: "f1"}}}

	got := NewGatherer(true, web, fc).Gather(context.Background(), "claim")
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].URL)
}

func TestGatherer_Disabled(t *testing.T) {
	web := &stubProvider{name: "web", snippets: []model.Snippet{{URL: "w1"}}}

	g := NewGatherer(false, web, nil)
	assert.False(t, g.Enabled())
	assert.Empty(t, g.Gather(context.Background(), "claim"))
	assert.Empty(t, web.limits)

	var nilGatherer *Gatherer
	assert.False(t, nilGatherer.Enabled())
}
