package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/worker"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const customSearchEndpoint = "https://customsearch.googleapis.com/"

// WebSearch queries Google Programmable Search (Custom Search JSON API)
type WebSearch struct {
	apiKey   string
	cx       string
	client   *http.Client
	limiter  *worker.Limiter
	endpoint string
}

// NewWebSearch creates the web provider; empty credentials make it a no-op
func NewWebSearch(apiKey, cx string, client *http.Client, limiter *worker.Limiter) *WebSearch {
	return &WebSearch{
		apiKey:   apiKey,
		cx:       cx,
		client:   client,
		limiter:  limiter,
		endpoint: customSearchEndpoint,
	}
}

// Name returns the provider name
func (w *WebSearch) Name() string { return "google_custom_search" }

// Search returns up to limit results
func (w *WebSearch) Search(ctx context.Context, query string, limit int) ([]model.Snippet, error) {
	if w.apiKey == "" || w.cx == "" {
		return nil, nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, w.endpoint); err != nil {
			return nil, err
		}
	}

	svc, err := customsearch.NewService(ctx,
		option.WithHTTPClient(keyClient(w.client, w.apiKey)),
		option.WithEndpoint(w.endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}

	res, err := svc.Cse.List().Cx(w.cx).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}

	snippets := make([]model.Snippet, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil || item.Link == "" {
			continue
		}
		snippets = append(snippets, model.Snippet{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	return snippets, nil
}
