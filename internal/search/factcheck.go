package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/worker"
	"google.golang.org/api/factchecktools/v1alpha1"
	"google.golang.org/api/option"
)

const factCheckEndpoint = "https://factchecktools.googleapis.com/"

// FactCheck queries the Google Fact Check Tools claim search API
type FactCheck struct {
	apiKey   string
	client   *http.Client
	limiter  *worker.Limiter
	endpoint string
}

// NewFactCheck creates the fact-check provider; an empty key makes it a no-op
func NewFactCheck(apiKey string, client *http.Client, limiter *worker.Limiter) *FactCheck {
	return &FactCheck{
		apiKey:   apiKey,
		client:   client,
		limiter:  limiter,
		endpoint: factCheckEndpoint,
	}
}

// Name returns the provider name
func (f *FactCheck) Name() string { return "google_fact_check" }

// Search returns one snippet per published review, up to limit
func (f *FactCheck) Search(ctx context.Context, query string, limit int) ([]model.Snippet, error) {
	if f.apiKey == "" {
		return nil, nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, f.endpoint); err != nil {
			return nil, err
		}
	}

	svc, err := factchecktools.NewService(ctx,
		option.WithHTTPClient(keyClient(f.client, f.apiKey)),
		option.WithEndpoint(f.endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create fact check service: %w", err)
	}

	res, err := svc.Claims.Search().Query(query).PageSize(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fact check search: %w", err)
	}

	var snippets []model.Snippet
	for _, c := range res.Claims {
		if c == nil {
			continue
		}
		for _, review := range c.ClaimReview {
			if review == nil || review.Url == "" {
				continue
			}
			snippets = append(snippets, model.Snippet{
				Title:   reviewTitle(review.Title, c.Text),
				Snippet: reviewSnippet(c.Text, review.TextualRating, publisherName(review.Publisher)),
				URL:     review.Url,
			})
			if len(snippets) == limit {
				return snippets, nil
			}
		}
	}
	return snippets, nil
}

func publisherName(p *factchecktools.GoogleFactcheckingFactchecktoolsV1alpha1Publisher) string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Site
}

func reviewTitle(title, claim string) string {
	if title != "" {
		return title
	}
	return claim
}

func reviewSnippet(claim, rating, publisher string) string {
	var b strings.Builder
	if rating != "" {
		fmt.Fprintf(&b, "Rated %q", rating)
		if publisher != "" {
			fmt.Fprintf(&b, " by %s", publisher)
		}
		b.WriteString(": ")
	}
	b.WriteString(claim)
	return b.String()
}
