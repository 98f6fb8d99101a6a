// Package search gathers evidence snippets for a claim from web search and fact-check providers.
package search

import (
	"context"
	"log/slog"

	"github.com/ppiankov/claimlens/internal/model"
)

const (
	// WebLimit is the number of web results requested per claim
	WebLimit = 3

	// FactCheckLimit is the number of fact-check reviews requested per claim
	FactCheckLimit = 2
)

// Provider returns up to limit snippets for query.
// A provider without credentials returns nil, never an error.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]model.Snippet, error)
}

// Gatherer combines a web provider and a fact-check provider
type Gatherer struct {
	web       Provider
	factCheck Provider
	enabled   bool
}

// NewGatherer creates a gatherer; nil providers are skipped
func NewGatherer(enabled bool, web, factCheck Provider) *Gatherer {
	return &Gatherer{web: web, factCheck: factCheck, enabled: enabled}
}

// Enabled reports whether Gather will query any provider
func (g *Gatherer) Enabled() bool {
	return g != nil && g.enabled && (g.web != nil || g.factCheck != nil)
}

// Gather returns web results followed by fact-check results.
// Provider errors are logged and contribute nothing.
func (g *Gatherer) Gather(ctx context.Context, claim string) []model.Snippet {
	if !g.Enabled() {
		return nil
	}

	var out []model.Snippet
	out = append(out, g.query(ctx, g.web, claim, WebLimit)...)
	out = append(out, g.query(ctx, g.factCheck, claim, FactCheckLimit)...)
	return out
}

func (g *Gatherer) query(ctx context.Context, p Provider, claim string, limit int) []model.Snippet {
	if p == nil {
		return nil
	}
	snippets, err := p.Search(ctx, claim, limit)
	if err != nil {
		slog.Warn("[Search] provider failed", "provider", p.Name(), "error", err)
		return nil
	}
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets
}
