package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
)

const (
	// MaxSources caps the citations kept per claim
	MaxSources = 2

	// NoEvidence stands in for the snippet block when nothing was gathered
	NoEvidence = "(none)"

	defaultRationale = "No rationale provided"
	errorPrefix      = "Verification error: "
	maxErrorChars    = 100
)

// Completer is the slice of llm.Client the verifier needs
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llm.CallOption) (*llm.Completion, error)
}

// EvidenceSource returns snippets for a claim; an empty result is normal
type EvidenceSource interface {
	Gather(ctx context.Context, claim string) []model.Snippet
}

// Verifier rates one claim against gathered evidence
type Verifier struct {
	llm      Completer
	evidence EvidenceSource
}

// NewVerifier creates a verifier; evidence may be nil
func NewVerifier(client Completer, evidence EvidenceSource) *Verifier {
	return &Verifier{llm: client, evidence: evidence}
}

type response struct {
	Rating    string          `json:"rating"`
	Rationale *string         `json:"rationale"`
	Sources   json.RawMessage `json:"sources"`
}

type rawSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Verify never fails: any error becomes an unverified result with a short diagnostic
func (v *Verifier) Verify(ctx context.Context, claim string) model.Verification {
	var snippets []model.Snippet
	if v.evidence != nil {
		snippets = v.evidence.Gather(ctx, claim)
	}

	out, err := v.llm.Complete(ctx, systemPrompt, userPrompt(claim, SnippetBlock(snippets)))
	if err != nil {
		slog.Warn("[Verify] model call failed", "kind", llm.ErrorKind(err), "error", err)
		return failed(err)
	}

	var resp response
	if err := llm.DecodeObject(out.Text, &resp); err != nil {
		slog.Warn("[Verify] unusable model response", "error", err, "model", out.Model)
		return failed(err)
	}

	rationale := defaultRationale
	if resp.Rationale != nil && strings.TrimSpace(*resp.Rationale) != "" {
		rationale = strings.TrimSpace(*resp.Rationale)
	}

	return model.Verification{
		Rating:    model.NormalizeRating(resp.Rating),
		Rationale: rationale,
		Sources:   parseSources(resp.Sources),
	}
}

// parseSources keeps the first MaxSources entries that carry a URL; anything not a list is dropped
func parseSources(raw json.RawMessage) []model.Source {
	sources := []model.Source{}
	var list []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil {
		return sources
	}

	for _, item := range list {
		var s rawSource
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		url := strings.TrimSpace(s.URL)
		if url == "" {
			continue
		}
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = url
		}
		sources = append(sources, model.Source{Title: title, URL: url})
		if len(sources) == MaxSources {
			break
		}
	}
	return sources
}

func failed(err error) model.Verification {
	msg := err.Error()
	if utf8.RuneCountInString(msg) > maxErrorChars {
		msg = string([]rune(msg)[:maxErrorChars])
	}
	return model.Verification{
		Rating:    model.DefaultRating,
		Rationale: errorPrefix + msg,
		Sources:   []model.Source{},
	}
}

// SnippetBlock renders evidence as numbered "N) snippet (url)" lines, or NoEvidence
func SnippetBlock(snippets []model.Snippet) string {
	if len(snippets) == 0 {
		return NoEvidence
	}
	var b strings.Builder
	for i, s := range snippets {
		text := strings.TrimSpace(s.Snippet)
		if text == "" {
			text = strings.TrimSpace(s.Title)
		}
		fmt.Fprintf(&b, "%d) %s (%s)\n", i+1, text, s.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

const systemPrompt = `You are a careful fact-checker. Judge a single claim using the evidence provided and
well-established public knowledge. Be conservative: when evidence is thin, prefer "unverified".
Return ONLY a JSON object.`

func userPrompt(claim, evidence string) string {
	return fmt.Sprintf(`Claim:
%s

Evidence:
%s

Respond with JSON:
{"rating": "%s", "rationale": "one or two sentences", "sources": [{"title": "...", "url": "..."}]}
Cite at most %d sources, taken from the evidence when possible.`, claim, evidence, model.RatingPattern(), MaxSources)
}
