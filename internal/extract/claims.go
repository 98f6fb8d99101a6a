package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
	"golang.org/x/text/cases"
)

const (
	// DefaultMaxChars bounds the transcript prefix sent for extraction
	DefaultMaxChars = 12000

	// nearDuplicateRatio is the Levenshtein similarity at which two claims count as one
	nearDuplicateRatio = 0.9
)

var foldCaser = cases.Fold()

// Completer is the slice of llm.Client the extractor needs
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llm.CallOption) (*llm.Completion, error)
}

// Extraction is the extractor's output. Summary is nil when the model gave none.
type Extraction struct {
	Claims  []model.Claim
	Summary *string

	// Model served the call; empty when no call succeeded
	Model string
}

// ClaimExtractor turns transcript text into ordered candidate claims
type ClaimExtractor struct {
	llm      Completer
	maxChars int
}

// NewClaimExtractor creates a new claim extractor; maxChars <= 0 uses DefaultMaxChars
func NewClaimExtractor(client Completer, maxChars int) *ClaimExtractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &ClaimExtractor{llm: client, maxChars: maxChars}
}

// Option adjusts one Extract call
type Option func(*options)

type options struct {
	locale string
}

// WithLocale asks for the summary in the given language
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// response is the shape requested from the model
type response struct {
	Summary       *string            `json:"summary"`
	OverallIntent string             `json:"overall_intent"`
	Claims        *[]json.RawMessage `json:"claims"`
}

type claimObject struct {
	Text string `json:"text"`
}

// Extract sends one model call and returns at most maxClaims claims in model order.
// Call or decode errors yield an empty Extraction; only a canceled ctx is returned as an error.
func (e *ClaimExtractor) Extract(ctx context.Context, transcript string, maxClaims int, opts ...Option) (Extraction, error) {
	o := options{locale: model.DefaultLocale}
	for _, opt := range opts {
		opt(&o)
	}

	text := truncateRunes(transcript, e.maxChars)

	out, err := e.llm.Complete(ctx, systemPrompt, userPrompt(text, o.locale, maxClaims))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Extraction{}, ctxErr
		}
		slog.Warn("[Extract] model call failed", "kind", llm.ErrorKind(err), "error", err)
		return Extraction{Claims: []model.Claim{}}, nil
	}

	var resp response
	if err := llm.DecodeObject(out.Text, &resp); err != nil || resp.Claims == nil {
		slog.Warn("[Extract] unusable model response", "error", err, "model", out.Model)
		return Extraction{Claims: []model.Claim{}, Model: out.Model}, nil
	}

	texts := dedupeClaims(claimTexts(*resp.Claims))
	if maxClaims > 0 && len(texts) > maxClaims {
		texts = texts[:maxClaims]
	}

	claims := make([]model.Claim, len(texts))
	for i, t := range texts {
		claims[i] = model.Claim{Text: t, Index: i}
	}

	var summary *string
	if resp.Summary != nil {
		if s := strings.TrimSpace(*resp.Summary); s != "" {
			summary = &s
		}
	}

	return Extraction{Claims: claims, Summary: summary, Model: out.Model}, nil
}

// claimTexts accepts claim entries as plain strings or {"text": ...} objects
func claimTexts(raw []json.RawMessage) []string {
	var texts []string
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			texts = append(texts, strings.TrimSpace(s))
			continue
		}
		var obj claimObject
		if err := json.Unmarshal(r, &obj); err == nil {
			texts = append(texts, strings.TrimSpace(obj.Text))
		}
	}
	return texts
}

// dedupeClaims drops blanks and near-duplicates, keeping the first occurrence
func dedupeClaims(texts []string) []string {
	var unique []string
	var folded []string

	for _, t := range texts {
		if t == "" {
			continue
		}
		f := foldCaser.String(t)
		dup := false
		for _, seen := range folded {
			if similarity(f, seen) >= nearDuplicateRatio {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, t)
			folded = append(folded, f)
		}
	}
	return unique
}

// similarity is 1 - levenshtein/maxRuneLen
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

const systemPrompt = `You extract factual claims from video transcripts.
Return ONLY a JSON object. A claim must be atomic, declarative and verifiable against public sources.
Reject opinions, predictions, hypotheticals, jokes and questions. Keep each claim under 140 characters
and self-contained (resolve pronouns to names).`

func userPrompt(transcript, locale string, maxClaims int) string {
	return fmt.Sprintf(`Extract up to %d claims from the transcript below, most important first.
Write the summary in the language with code %q.

Respond with JSON of this exact shape:
{
  "summary": "2-3 sentence neutral summary of the video",
  "overall_intent": "inform|persuade|entertain|sell|other",
  "claims": [
    {"text": "...", "is_main": true, "intent": "...", "source": "...", "stance": "...", "speaker": "...",
     "time_start_s": 0, "time_end_s": 0, "confidence": 0.0}
  ]
}

Transcript:
"""
%s
"""`, maxClaims, locale, transcript)
}
