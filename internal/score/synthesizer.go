package score

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
)

const defaultSummary = "Insufficient evidence or mixed claims."

// Completer is the slice of llm.Client the synthesizer needs
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llm.CallOption) (*llm.Completion, error)
}

// Synthesizer reduces verified claims to one overall verdict
type Synthesizer struct {
	llm Completer
}

// NewSynthesizer creates a new synthesizer
func NewSynthesizer(client Completer) *Synthesizer {
	return &Synthesizer{llm: client}
}

type compactClaim struct {
	Rating    model.Rating `json:"rating"`
	Rationale string       `json:"rationale"`
}

type response struct {
	Rating  string  `json:"rating"`
	Summary *string `json:"summary"`
}

// Synthesize makes one model call, even for zero claims, and never fails
func (s *Synthesizer) Synthesize(ctx context.Context, verifications []model.Verification) model.Consensus {
	compact := make([]compactClaim, len(verifications))
	for i, v := range verifications {
		compact[i] = compactClaim{Rating: v.Rating, Rationale: v.Rationale}
	}

	payload, err := json.Marshal(compact)
	if err != nil {
		return model.DefaultConsensus()
	}

	out, err := s.llm.Complete(ctx, systemPrompt, userPrompt(string(payload), Tally(verifications)))
	if err != nil {
		slog.Warn("[Score] model call failed", "kind", llm.ErrorKind(err), "error", err)
		return model.DefaultConsensus()
	}

	var resp response
	if err := llm.DecodeObject(out.Text, &resp); err != nil {
		slog.Warn("[Score] unusable model response", "error", err, "model", out.Model)
		return model.DefaultConsensus()
	}

	summary := defaultSummary
	if resp.Summary != nil && strings.TrimSpace(*resp.Summary) != "" {
		summary = strings.TrimSpace(*resp.Summary)
	}

	return model.Consensus{
		Rating:  model.NormalizeRating(resp.Rating),
		Summary: summary,
	}
}

// Tally counts verifications per rating, in vocabulary order
func Tally(verifications []model.Verification) []RatingCount {
	counts := make(map[model.Rating]int)
	for _, v := range verifications {
		counts[model.NormalizeRating(string(v.Rating))]++
	}

	var out []RatingCount
	for _, r := range model.Ratings() {
		if n := counts[r]; n > 0 {
			out = append(out, RatingCount{Rating: r, Count: n})
		}
	}
	return out
}

// RatingCount is one row of a Tally
type RatingCount struct {
	Rating model.Rating
	Count  int
}

func formatTally(tally []RatingCount) string {
	if len(tally) == 0 {
		return "no claims"
	}
	parts := make([]string, len(tally))
	for i, rc := range tally {
		parts[i] = fmt.Sprintf("%s=%d", rc.Rating, rc.Count)
	}
	return strings.Join(parts, ", ")
}

const systemPrompt = `You summarize fact-check results for a whole video. Weigh the individual claim ratings
and rationales and produce one overall verdict. With no claims or only unverified claims the verdict is
"unverified". Return ONLY a JSON object.`

func userPrompt(claimsJSON string, tally []RatingCount) string {
	return fmt.Sprintf(`Claim ratings (%s):
%s

Respond with JSON:
{"rating": "%s", "summary": "2-3 sentences explaining the overall verdict"}`,
		formatTally(tally), claimsJSON, model.RatingPattern())
}
