package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/score"
	"github.com/ppiankov/claimlens/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeVideo struct {
	transcript  string
	err         error
	metadataErr error
}

func (f *fakeVideo) Metadata(ctx context.Context, id string) (model.Video, error) {
	if f.metadataErr != nil {
		return model.Video{}, f.metadataErr
	}
	return model.Video{ID: id, Title: "Test Video", Channel: "Test Channel", DurationSec: 60}, nil
}

func (f *fakeVideo) Transcript(ctx context.Context, id string, langs []string) (string, error) {
	return f.transcript, f.err
}

// routingCompleter answers each stage by its system prompt
type routingCompleter struct {
	extraction string
	verdict    string
	consensus  string
	calls      atomic.Int32
}

func (r *routingCompleter) Complete(ctx context.Context, system, user string, opts ...llm.CallOption) (*llm.Completion, error) {
	r.calls.Add(1)
	var text string
	switch {
	case strings.HasPrefix(system, "You extract"):
		text = r.extraction
	case strings.HasPrefix(system, "You are a careful fact-checker"):
		text = r.verdict
	case strings.HasPrefix(system, "You summarize"):
		text = r.consensus
	default:
		return nil, fmt.Errorf("unexpected system prompt: %q", system)
	}
	return &llm.Completion{Text: text, Model: "gpt-test"}, nil
}

func realPipeline(v VideoSource, c *routingCompleter, opts ...Option) *Pipeline {
	return New(Components{
		Video:       v,
		Extractor:   extract.NewClaimExtractor(c, 0),
		Verifier:    verify.NewVerifier(c, nil),
		Synthesizer: score.NewSynthesizer(c),
	}, Config{MaxClaims: 8, Concurrency: 3, PrimaryModel: "gpt-primary"}, opts...)
}

type countingExtractor struct {
	claims []string
	calls  atomic.Int32
}

func (e *countingExtractor) Extract(ctx context.Context, transcript string, maxClaims int, opts ...extract.Option) (extract.Extraction, error) {
	e.calls.Add(1)
	texts := e.claims
	if len(texts) > maxClaims {
		texts = texts[:maxClaims]
	}
	claims := make([]model.Claim, len(texts))
	for i, t := range texts {
		claims[i] = model.Claim{Text: t, Index: i}
	}
	return extract.Extraction{Claims: claims, Model: "gpt-test"}, nil
}

type echoVerifier struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	panicOn  string
}

func (v *echoVerifier) Verify(ctx context.Context, claim string) model.Verification {
	n := v.inFlight.Add(1)
	defer v.inFlight.Add(-1)
	for {
		seen := v.maxSeen.Load()
		if n <= seen || v.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if claim == v.panicOn {
		panic("boom")
	}
	time.Sleep(v.delay)
	return model.Verification{Rating: model.RatingReliable, Rationale: "checked " + claim, Sources: []model.Source{}}
}

type fixedSynthesizer struct {
	calls atomic.Int32
}

func (s *fixedSynthesizer) Synthesize(ctx context.Context, verifications []model.Verification) model.Consensus {
	s.calls.Add(1)
	return model.Consensus{Rating: model.RatingMixed, Summary: fmt.Sprintf("%d claims", len(verifications))}
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveAnalysis(outcome string, claims int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	c := &routingCompleter{
		extraction: `{"summary": "A video about space.", "claims": [
			{"text": "The Moon orbits the Earth."},
			{"text": "Mars has two moons."},
			"Water boils at 100 degrees Celsius at sea level.",
			{"text": "Venus is the hottest planet in the Solar System."}
		]}`,
		verdict:   `{"rating": "Reliable", "rationale": "Well established.", "sources": [{"title": "NASA", "url": "https://nasa.gov"}]}`,
		consensus: `{"rating": "solid", "summary": "All claims check out."}`,
	}
	p := realPipeline(&fakeVideo{transcript: "some transcript"}, c)

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)

	require.Len(t, report.Claims, 4)
	wantTexts := []string{
		"The Moon orbits the Earth.",
		"Mars has two moons.",
		"Water boils at 100 degrees Celsius at sea level.",
		"Venus is the hottest planet in the Solar System.",
	}
	for i, claim := range report.Claims {
		assert.Equal(t, wantTexts[i], claim.Text)
		assert.Equal(t, model.ClaimID(claim.Text), claim.ID)
		assert.Equal(t, model.RatingReliable, claim.Rating)
		assert.Equal(t, []model.Source{{Title: "NASA", URL: "https://nasa.gov"}}, claim.Sources)
	}

	assert.Equal(t, model.Consensus{Rating: model.RatingSolid, Summary: "All claims check out."}, report.Consensus)
	assert.Equal(t, "A video about space.", report.VideoSummary)
	assert.Equal(t, "dQw4w9WgXcQ", report.Video.ID)
	assert.Equal(t, "gpt-test", report.Meta.Model)
	assert.False(t, report.Meta.Cached)
	assert.GreaterOrEqual(t, report.Meta.TookMs, int64(0))
	assert.EqualValues(t, 6, c.calls.Load())
}

func TestAnalyzeInvalidURL(t *testing.T) {
	c := &routingCompleter{}
	rec := &outcomeRecorder{}
	p := realPipeline(&fakeVideo{transcript: "text"}, c, WithRecorder(rec))

	_, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: "https://example.com/nope"})

	var inputErr *ClientInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "Invalid YouTube URL", inputErr.Message)
	assert.Zero(t, c.calls.Load())
	assert.Equal(t, []string{OutcomeClientError}, rec.outcomes)
}

func TestAnalyzeEmptyTranscriptMakesNoModelCalls(t *testing.T) {
	for _, transcript := range []string{"", "   \n\t"} {
		c := &routingCompleter{}
		p := realPipeline(&fakeVideo{transcript: transcript}, c)

		_, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})

		var inputErr *ClientInputError
		require.ErrorAs(t, err, &inputErr)
		assert.True(t, strings.HasPrefix(inputErr.Message, "Transcript unavailable"))
		assert.Zero(t, c.calls.Load())
	}
}

func TestAnalyzeMalformedExtraction(t *testing.T) {
	c := &routingCompleter{
		extraction: "Sorry, I cannot help with that.",
		consensus:  "also not json",
	}
	p := realPipeline(&fakeVideo{transcript: "some transcript"}, c)

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)

	assert.NotNil(t, report.Claims)
	assert.Empty(t, report.Claims)
	assert.Empty(t, report.VideoSummary)
	assert.Equal(t, model.DefaultConsensus(), report.Consensus)
	assert.EqualValues(t, 2, c.calls.Load())
}

func TestAnalyzeFallsBackToPrimaryModelName(t *testing.T) {
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   extractorFunc(func() extract.Extraction { return extract.Extraction{Claims: []model.Claim{}} }),
		Verifier:    &echoVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{PrimaryModel: "gpt-primary"})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, "gpt-primary", report.Meta.Model)
}

type extractorFunc func() extract.Extraction

func (f extractorFunc) Extract(ctx context.Context, transcript string, maxClaims int, opts ...extract.Option) (extract.Extraction, error) {
	return f(), nil
}

func TestAnalyzeBoundsConcurrencyAndPreservesOrder(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("claim number %d", i)
	}
	verifier := &echoVerifier{delay: 20 * time.Millisecond}
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   &countingExtractor{claims: texts},
		Verifier:    verifier,
		Synthesizer: &fixedSynthesizer{},
	}, Config{MaxClaims: 50, Concurrency: 3})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL, MaxClaims: 12})
	require.NoError(t, err)

	require.Len(t, report.Claims, len(texts))
	for i, claim := range report.Claims {
		assert.Equal(t, texts[i], claim.Text)
		assert.Equal(t, "checked "+texts[i], claim.Rationale)
	}
	assert.LessOrEqual(t, verifier.maxSeen.Load(), int32(3))
	assert.Equal(t, "12 claims", report.Consensus.Summary)
}

func TestAnalyzeMaxClaimsIsCapped(t *testing.T) {
	texts := []string{"a one", "b two", "c three", "d four", "e five"}
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   &countingExtractor{claims: texts},
		Verifier:    &echoVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{MaxClaims: 2, Concurrency: 3})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL, MaxClaims: 10})
	require.NoError(t, err)
	assert.Len(t, report.Claims, 2)
}

func TestAnalyzeVerifierPanicIsIsolated(t *testing.T) {
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   &countingExtractor{claims: []string{"first", "second", "third"}},
		Verifier:    &echoVerifier{panicOn: "second"},
		Synthesizer: &fixedSynthesizer{},
	}, Config{})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)

	require.Len(t, report.Claims, 3)
	assert.Equal(t, model.RatingReliable, report.Claims[0].Rating)
	assert.Equal(t, model.DefaultRating, report.Claims[1].Rating)
	assert.True(t, strings.HasPrefix(report.Claims[1].Rationale, "Verification error: "))
	assert.Equal(t, model.RatingReliable, report.Claims[2].Rating)
}

type longVerifier struct{}

func (longVerifier) Verify(ctx context.Context, claim string) model.Verification {
	return model.Verification{Rating: "SOLID", Rationale: strings.Repeat("é", 500)}
}

func TestAnalyzeNormalizesAndTruncates(t *testing.T) {
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   &countingExtractor{claims: []string{"only claim"}},
		Verifier:    longVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)

	claim := report.Claims[0]
	assert.Equal(t, model.RatingSolid, claim.Rating)
	assert.Equal(t, RationaleLimit, len([]rune(claim.Rationale)))
	assert.NotNil(t, claim.Sources)
}

func TestAnalyzeMetadataFailureUsesPlaceholder(t *testing.T) {
	p := New(Components{
		Video:       &fakeVideo{transcript: "text", metadataErr: errors.New("oembed down")},
		Extractor:   &countingExtractor{},
		Verifier:    &echoVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{})

	report, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, "YouTube Video", report.Video.Title)
	assert.Equal(t, "YouTube", report.Video.Channel)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", report.Video.Thumbnail)
}

func TestAnalyzeTranscriptContextError(t *testing.T) {
	p := New(Components{
		Video:       &fakeVideo{err: context.Canceled},
		Extractor:   &countingExtractor{},
		Verifier:    &echoVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{})

	_, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	assert.ErrorIs(t, err, context.Canceled)

	var inputErr *ClientInputError
	assert.False(t, errors.As(err, &inputErr))
}

func TestAnalyzeServesRepeatsFromCache(t *testing.T) {
	extractor := &countingExtractor{claims: []string{"cached claim"}}
	synth := &fixedSynthesizer{}
	rec := &outcomeRecorder{}
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   extractor,
		Verifier:    &echoVerifier{},
		Synthesizer: synth,
	}, Config{}, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Hour), WithRecorder(rec))

	first, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	assert.False(t, first.Meta.Cached)

	second, err := p.Analyze(context.Background(), model.AnalysisRequest{URL: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.True(t, second.Meta.Cached)
	assert.Equal(t, first.Claims, second.Claims)
	assert.EqualValues(t, 1, extractor.calls.Load())
	assert.EqualValues(t, 1, synth.calls.Load())

	// A different locale is a different cache entry
	_, err = p.Analyze(context.Background(), model.AnalysisRequest{URL: testURL, Locale: "de"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, extractor.calls.Load())

	assert.Equal(t, []string{OutcomeOK, OutcomeCached, OutcomeOK}, rec.outcomes)
}

func TestAnalyzeRefreshSkipsCacheAndRefillsIt(t *testing.T) {
	extractor := &countingExtractor{claims: []string{"fresh claim"}}
	p := New(Components{
		Video:       &fakeVideo{transcript: "text"},
		Extractor:   extractor,
		Verifier:    &echoVerifier{},
		Synthesizer: &fixedSynthesizer{},
	}, Config{}, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Hour))

	ctx := context.Background()
	_, err := p.Analyze(ctx, model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)

	refreshed, err := p.Analyze(ctx, model.AnalysisRequest{URL: testURL, Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.Meta.Cached)
	assert.EqualValues(t, 2, extractor.calls.Load())

	again, err := p.Analyze(ctx, model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	assert.True(t, again.Meta.Cached)
	assert.EqualValues(t, 2, extractor.calls.Load())
}

func TestClaimIDsAreStableAcrossRuns(t *testing.T) {
	newPipeline := func() *Pipeline {
		return New(Components{
			Video:       &fakeVideo{transcript: "text"},
			Extractor:   &countingExtractor{claims: []string{"stable claim"}},
			Verifier:    &echoVerifier{},
			Synthesizer: &fixedSynthesizer{},
		}, Config{})
	}

	a, err := newPipeline().Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	b, err := newPipeline().Analyze(context.Background(), model.AnalysisRequest{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, a.Claims[0].ID, b.Claims[0].ID)
}
