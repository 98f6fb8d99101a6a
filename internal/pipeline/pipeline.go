// Package pipeline runs one analysis: transcript, claim extraction, bounded verification and consensus.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/video"
	"github.com/ppiankov/claimlens/internal/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// RationaleLimit caps the rationale length stored per claim
const RationaleLimit = 180

var tracer = otel.Tracer("claimlens/pipeline")

// VideoSource fetches what the pipeline needs about a video
type VideoSource interface {
	Metadata(ctx context.Context, id string) (model.Video, error)
	Transcript(ctx context.Context, id string, langs []string) (string, error)
}

// ClaimExtractor produces candidate claims from a transcript
type ClaimExtractor interface {
	Extract(ctx context.Context, transcript string, maxClaims int, opts ...extract.Option) (extract.Extraction, error)
}

// ClaimVerifier rates one claim; it never fails
type ClaimVerifier interface {
	Verify(ctx context.Context, claim string) model.Verification
}

// ConsensusSynthesizer aggregates verifications into one verdict; it never fails
type ConsensusSynthesizer interface {
	Synthesize(ctx context.Context, verifications []model.Verification) model.Consensus
}

// Recorder observes finished analyses
type Recorder interface {
	ObserveAnalysis(outcome string, claims int, elapsed time.Duration)
}

// Analysis outcomes reported to the Recorder
const (
	OutcomeOK          = "ok"
	OutcomeCached      = "cached"
	OutcomeClientError = "client_error"
	OutcomeError       = "error"
)

// Components are the stage implementations the pipeline sequences
type Components struct {
	Video       VideoSource
	Extractor   ClaimExtractor
	Verifier    ClaimVerifier
	Synthesizer ConsensusSynthesizer
}

// Config bounds one pipeline
type Config struct {
	MaxClaims    int    // Upper bound applied to every request
	Concurrency  int    // Verifications in flight
	PrimaryModel string // Reported when extraction produced no model
}

// Pipeline orchestrates the complete analysis
type Pipeline struct {
	components Components
	config     Config

	cache    cache.Cache
	cacheTTL time.Duration
	recorder Recorder
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCache stores finished reports in c for ttl and serves repeats from it
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithRecorder reports each analysis to r
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// New creates a pipeline
func New(components Components, config Config, opts ...Option) *Pipeline {
	if config.MaxClaims <= 0 {
		config.MaxClaims = model.DefaultMaxClaims
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	p := &Pipeline{components: components, config: config}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs the pipeline for one request.
// It fails only with a *ClientInputError or a context error; model trouble degrades the report instead.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest) (report *model.Report, err error) {
	start := time.Now()
	req = req.WithDefaults()

	ctx, span := tracer.Start(ctx, "pipeline.Analyze", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	outcome := OutcomeError
	claims := 0
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if p.recorder != nil {
			p.recorder.ObserveAnalysis(outcome, claims, time.Since(start))
		}
	}()

	id, err := video.ResolveID(req.URL)
	if err != nil {
		outcome = OutcomeClientError
		return nil, &ClientInputError{Message: msgInvalidURL}
	}
	maxClaims := min(req.MaxClaims, p.config.MaxClaims)
	span.SetAttributes(
		attribute.String("video.id", id),
		attribute.String("locale", req.Locale),
		attribute.Int("max_claims", maxClaims),
		attribute.Bool("refresh", req.Refresh),
	)

	key := cache.ReportKey(id, req.Locale, maxClaims)
	if !req.Refresh {
		if cached, ok := p.lookup(ctx, key); ok {
			cached.Meta.Cached = true
			cached.Meta.TookMs = time.Since(start).Milliseconds()
			outcome = OutcomeCached
			claims = len(cached.Claims)
			return cached, nil
		}
	}

	meta, transcript, err := p.fetch(ctx, id, req.Locale)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		outcome = OutcomeClientError
		return nil, &ClientInputError{Message: msgTranscriptUnavailable}
	}

	extraction, err := p.extract(ctx, transcript, maxClaims, req.Locale)
	if err != nil {
		return nil, err
	}

	verifications := p.verifyAll(ctx, extraction.Claims)
	consensus := p.synthesize(ctx, verifications)

	report = assemble(meta, extraction, verifications, consensus)
	report.Meta.Model = extraction.Model
	if report.Meta.Model == "" {
		report.Meta.Model = p.config.PrimaryModel
	}
	report.Meta.TookMs = time.Since(start).Milliseconds()

	p.store(ctx, key, report)

	outcome = OutcomeOK
	claims = len(report.Claims)
	slog.Info("[Pipeline] analysis complete",
		"video", id, "claims", claims, "consensus", report.Consensus.Rating, "took_ms", report.Meta.TookMs)
	return report, nil
}

// fetch loads metadata and transcript concurrently. Metadata failures fall back to placeholders.
func (p *Pipeline) fetch(ctx context.Context, id, locale string) (model.Video, string, error) {
	ctx, span := tracer.Start(ctx, "pipeline.FetchTranscript")
	defer span.End()

	var (
		meta       model.Video
		transcript string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := p.components.Video.Metadata(gctx, id)
		if err != nil {
			slog.Warn("[Pipeline] metadata unavailable", "video", id, "error", err)
			if v.ID == "" {
				v = video.Placeholder(id)
			}
		}
		meta = v
		return nil
	})
	g.Go(func() error {
		t, err := p.components.Video.Transcript(gctx, id, video.Languages(locale))
		if err != nil {
			return fmt.Errorf("transcript: %w", err)
		}
		transcript = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.Video{}, "", err
	}

	span.SetAttributes(attribute.Int("transcript.runes", len([]rune(transcript))))
	return meta, transcript, nil
}

func (p *Pipeline) extract(ctx context.Context, transcript string, maxClaims int, locale string) (extract.Extraction, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ExtractClaims")
	defer span.End()

	extraction, err := p.components.Extractor.Extract(ctx, transcript, maxClaims, extract.WithLocale(locale))
	if err != nil {
		return extract.Extraction{}, fmt.Errorf("extract claims: %w", err)
	}
	span.SetAttributes(attribute.Int("claims", len(extraction.Claims)))
	return extraction, nil
}

// verifyAll rates every claim with at most config.Concurrency in flight; results keep claim order
func (p *Pipeline) verifyAll(ctx context.Context, claims []model.Claim) []model.Verification {
	ctx, span := tracer.Start(ctx, "pipeline.VerifyAll")
	defer span.End()

	jobs := make([]worker.Job[model.Verification], len(claims))
	for i, c := range claims {
		text := c.Text
		jobs[i] = worker.JobFunc[model.Verification](func(ctx context.Context) model.Verification {
			return p.components.Verifier.Verify(ctx, text)
		})
	}

	results := worker.Run(ctx, p.config.Concurrency, jobs,
		worker.WithRecover(func(_ int, r any) model.Verification {
			return unverified(fmt.Sprint(r))
		}))

	for i := range results {
		if results[i].Rating == "" {
			results[i] = unverified("not run")
		}
	}
	return results
}

func (p *Pipeline) synthesize(ctx context.Context, verifications []model.Verification) model.Consensus {
	ctx, span := tracer.Start(ctx, "pipeline.Synthesize")
	defer span.End()

	consensus := p.components.Synthesizer.Synthesize(ctx, verifications)
	span.SetAttributes(attribute.String("consensus", string(consensus.Rating)))
	return consensus
}

func unverified(reason string) model.Verification {
	return model.Verification{
		Rating:    model.DefaultRating,
		Rationale: "Verification error: " + truncateRunes(reason, 100),
		Sources:   []model.Source{},
	}
}

func assemble(meta model.Video, extraction extract.Extraction, verifications []model.Verification, consensus model.Consensus) *model.Report {
	claims := make([]model.VerifiedClaim, len(extraction.Claims))
	for i, c := range extraction.Claims {
		v := verifications[i]
		sources := v.Sources
		if sources == nil {
			sources = []model.Source{}
		}
		claims[i] = model.VerifiedClaim{
			ID:        model.ClaimID(c.Text),
			Text:      c.Text,
			Rating:    model.NormalizeRating(string(v.Rating)),
			Rationale: truncateRunes(v.Rationale, RationaleLimit),
			Sources:   sources,
		}
	}

	report := &model.Report{
		Video:     meta,
		Consensus: consensus,
		Claims:    claims,
	}
	if extraction.Summary != nil {
		report.VideoSummary = *extraction.Summary
	}
	return report
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*model.Report, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok := p.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		slog.Warn("[Pipeline] discarding unreadable cached report", "key", key, "error", err)
		_ = p.cache.Delete(ctx, key)
		return nil, false
	}
	return &report, true
}

func (p *Pipeline) store(ctx context.Context, key string, report *model.Report) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		slog.Warn("[Pipeline] encode report for cache", "error", err)
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
		slog.Warn("[Pipeline] cache write failed", "key", key, "error", err)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
