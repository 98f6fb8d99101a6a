package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/score"
	"github.com/ppiankov/claimlens/internal/search"
	"github.com/ppiankov/claimlens/internal/util"
	"github.com/ppiankov/claimlens/internal/verify"
	"github.com/ppiankov/claimlens/internal/video"
	"github.com/ppiankov/claimlens/internal/worker"
)

// Observer receives both per-call model metrics and per-analysis outcomes
type Observer interface {
	llm.CallRecorder
	Recorder
}

// NewFromConfig wires the production components described by cfg.
// obs may be nil. The returned close function releases the cache and is never nil.
func NewFromConfig(ctx context.Context, cfg model.Config, obs Observer) (*Pipeline, func() error, error) {
	var middleware []llm.Middleware
	if obs != nil {
		middleware = append(middleware, llm.WithMetrics(obs))
	}

	client, err := llm.New(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), middleware...)
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM client: %w", err)
	}

	httpClient := util.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy)

	var videoOpts []video.Option
	if cfg.Video.YouTubeAPIKey != "" {
		svc, err := video.NewDataAPIService(ctx, cfg.Video.YouTubeAPIKey)
		if err != nil {
			return nil, nil, err
		}
		videoOpts = append(videoOpts, video.WithDataAPI(svc))
	}

	limiter := worker.NewLimiter(cfg.Search.RequestsPerSecond, cfg.Search.Burst)
	gatherer := search.NewGatherer(cfg.Search.Enabled,
		search.NewWebSearch(cfg.Search.GoogleAPIKey, cfg.Search.GoogleCX, httpClient, limiter),
		search.NewFactCheck(cfg.Search.FactCheckAPIKey, httpClient, limiter),
	)
	if cfg.Search.Enabled && cfg.Search.GoogleAPIKey == "" && cfg.Search.FactCheckAPIKey == "" {
		slog.Warn("[Pipeline] search enabled but no provider credentials configured")
	}

	components := Components{
		Video:       video.NewFetcher(httpClient, cfg.HTTP.UserAgent, videoOpts...),
		Extractor:   extract.NewClaimExtractor(client, cfg.Analysis.TranscriptChars),
		Verifier:    verify.NewVerifier(client, gatherer),
		Synthesizer: score.NewSynthesizer(client),
	}

	opts := []Option{}
	if obs != nil {
		opts = append(opts, WithRecorder(obs))
	}

	closeFn := func() error { return nil }
	if cfg.Cache.Enabled {
		c, cacheClose, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("create cache: %w", err)
		}
		opts = append(opts, WithCache(c, cfg.Cache.TTL))
		closeFn = cacheClose
	}

	p := New(components, Config{
		MaxClaims:    cfg.Analysis.MaxClaims,
		Concurrency:  cfg.Analysis.VerifyConcurrency,
		PrimaryModel: client.PrimaryModel(),
	}, opts...)
	return p, closeFn, nil
}
