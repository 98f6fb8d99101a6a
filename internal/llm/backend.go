package llm

import (
	"context"
	"time"
)

// Backend performs exactly one completion attempt against a provider.
// Retry and fallback belong to Client, never to a Backend.
type Backend interface {
	// Name returns the provider name
	Name() string

	// Complete sends one request and returns the response text
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single provider call
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float32

	// JSON asks the provider for a JSON object response where supported
	JSON bool
}

// Config holds backend construction settings
type Config struct {
	// Provider name: "openai" or "anthropic"
	Provider string

	APIKey  string
	BaseURL string

	ModelPrimary  string
	ModelFallback string

	// Timeout bounds every HTTP call made by the backend
	Timeout time.Duration

	// FallbackBackoff is the pause before retrying on the fallback model
	FallbackBackoff time.Duration

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
}

// DefaultTemperature keeps extraction and rating output focused
const DefaultTemperature float32 = 0.2
