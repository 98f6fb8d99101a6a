package llm

import (
	"context"
	"log/slog"
	"time"
)

// Completion is a successful model response
type Completion struct {
	Text string

	// Model is the model that actually produced Text
	Model string
}

// CallOption adjusts a single Complete call
type CallOption func(*callOptions)

type callOptions struct {
	model string
}

// WithModel overrides the configured primary model for one call
func WithModel(name string) CallOption {
	return func(o *callOptions) { o.model = name }
}

// Client is the language model client every pipeline stage uses.
// It owns the retry policy; backends make single attempts.
type Client struct {
	backend   Backend
	policy    RetryPolicy
	apiKey    string
	model     string
	maxTokens int
	sleep     func(context.Context, time.Duration) error
}

// NewClient wraps backend with policy.
// apiKey is checked on every call so a missing credential never reaches the network.
func NewClient(backend Backend, policy RetryPolicy, apiKey, primaryModel string, maxTokens int) *Client {
	if policy == nil {
		policy = NoRetry{}
	}
	return &Client{
		backend:   backend,
		policy:    policy,
		apiKey:    apiKey,
		model:     primaryModel,
		maxTokens: maxTokens,
		sleep:     sleepContext,
	}
}

// PrimaryModel returns the configured default model
func (c *Client) PrimaryModel() string {
	return c.model
}

// Complete sends a system/user prompt pair and returns the response text.
// Errors are *ConfigurationError, *AuthError, *RateLimitError, *UpstreamError or *MalformedResponseError.
func (c *Client) Complete(ctx context.Context, system, user string, opts ...CallOption) (*Completion, error) {
	if c.apiKey == "" || c.backend == nil {
		return nil, &ConfigurationError{Reason: "no API key configured"}
	}

	o := callOptions{model: c.model}
	for _, opt := range opts {
		opt(&o)
	}

	model := o.model
	for attempt := 0; ; attempt++ {
		text, err := c.backend.Complete(ctx, Request{
			System:      system,
			User:        user,
			Model:       model,
			MaxTokens:   c.maxTokens,
			Temperature: DefaultTemperature,
			JSON:        true,
		})
		if err == nil {
			return &Completion{Text: text, Model: model}, nil
		}

		d := c.policy.Next(Attempt{N: attempt, Model: model, Err: err})
		if !d.Retry {
			return nil, err
		}

		slog.Warn("[LLM] retrying on fallback model",
			"provider", c.backend.Name(),
			"from", model,
			"to", d.Model,
			"error", err,
		)

		if err := c.sleep(ctx, d.Delay); err != nil {
			return nil, &UpstreamError{Provider: c.backend.Name(), Err: err}
		}
		if d.Model != "" {
			model = d.Model
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
