package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ppiankov/claimlens/internal/util"
)

// AnthropicBackend calls the Anthropic Messages API
type AnthropicBackend struct {
	client anthropic.Client
}

// NewAnthropicBackend creates a backend for Anthropic Claude models.
// SDK-level retries are disabled so Client stays the only retry owner.
func NewAnthropicBackend(config Config) (*AnthropicBackend, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Reason: "Anthropic API key is required"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(util.NewHTTPClient(config.Timeout, config.HTTPProxy, config.HTTPSProxy)),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicBackend{client: anthropic.NewClient(opts...)}, nil
}

// Name returns the provider name
func (b *AnthropicBackend) Name() string {
	return "anthropic"
}

// Complete sends one Messages request
func (b *AnthropicBackend) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	user := req.User
	if req.JSON {
		user += "\n\nRespond with a single JSON object and nothing else."
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", b.wrapError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", &MalformedResponseError{Provider: b.Name(), Err: errors.New("no text content")}
	}
	return out, nil
}

// wrapError maps SDK errors onto the error taxonomy
func (b *AnthropicBackend) wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(b.Name(), apiErr.StatusCode, apiErr.Error(), err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isTransport(err) {
		return &UpstreamError{Provider: b.Name(), Err: err}
	}

	return &MalformedResponseError{Provider: b.Name(), Err: err}
}
