package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/claimlens/internal/util"
	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls the OpenAI chat completions API
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend creates a backend for OpenAI or an OpenAI-compatible endpoint
func NewOpenAIBackend(config Config) (*OpenAIBackend, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Reason: "OpenAI API key is required"}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(config.Timeout, config.HTTPProxy, config.HTTPSProxy)

	return &OpenAIBackend{client: openai.NewClientWithConfig(clientConfig)}, nil
}

// Name returns the provider name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Complete sends one chat completion request
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", b.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Provider: b.Name(), Err: errors.New("no choices returned")}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &MalformedResponseError{Provider: b.Name(), Err: errors.New("empty message content")}
	}
	return text, nil
}

// wrapError maps go-openai errors onto the error taxonomy
func (b *OpenAIBackend) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(b.Name(), apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return classifyStatus(b.Name(), reqErr.HTTPStatusCode, msg, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isTransport(err) {
		return &UpstreamError{Provider: b.Name(), Err: err}
	}

	// Anything else came from decoding a 2xx body
	return &MalformedResponseError{Provider: b.Name(), Err: fmt.Errorf("decode response: %w", err)}
}
