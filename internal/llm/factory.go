package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
)

// NewBackend creates the backend named by config.Provider
func NewBackend(config Config) (Backend, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "":
		return NewOpenAIBackend(config)
	case "anthropic", "claude":
		return NewAnthropicBackend(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic)", config.Provider)
	}
}

// New builds a Client with the fallback policy and any middleware applied.
// A missing API key yields a Client whose calls fail with *ConfigurationError.
func New(config Config, middleware ...Middleware) (*Client, error) {
	policy := FallbackPolicy{Fallback: config.ModelFallback, Backoff: config.FallbackBackoff}

	if config.APIKey == "" {
		return NewClient(nil, policy, "", config.ModelPrimary, config.MaxTokens), nil
	}

	backend, err := NewBackend(config)
	if err != nil {
		return nil, err
	}
	backend = Chain(backend, middleware...)

	return NewClient(backend, policy, config.APIKey, config.ModelPrimary, config.MaxTokens), nil
}

// ConfigFromModel converts model.LLMConfig and model.HTTPConfig to llm.Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:        llmCfg.Provider,
		APIKey:          llmCfg.APIKey,
		BaseURL:         llmCfg.BaseURL,
		ModelPrimary:    llmCfg.ModelPrimary,
		ModelFallback:   llmCfg.ModelFallback,
		Timeout:         llmCfg.Timeout,
		FallbackBackoff: llmCfg.FallbackBackoff,
		MaxTokens:       llmCfg.MaxTokens,
		HTTPProxy:       httpCfg.HTTPProxy,
		HTTPSProxy:      httpCfg.HTTPSProxy,
	}
}
