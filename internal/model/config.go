package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full process configuration
type Config struct {
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Video    VideoConfig    `yaml:"video" mapstructure:"video"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig selects the language model backend
type LLMConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider" validate:"oneof=openai anthropic"`
	APIKey          string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL         string        `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	ModelPrimary    string        `yaml:"model_primary" mapstructure:"model_primary" validate:"required"`
	ModelFallback   string        `yaml:"model_fallback" mapstructure:"model_fallback"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	FallbackBackoff time.Duration `yaml:"fallback_backoff" mapstructure:"fallback_backoff" validate:"gte=0"`
	MaxTokens       int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
}

// AnalysisConfig bounds the pipeline
type AnalysisConfig struct {
	MaxClaims         int `yaml:"max_claims" mapstructure:"max_claims" validate:"min=1,max=50"`
	VerifyConcurrency int `yaml:"verify_concurrency" mapstructure:"verify_concurrency" validate:"min=1,max=16"`
	TranscriptChars   int `yaml:"transcript_chars" mapstructure:"transcript_chars" validate:"min=1"`
}

// SearchConfig holds evidence provider credentials
type SearchConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	GoogleAPIKey      string  `yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`
	GoogleCX          string  `yaml:"google_cx,omitempty" mapstructure:"google_cx"`
	FactCheckAPIKey   string  `yaml:"factcheck_api_key,omitempty" mapstructure:"factcheck_api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"min=1"`
}

// VideoConfig enables the YouTube Data API for metadata when a key is set
type VideoConfig struct {
	YouTubeAPIKey string `yaml:"youtube_api_key,omitempty" mapstructure:"youtube_api_key"`
}

// CacheConfig controls report caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gt=0"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gt=0"`
	RedisURL  string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"`
}

// StoreConfig selects the report store
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=memory postgres"`
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// EventsConfig enables the Kafka publisher when brokers are set
type EventsConfig struct {
	Brokers []string `yaml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic" validate:"required_with=Brokers"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr             string   `yaml:"addr" mapstructure:"addr" validate:"required"`
	Debug            bool     `yaml:"debug" mapstructure:"debug"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins" mapstructure:"cors_allow_origins"`
}

// HTTPConfig configures outbound HTTP clients
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// LoggingConfig configures the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:        "openai",
			ModelPrimary:    "gpt-4o",
			ModelFallback:   "gpt-3.5-turbo",
			Timeout:         30 * time.Second,
			FallbackBackoff: 500 * time.Millisecond,
			MaxTokens:       1024,
		},
		Analysis: AnalysisConfig{
			MaxClaims:         DefaultMaxClaims,
			VerifyConcurrency: 3,
			TranscriptChars:   12000,
		},
		Search: SearchConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			TTL:       7 * 24 * time.Hour,
			MemoryTTL: 15 * time.Minute,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Events: EventsConfig{
			Topic: "claimlens.reports",
		},
		Server: ServerConfig{
			Addr:             ":8080",
			CORSAllowOrigins: []string{"*"},
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "ClaimLens/0.1 (+https://github.com/ppiankov/claimlens)",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field requirements
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
