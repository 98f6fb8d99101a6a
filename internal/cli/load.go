package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envAliases are the conventional variable names honored next to CLAIMLENS_*
var envAliases = map[string][]string{
	"llm.api_key":              {"CLAIMLENS_LLM_API_KEY"},
	"llm.base_url":             {"CLAIMLENS_LLM_BASE_URL", "OPENAI_BASE_URL"},
	"search.google_api_key":    {"CLAIMLENS_SEARCH_GOOGLE_API_KEY", "GOOGLE_SEARCH_API_KEY"},
	"search.google_cx":         {"CLAIMLENS_SEARCH_GOOGLE_CX", "GOOGLE_SEARCH_CX"},
	"search.factcheck_api_key": {"CLAIMLENS_SEARCH_FACTCHECK_API_KEY", "GOOGLE_FACTCHECK_API_KEY"},
	"video.youtube_api_key":    {"CLAIMLENS_VIDEO_YOUTUBE_API_KEY", "YOUTUBE_API_KEY"},
	"cache.redis_url":          {"CLAIMLENS_CACHE_REDIS_URL", "REDIS_URL"},
	"cache.dir":                {"CLAIMLENS_CACHE_DIR"},
	"store.database_url":       {"CLAIMLENS_STORE_DATABASE_URL", "DATABASE_URL"},
	"events.brokers":           {"CLAIMLENS_EVENTS_BROKERS", "KAFKA_BROKERS"},
	"http.http_proxy":          {"CLAIMLENS_HTTP_HTTP_PROXY", "HTTP_PROXY"},
	"http.https_proxy":         {"CLAIMLENS_HTTP_HTTPS_PROXY", "HTTPS_PROXY"},
}

// setupViper registers defaults, the config file and environment bindings on v
func setupViper(v *viper.Viper, file string) error {
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}

	v.SetEnvPrefix("CLAIMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".claimlens"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults flattens cfg's YAML form into dotted viper defaults
func setDefaults(v *viper.Viper, cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flatten(v, "", tree)
	return nil
}

func flatten(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig decodes v into a validated Config.
// An empty llm.api_key falls back to the provider's conventional variable.
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
