package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces every environment variable read by Load.
const envPrefix = "CARDFORGE"

// defaults lists every known key with its default value. Keys with a nil
// default are bound to the environment without a default.
var defaults = map[string]any{
	"server.port":      8080,
	"server.log_level": "info",

	"database.url": nil,

	"llm.use_local":           false,
	"llm.gemini_api_key":      nil,
	"llm.model_name":          "gemini-2.0-flash",
	"llm.local_base_url":      "http://localhost:11434/v1",
	"llm.local_model":         "llama3.1",
	"llm.local_api_key":       nil,
	"llm.max_retries":         1,
	"llm.retry_delay_seconds": 2,
	"llm.temperature":         0.7,
	"llm.requests_per_minute": 15,
	"llm.tokens_per_minute":   1000000,
	"llm.request_timeout":     2 * time.Minute,

	"embedding.base_url": "http://localhost:11434/v1",
	"embedding.model":    "nomic-embed-text",
	"embedding.api_key":  nil,

	"retrieval.chunk_size":    1000,
	"retrieval.chunk_overlap": 200,
	"retrieval.top_k":         3,

	"search.enabled":       false,
	"search.base_url":      nil,
	"search.max_results":   3,
	"search.snippet_chars": 480,
	"search.timeout":       10 * time.Second,

	"generation.reflection_mode":           ReflectionPerTopic,
	"generation.max_reflection_iterations": 2,
	"generation.batch_max_iterations":      3,
	"generation.batch_quality_threshold":   95.0,
	"generation.convergence_ratio":         0.9,
	"generation.topic_sample_chunks":       10,
	"generation.worker_count":              2,
	"generation.queue_size":                32,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		if value == nil {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
			}
			continue
		}
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the settings that depend on each other.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if !cfg.LLM.UseLocal && cfg.LLM.GeminiAPIKey == "" {
		return errors.New("config validation failed: llm.gemini_api_key is required when llm.use_local is false")
	}

	if cfg.Search.Enabled && cfg.Search.BaseURL == "" {
		return errors.New("config validation failed: search.base_url is required when search.enabled is true")
	}

	return nil
}
