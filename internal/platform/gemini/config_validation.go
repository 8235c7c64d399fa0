package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/generation"
)

// validateConfig checks the settings the cloud backend cannot run without
// and warns about values that fall back to defaults.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "missing Gemini API key", "error", "gemini_api_key is empty")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "missing Gemini model name", "error", "model_name is empty")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "invalid max_retries value",
			"value", cfg.MaxRetries,
			"action", "using default value")
	}

	if cfg.RequestsPerMinute <= 0 && cfg.TokensPerMinute <= 0 {
		logger.WarnContext(ctx, "no rate limits configured for cloud backend",
			"action", "requests are not throttled")
	}

	return nil
}
