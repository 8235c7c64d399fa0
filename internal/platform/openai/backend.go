package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	goopenai "github.com/sashabaranov/go-openai"
)

// Backend implements generation.Backend against a local OpenAI-compatible
// chat completions endpoint.
type Backend struct {
	logger      *slog.Logger
	client      chatClient
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *generation.RateLimiter
	batch       *generation.BatchGenerator
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a local backend from the LLM configuration. The
// limiter may be nil, which is the usual case for a local server.
func NewBackend(
	logger *slog.Logger,
	cfg config.LLMConfig,
	prompts *generation.Prompts,
	limiter *generation.RateLimiter,
) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.LocalBaseURL == "" {
		return nil, fmt.Errorf("%w: local base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.LocalModel == "" {
		return nil, fmt.Errorf("%w: local model cannot be empty", generation.ErrInvalidConfig)
	}

	logger.Info("initializing local backend", "base_url", cfg.LocalBaseURL, "model", cfg.LocalModel)
	return newBackend(logger, newClient(cfg.LocalBaseURL, cfg.LocalAPIKey), cfg, prompts, limiter)
}

func newBackend(
	logger *slog.Logger,
	client chatClient,
	cfg config.LLMConfig,
	prompts *generation.Prompts,
	limiter *generation.RateLimiter,
) (*Backend, error) {
	b := &Backend{
		logger:      logger.With("component", "local_backend", "model", cfg.LocalModel),
		client:      client,
		model:       cfg.LocalModel,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
		limiter:     limiter,
	}

	batch, err := generation.NewBatchGenerator(
		b,
		prompts,
		generation.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelaySeconds),
		b.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
	}
	b.batch = batch

	return b, nil
}

// Name implements generation.Backend.
func (b *Backend) Name() string {
	return "local"
}

// Complete implements generation.Completer with one chat completion.
func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", generation.ErrEmptyPrompt
	}

	estimate := generation.EstimateTokens(prompt)
	if err := b.limiter.Wait(ctx, estimate); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", generation.ErrTransientFailure, err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: b.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: b.temperature,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		b.logger.ErrorContext(ctx, "chat completion failed",
			"error", err,
			"status_code", statusCode(err),
			"duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: local backend: %v", generation.ErrTransientFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", generation.ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank message", generation.ErrEmptyResponse)
	}

	b.limiter.Record(resp.Usage.TotalTokens - estimate)

	b.logger.DebugContext(ctx, "chat completion successful",
		"response_length", len(text),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// GenerateFlashcardBatch implements generation.Backend.
func (b *Backend) GenerateFlashcardBatch(
	ctx context.Context,
	content string,
	numCards int,
	useExternalKnowledge bool,
) ([]domain.Flashcard, error) {
	return b.batch.Generate(ctx, content, numCards, useExternalKnowledge)
}
