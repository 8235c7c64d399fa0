package gemini

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
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by the backend.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Backend implements generation.Backend on top of the Gemini API.
type Backend struct {
	logger      *slog.Logger
	client      contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *generation.RateLimiter
	batch       *generation.BatchGenerator
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend validates the configuration, creates the Gemini client and
// returns a ready backend. The limiter may be nil to disable throttling.
func NewBackend(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	prompts *generation.Prompts,
	limiter *generation.RateLimiter,
) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	logger.InfoContext(ctx, "initializing Gemini backend", "model", cfg.ModelName)

	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newBackend(logger, client.Models, cfg, prompts, limiter)
}

func newBackend(
	logger *slog.Logger,
	client contentGenerator,
	cfg config.LLMConfig,
	prompts *generation.Prompts,
	limiter *generation.RateLimiter,
) (*Backend, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	b := &Backend{
		logger:      logger.With("component", "gemini_backend", "model", cfg.ModelName),
		client:      client,
		model:       cfg.ModelName,
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
	return "gemini"
}

// Complete implements generation.Completer with a single Gemini call.
func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", generation.ErrEmptyPrompt
	}

	if err := b.limiter.Wait(ctx, generation.EstimateTokens(prompt)); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", generation.ErrTransientFailure, err)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	temperature := b.temperature
	start := time.Now()
	resp, err := b.client.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		b.logger.ErrorContext(ctx, "Gemini API call error",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: gemini: %v", generation.ErrTransientFailure, err)
	}

	text, err := responseText(resp)
	if err != nil {
		b.logger.WarnContext(ctx, "Gemini returned no usable text", "error", err)
		return "", err
	}

	if resp.UsageMetadata != nil {
		b.limiter.Record(int(resp.UsageMetadata.TotalTokenCount) - generation.EstimateTokens(prompt))
	}

	b.logger.DebugContext(ctx, "Gemini API call successful",
		"response_length", len(text),
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

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrEmptyResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", generation.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in candidate", generation.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: blank text", generation.ErrEmptyResponse)
	}
	return text, nil
}
