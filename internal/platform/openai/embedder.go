package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/retrieval"
	goopenai "github.com/sashabaranov/go-openai"
)

// Embedder implements retrieval.Embedder with the embeddings endpoint of an
// OpenAI-compatible server.
type Embedder struct {
	logger *slog.Logger
	client embeddingClient
	model  string
}

var _ retrieval.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder from the embedding configuration.
func NewEmbedder(logger *slog.Logger, cfg config.EmbeddingConfig) (*Embedder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model cannot be empty")
	}
	return &Embedder{
		logger: logger.With("component", "embedder", "model", cfg.Model),
		client: newClient(cfg.BaseURL, cfg.APIKey),
		model:  cfg.Model,
	}, nil
}

// Embed implements retrieval.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isConnectivityError(err) {
			e.logger.ErrorContext(ctx, "embedding service unreachable", "error", err)
			return nil, fmt.Errorf("%w: %v", retrieval.ErrConnectivity, err)
		}
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			retrieval.ErrEmbeddingMismatch, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", retrieval.ErrEmbeddingMismatch, item.Index)
		}
		v := make([]float32, len(item.Embedding))
		for i, x := range item.Embedding {
			v[i] = float32(x)
		}
		vectors[item.Index] = v
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for text %d", retrieval.ErrEmbeddingMismatch, i)
		}
	}
	return vectors, nil
}
