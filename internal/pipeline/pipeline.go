package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/phrazzld/cardforge/internal/metrics"
	"github.com/phrazzld/cardforge/internal/orchestrator"
	"github.com/phrazzld/cardforge/internal/platform/gemini"
	"github.com/phrazzld/cardforge/internal/platform/openai"
	"github.com/phrazzld/cardforge/internal/redact"
	"github.com/phrazzld/cardforge/internal/reflection"
	"github.com/phrazzld/cardforge/internal/retrieval"
	"github.com/phrazzld/cardforge/internal/topic"
	"github.com/phrazzld/cardforge/internal/websearch"
)

// Pipeline is an assembled generation pipeline.
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Backend      generation.Backend
	Index        retrieval.VectorIndex
}

// Build wires every generation component described by cfg. collector may
// be nil, in which case nothing is instrumented.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	prompts, err := generation.LoadPrompts()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	backend, err := newBackend(ctx, cfg.LLM, logger, prompts)
	if err != nil {
		return nil, err
	}
	backend = metrics.InstrumentBackend(backend, collector)

	embedder, err := openai.NewEmbedder(logger, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	index, err := retrieval.NewMemoryIndex(
		embedder,
		retrieval.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	web, err := newWebSource(cfg.Search, logger)
	if err != nil {
		return nil, err
	}

	retry := generation.NewRetryPolicy(cfg.LLM.MaxRetries, cfg.LLM.RetryDelaySeconds)
	gen := cfg.Generation

	topics, err := topic.NewExtractor(backend, prompts, retry, logger, gen.TopicSampleChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic extractor: %w", err)
	}
	engine, err := reflection.NewEngine(backend, prompts, retry, logger, gen.MaxReflectionIterations)
	if err != nil {
		return nil, fmt.Errorf("failed to create reflection engine: %w", err)
	}
	batch, err := reflection.NewBatchReflector(backend, prompts, retry, logger, reflection.BatchSettings{
		MaxIterations:    gen.BatchMaxIterations,
		QualityThreshold: gen.BatchQualityThreshold,
		ConvergenceRatio: gen.ConvergenceRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch reflector: %w", err)
	}

	deps := orchestrator.Dependencies{
		Backend: backend,
		Index:   index,
		Topics:  topics,
		Engine:  engine,
		Batch:   batch,
		Logger:  logger,
	}
	// A typed nil in the interface would defeat the orchestrator's nil checks.
	if web != nil {
		deps.Web = web
	}
	if collector != nil {
		deps.Recorder = collector
	}

	orch, err := orchestrator.New(deps, orchestrator.Settings{
		TopK:            cfg.Retrieval.TopK,
		BatchReflection: gen.ReflectionMode == config.ReflectionBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	logger.InfoContext(ctx, "generation pipeline ready",
		"backend", backend.Name(),
		"reflection_mode", gen.ReflectionMode,
		"web_search", web != nil,
		"embedding_model", cfg.Embedding.Model)

	return &Pipeline{Orchestrator: orch, Backend: backend, Index: index}, nil
}

func newBackend(
	ctx context.Context,
	cfg config.LLMConfig,
	logger *slog.Logger,
	prompts *generation.Prompts,
) (generation.Backend, error) {
	var limiter *generation.RateLimiter
	if cfg.RequestsPerMinute > 0 || cfg.TokensPerMinute > 0 {
		limiter = generation.NewRateLimiter(cfg.RequestsPerMinute, cfg.TokensPerMinute)
	}

	if cfg.UseLocal {
		b, err := openai.NewBackend(logger, cfg, prompts, limiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create local backend: %w", err)
		}
		logger.Info("using local generation backend",
			"base_url", redact.URL(cfg.LocalBaseURL),
			"model", cfg.LocalModel)
		return b, nil
	}

	b, err := gemini.NewBackend(ctx, logger, cfg, prompts, limiter)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini backend: %w", err)
	}
	logger.Info("using Gemini generation backend", "model", cfg.ModelName)
	return b, nil
}

func newWebSource(cfg config.SearchConfig, logger *slog.Logger) (*websearch.Enricher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := websearch.NewClient(logger, cfg, websearch.DefaultBreakerSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to create web search client: %w", err)
	}
	enricher, err := websearch.NewEnricher(client, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create web enricher: %w", err)
	}
	logger.Info("web enrichment enabled", "base_url", redact.URL(cfg.BaseURL))
	return enricher, nil
}
