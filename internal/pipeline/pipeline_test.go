package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/metrics"
	"github.com/phrazzld/cardforge/internal/orchestrator"
	"github.com/phrazzld/cardforge/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLLMServer answers chat completions with a fixed flashcard batch.
func fakeLLMServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{
				"role":    "assistant",
				"content": `{"flashcards": [{"q": "What is a channel?", "a": "A typed conduit", "difficulty": "MEDIUM", "tags": "go"}]}`,
			}}},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10},
		})
	}))
}

func localConfig(baseURL string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			UseLocal:       true,
			LocalBaseURL:   baseURL,
			LocalModel:     "llama-test",
			RequestTimeout: 5 * time.Second,
		},
		Embedding: config.EmbeddingConfig{BaseURL: baseURL, Model: "embed-test"},
		Retrieval: config.RetrievalConfig{ChunkSize: 500, ChunkOverlap: 50, TopK: 2},
		Generation: config.GenerationConfig{
			ReflectionMode:          config.ReflectionPerTopic,
			MaxReflectionIterations: 1,
			TopicSampleChunks:       5,
		},
	}
}

func TestBuildRequiresConfigAndLogger(t *testing.T) {
	_, err := pipeline.Build(context.Background(), nil, discardLogger(), nil)
	assert.Error(t, err)

	_, err = pipeline.Build(context.Background(), localConfig("http://localhost:1/v1"), nil, nil)
	assert.Error(t, err)
}

func TestBuildLocalBackend(t *testing.T) {
	p, err := pipeline.Build(context.Background(), localConfig("http://localhost:1/v1"), discardLogger(), nil)

	require.NoError(t, err)
	assert.NotNil(t, p.Orchestrator)
	assert.NotNil(t, p.Index)
	assert.Equal(t, "local", p.Backend.Name())
}

func TestBuildRejectsInvalidLocalBackend(t *testing.T) {
	cfg := localConfig("http://localhost:1/v1")
	cfg.LLM.LocalModel = ""

	_, err := pipeline.Build(context.Background(), cfg, discardLogger(), nil)

	assert.ErrorContains(t, err, "local backend")
}

func TestBuildWithWebSearch(t *testing.T) {
	cfg := localConfig("http://localhost:1/v1")
	cfg.Search = config.SearchConfig{
		Enabled:      true,
		BaseURL:      "http://localhost:2",
		MaxResults:   2,
		SnippetChars: 100,
		Timeout:      time.Second,
	}

	p, err := pipeline.Build(context.Background(), cfg, discardLogger(), nil)

	require.NoError(t, err)
	assert.NotNil(t, p.Orchestrator)
}

func TestBuildBatchReflectionMode(t *testing.T) {
	cfg := localConfig("http://localhost:1/v1")
	cfg.Generation.ReflectionMode = config.ReflectionBatch

	_, err := pipeline.Build(context.Background(), cfg, discardLogger(), nil)

	require.NoError(t, err)
}

func TestTraditionalRunThroughLocalServer(t *testing.T) {
	server := fakeLLMServer(t)
	defer server.Close()

	collector := metrics.NewCollector("cardforge_test")
	p, err := pipeline.Build(context.Background(), localConfig(server.URL+"/v1"), discardLogger(), collector)
	require.NoError(t, err)

	var last orchestrator.Progress
	result, err := p.Orchestrator.Run(context.Background(), domain.GenerationRequest{
		SubjectID:   uuid.New(),
		SubjectName: "Go",
		Documents:   []domain.Document{{ID: "d1", Name: "notes.txt", Content: "Channels connect goroutines."}},
		NumCards:    1,
	}, func(pr orchestrator.Progress) { last = pr })

	require.NoError(t, err)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, "What is a channel?", result.Cards[0].Front)
	assert.Equal(t, orchestrator.ModeTraditional, result.Mode)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, 1, testutil.CollectAndCount(collector.Registry(), "cardforge_test_llm_calls_total"))
}
