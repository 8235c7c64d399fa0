package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/events"
	"github.com/phrazzld/cardforge/internal/mocks"
	"github.com/phrazzld/cardforge/internal/orchestrator"
)

var _ orchestrator.Recorder = (*Collector)(nil)
var _ events.EventHandler = (*Collector)(nil)

func TestCollector_RunMetrics(t *testing.T) {
	c := NewCollector("test")

	c.RunStarted("rag")
	c.RunStarted("rag")
	c.RunFinished("rag", nil)
	c.RunFinished("rag", fmt.Errorf("run aborted: %w", context.Canceled))
	c.RunFinished("traditional", errors.New("backend down"))
	c.TopicFailed()
	c.CardsProduced(4)
	c.CardsProduced(0)
	c.ReflectionIterations(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runsStarted.WithLabelValues("rag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues("rag", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues("rag", OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues("traditional", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.topicFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.cardsProduced))
	assert.Equal(t, 1, testutil.CollectAndCount(c.reflections))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	first := NewCollector("test")
	second := NewCollector("test")

	first.TopicFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(first.topicFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.topicFailures))
}

func TestCollector_HandleEvent(t *testing.T) {
	c := NewCollector("test")

	finished, err := events.NewEvent(events.TypeGenerationFinished, events.GenerationFinished{
		TaskID:    uuid.New(),
		SubjectID: uuid.New(),
		Status:    "completed",
		CardCount: 3,
		Duration:  12.5,
	})
	require.NoError(t, err)
	require.NoError(t, c.HandleEvent(context.Background(), finished))

	requested, err := events.NewEvent(events.TypeGenerationRequested, events.GenerationRequested{TaskID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, c.HandleEvent(context.Background(), requested))
	require.NoError(t, c.HandleEvent(context.Background(), nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksFinished.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.tasksFinished))
	assert.Equal(t, 1, testutil.CollectAndCount(c.taskDuration))
}

func TestCollector_HandleEvent_BadPayload(t *testing.T) {
	c := NewCollector("test")
	event := &events.Event{Type: events.TypeGenerationFinished, Payload: []byte("not json")}

	assert.Error(t, c.HandleEvent(context.Background(), event))
}

func TestInstrumentBackend(t *testing.T) {
	c := NewCollector("test")
	backend := &mocks.MockBackend{
		Responses: []string{"ok"},
		GenerateFlashcardBatchFn: func(ctx context.Context, content string, numCards int, external bool) ([]domain.Flashcard, error) {
			return nil, domain.ErrValidation
		},
	}
	wrapped := InstrumentBackend(backend, c)

	text, err := wrapped.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	_, err = wrapped.GenerateFlashcardBatch(context.Background(), "content", 3, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, "mock", wrapped.Name())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.llmCalls.WithLabelValues("mock", OperationComplete, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.llmCalls.WithLabelValues("mock", OperationBatch, OutcomeError)))
	assert.Equal(t, 1, backend.CompleteCalls())
}

func TestInstrumentBackend_NilCollector(t *testing.T) {
	backend := &mocks.MockBackend{}
	assert.Same(t, backend, InstrumentBackend(backend, nil))
}

func TestCollector_MiddlewareAndHandler(t *testing.T) {
	c := NewCollector("test")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/generations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/generations/{id}", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
