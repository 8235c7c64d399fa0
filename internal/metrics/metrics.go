package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/cardforge/internal/events"
)

// Run outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	runsStarted   *prometheus.CounterVec
	runsFinished  *prometheus.CounterVec
	topicFailures prometheus.Counter
	cardsProduced prometheus.Counter
	reflections   prometheus.Histogram

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec

	tasksFinished *prometheus.CounterVec
	taskDuration  prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a collector whose metrics are prefixed with namespace
// and registered on a fresh registry together with the Go runtime and
// process collectors.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_runs_started_total",
				Help:      "Total number of generation runs started",
			},
			[]string{"mode"},
		),
		runsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_runs_finished_total",
				Help:      "Total number of generation runs finished, by outcome",
			},
			[]string{"mode", "outcome"},
		),
		topicFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "topic_failures_total",
				Help:      "Total number of topics skipped because card generation failed",
			},
		),
		cardsProduced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flashcards_produced_total",
				Help:      "Total number of flashcards returned by generation runs",
			},
		),
		reflections: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reflection_iterations",
				Help:      "Number of reflection iterations per card or batch",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 10},
			},
		),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "Total number of language model calls",
			},
			[]string{"backend", "operation", "status"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_call_duration_seconds",
				Help:      "Language model call duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"backend", "operation"},
		),
		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_finished_total",
				Help:      "Total number of background generation tasks finished, by status",
			},
			[]string{"status"},
		),
		taskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Background generation task duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.runsStarted,
		c.runsFinished,
		c.topicFailures,
		c.cardsProduced,
		c.reflections,
		c.llmCalls,
		c.llmDuration,
		c.tasksFinished,
		c.taskDuration,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RunStarted counts a generation run entering the pipeline.
func (c *Collector) RunStarted(mode string) {
	c.runsStarted.WithLabelValues(mode).Inc()
}

// RunFinished counts a finished run, classifying err as the outcome.
func (c *Collector) RunFinished(mode string, err error) {
	c.runsFinished.WithLabelValues(mode, outcome(err)).Inc()
}

// TopicFailed counts a skipped topic.
func (c *Collector) TopicFailed() {
	c.topicFailures.Inc()
}

// CardsProduced adds n to the produced card total.
func (c *Collector) CardsProduced(n int) {
	if n > 0 {
		c.cardsProduced.Add(float64(n))
	}
}

// ReflectionIterations observes how many critique rounds one card or batch took.
func (c *Collector) ReflectionIterations(n int) {
	c.reflections.Observe(float64(n))
}

// ObserveLLMCall records one language model call.
func (c *Collector) ObserveLLMCall(backend, operation string, d time.Duration, err error) {
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeError
	}
	c.llmCalls.WithLabelValues(backend, operation, status).Inc()
	c.llmDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// HandleEvent records finished generation tasks. Other event types are
// ignored.
func (c *Collector) HandleEvent(ctx context.Context, event *events.Event) error {
	if event == nil || event.Type != events.TypeGenerationFinished {
		return nil
	}

	var payload events.GenerationFinished
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}

	c.tasksFinished.WithLabelValues(payload.Status).Inc()
	c.taskDuration.Observe(payload.Duration)
	return nil
}

// Middleware records request counts and latency per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
