package websearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSearchConfig(baseURL string) config.SearchConfig {
	return config.SearchConfig{
		Enabled:      true,
		BaseURL:      baseURL,
		MaxResults:   3,
		SnippetChars: DefaultSnippetChars,
		Timeout:      5 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClient(logger, testSearchConfig(baseURL), DefaultBreakerSettings())
	require.NoError(t, err)
	return c
}

func TestClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "sql joins", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Joins", "url": "https://example.com/1", "content": "A join combines rows."},
				{"title": "Inner", "url": "https://example.com/2", "content": "Inner joins match keys."},
				{"title": "Outer", "url": "https://example.com/3", "content": "Outer joins keep rows."},
				{"title": "Cross", "url": "https://example.com/4", "content": "Cross joins multiply."},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/")

	results, err := c.Search(context.Background(), "  sql joins ", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Joins", results[0].Title)
	assert.Equal(t, "A join combines rows.", results[0].Snippet)
}

func TestClientSearchEmptyQuery(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	results, err := c.Search(context.Background(), "   ", 3)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClientCircuitBreakerTrips(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Search(ctx, "query", 3)
		assert.ErrorIs(t, err, ErrSearchFailed)
	}

	_, err := c.Search(ctx, "query", 3)

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load(), "open breaker should not reach the provider")
}

func TestNewClientValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewClient(logger, config.SearchConfig{}, DefaultBreakerSettings())
	assert.Error(t, err)

	_, err = NewClient(nil, testSearchConfig("http://localhost"), DefaultBreakerSettings())
	assert.Error(t, err)
}
