package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cardforge/internal/platform/logger"
)

func requestWithLogger(t *testing.T, buf *bytes.Buffer) *http.Request {
	t.Helper()
	l := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logger.WithLogger(context.Background(), l)
	ctx = SetTraceID(ctx, "trace-1234")
	return httptest.NewRequest(http.MethodGet, "/api/generations/x", nil).WithContext(ctx)
}

func TestTraceID(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))

	ctx := SetTraceID(context.Background(), "abc12345")
	assert.Equal(t, "abc12345", GetTraceID(ctx))

	id := NewTraceID()
	assert.Len(t, id, 32)
	assert.NotEqual(t, id, NewTraceID())
	assert.True(t, ValidTraceID(id))

	assert.False(t, ValidTraceID("short"))
	assert.False(t, ValidTraceID("has spaces in it"))
	assert.False(t, ValidTraceID(strings.Repeat("a", 65)))
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusAccepted, map[string]int{"count": 3})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, w.Body.String())
}

func TestRespondWithJSON_EncodingError(t *testing.T) {
	var buf bytes.Buffer
	req := requestWithLogger(t, &buf)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "failed to encode JSON response")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "level=ERROR"},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantLevel: "level=WARN"},
		{name: "client error", status: http.StatusBadRequest, wantLevel: "level=DEBUG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			req := requestWithLogger(t, &buf)
			w := httptest.NewRecorder()

			err := errors.New("dial postgres://app:hunter2@db:5432/cards failed")
			RespondWithErrorAndLog(w, req, tc.status, "Something went wrong", err)

			assert.Equal(t, tc.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Something went wrong", body.Error)
			assert.Equal(t, "trace-1234", body.TraceID)
			assert.NotContains(t, w.Body.String(), "hunter2")

			logs := buf.String()
			assert.Contains(t, logs, tc.wantLevel)
			assert.Contains(t, logs, "[REDACTED_CREDENTIAL]")
			assert.NotContains(t, logs, "hunter2")
		})
	}
}

func TestRespondWithError(t *testing.T) {
	var buf bytes.Buffer
	req := requestWithLogger(t, &buf)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Generation not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Generation not found","trace_id":"trace-1234"}`, w.Body.String())
}

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		errText string
	}{
		{name: "valid", body: `{"name":"go","count":2}`},
		{name: "empty", body: "", wantErr: ErrEmptyBody},
		{name: "malformed", body: `{"name":`, errText: "unexpected EOF"},
		{name: "unknown field", body: `{"name":"go","extra":1}`, errText: "unknown field"},
		{name: "trailing object", body: `{"name":"go"}{"name":"rust"}`, errText: "single JSON object"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got sampleRequest

			err := DecodeJSON(httptest.NewRecorder(), req, &got)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errText != "":
				assert.ErrorContains(t, err, tc.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, sampleRequest{Name: "go", Count: 2}, got)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", MaxRequestBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var got sampleRequest
	err := DecodeJSON(httptest.NewRecorder(), req, &got)

	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, err, &maxErr)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "go", Count: 1}))
	assert.Error(t, ValidateRequest(sampleRequest{Count: 1}))
	assert.Error(t, ValidateRequest(sampleRequest{Name: "go"}))
}
