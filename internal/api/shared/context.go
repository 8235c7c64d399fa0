package shared

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// contextKey is unexported so no other package can collide with it.
type contextKey string

// TraceIDKey is the key for the trace ID in the request context.
const TraceIDKey contextKey = "traceID"

// TraceIDHeader carries the trace ID in requests and responses.
const TraceIDHeader = "X-Trace-ID"

var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// SetTraceID stores traceID in ctx.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a random 32 character hex trace ID.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidTraceID reports whether a client supplied trace ID can be reused.
func ValidTraceID(traceID string) bool {
	return traceIDPattern.MatchString(traceID)
}
