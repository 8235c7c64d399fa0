// Package gemini provides the cloud implementation of generation.Backend
// using Google's Gemini API through the google.golang.org/genai client.
//
// This package is an infrastructure adapter: it translates the pipeline's
// completion requests into Gemini calls and maps provider failures onto the
// generation error taxonomy. It does not retry; callers wrap calls in a
// generation.RetryPolicy. Requests are admitted through a shared
// generation.RateLimiter so that every caller using the same API key stays
// within the provider's per-minute request and token quotas.
//
// Flashcard batch generation is delegated to generation.BatchGenerator so
// prompting, parsing and validation match the local backend exactly.
package gemini
