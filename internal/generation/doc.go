// Package generation defines the capability contract every language model
// backend satisfies and the provider-independent machinery shared by the
// backends: prompt templates, flashcard batch validation and normalization,
// the caller-side retry policy and the per-credential rate limiter.
//
// Two concrete backends live under internal/platform: a cloud backend built
// on Gemini and a local backend speaking the OpenAI-compatible chat API. The
// orchestrator selects one at construction time from configuration and only
// ever talks to the Backend interface.
package generation
