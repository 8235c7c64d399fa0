// Package pipeline assembles the generation pipeline from configuration.
//
// Build chooses the generation backend (Gemini, or an OpenAI-compatible
// local server), creates the retrieval index, the optional web enricher and
// the reflection components, and returns an orchestrator ready to run
// requests. Both the HTTP server and the command-line generator use it.
package pipeline
