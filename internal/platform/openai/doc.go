// Package openai adapts OpenAI-compatible HTTP endpoints (Ollama, LM Studio,
// vLLM and similar local servers) to the pipeline through
// github.com/sashabaranov/go-openai.
//
// Backend is the local implementation of generation.Backend built on chat
// completions. Embedder produces the vectors stored by the retrieval index
// and reports an unreachable server as retrieval.ErrConnectivity.
package openai
