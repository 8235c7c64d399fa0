// Package retrieval provides the retrieval substrate used by the RAG
// generation mode: a deterministic text chunker, the VectorIndex contract
// consumed by the orchestrator and an in-memory implementation of it that
// keeps one collection of embedded chunks per subject.
//
// Embeddings are produced by an Embedder. Implementations must report an
// unreachable embedding service with an error wrapping ErrConnectivity,
// which the orchestrator treats as fatal for the whole run.
package retrieval
