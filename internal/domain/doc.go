// Package domain contains the core entities of the flashcard generation
// pipeline: flashcards, topics, retrieval chunks, evaluation reports and the
// generation request that configures one run. It has no dependencies on
// infrastructure or on any language model provider.
package domain
