package retrieval

import "errors"

var (
	// ErrConnectivity indicates the embedding or vector service cannot be
	// reached. Callers abort the whole run on it.
	ErrConnectivity = errors.New("retrieval service unreachable")

	// ErrCollectionNotFound is returned for a handle not created by
	// CreateOrGetCollection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmbeddingMismatch is returned when an embedder returns a different
	// number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding count does not match input count")
)
