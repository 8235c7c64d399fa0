package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrNilClient is returned when the backend is built without a client.
	ErrNilClient = errors.New("gemini client cannot be nil")
)
