package websearch

import "errors"

var (
	// ErrSearchFailed indicates the search provider returned an error or an
	// unreadable response.
	ErrSearchFailed = errors.New("web search failed")

	// ErrCircuitOpen indicates calls are suspended after repeated failures.
	ErrCircuitOpen = errors.New("web search circuit open")
)
