// Package websearch enriches generation context with web search snippets.
//
// Client queries a SearXNG-compatible JSON search API through a circuit
// breaker so that a failing provider stops being called for a while instead
// of slowing every topic down. Enricher turns results into the
// "[WEB SEARCH SNIPPETS]" block that callers append to their context.
// Enrichment is best effort: failures are logged and yield an empty block.
package websearch
