package websearch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
)

// Enricher produces web snippet blocks for generation context.
type Enricher struct {
	searcher     Searcher
	maxResults   int
	snippetChars int
	logger       *slog.Logger
}

// NewEnricher creates an Enricher over searcher.
func NewEnricher(searcher Searcher, cfg config.SearchConfig, logger *slog.Logger) (*Enricher, error) {
	if searcher == nil {
		return nil, errors.New("searcher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Enricher{
		searcher:     searcher,
		maxResults:   cfg.MaxResults,
		snippetChars: cfg.SnippetChars,
		logger:       logger.With("component", "web_enricher"),
	}, nil
}

// Snippets searches for query and returns the formatted snippet block, or
// "" when the search fails or finds nothing.
func (e *Enricher) Snippets(ctx context.Context, query string) string {
	results, err := e.searcher.Search(ctx, query, e.maxResults)
	if err != nil {
		e.logger.WarnContext(ctx, "web enrichment skipped", "error", err)
		return ""
	}
	return FormatSnippets(results, e.maxResults, e.snippetChars)
}
