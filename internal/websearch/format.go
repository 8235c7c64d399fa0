package websearch

import (
	"fmt"
	"strings"
)

// SnippetHeader prefixes every enrichment block.
const SnippetHeader = "[WEB SEARCH SNIPPETS]"

// DefaultSnippetChars caps the length of each snippet.
const DefaultSnippetChars = 480

// FormatSnippets renders up to maxResults non-empty snippets as a numbered
// block under SnippetHeader. Whitespace inside each snippet is collapsed
// and snippets longer than snippetChars are cut at a word boundary. It
// returns "" when no snippet survives.
func FormatSnippets(results []Result, maxResults, snippetChars int) string {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}

	var sb strings.Builder
	n := 0
	for _, r := range results {
		if maxResults > 0 && n >= maxResults {
			break
		}
		snippet := truncate(strings.Join(strings.Fields(r.Snippet), " "), snippetChars)
		if snippet == "" {
			continue
		}
		n++
		if n == 1 {
			sb.WriteString(SnippetHeader)
		}
		fmt.Fprintf(&sb, "\n%d. %s", n, snippet)
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
