package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into segments close to a target size. It prefers
// to cut after sentence punctuation, then at whitespace, and only cuts
// inside a word when a single word is longer than the target.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Non-positive sizes fall back to defaults
// and the overlap is clamped below the size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the chunks of text. Text no longer than the target size
// yields a single trimmed chunk; blank text yields none.
func (c *Chunker) Split(text string) []string {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}
	if len(content) <= c.size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + c.size
		if end >= len(content) {
			end = len(content)
		} else {
			end = c.boundary(content, start, end)
		}

		if piece := strings.TrimSpace(content[start:end]); piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= len(content) {
			break
		}

		next := c.overlapStart(content, start, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// boundary returns the cut offset for the window content[start:end], which
// is exactly the target size long and ends before the end of content.
func (c *Chunker) boundary(content string, start, end int) int {
	if isSpace(content[end]) {
		return end
	}

	// Sentence ends are preferred when they keep the chunk at least half full.
	minCut := start + (end-start)/2
	for i := end - 1; i > minCut; i-- {
		switch content[i-1] {
		case '.', '!', '?', '\n':
			if isSpace(content[i]) {
				return i
			}
		}
	}

	if i := strings.LastIndexFunc(content[start:end], unicode.IsSpace); i > 0 {
		return start + i
	}

	// A single word longer than the window: cut on a rune boundary.
	cut := end
	for cut > start && !utf8.RuneStart(content[cut]) {
		cut--
	}
	if cut == start {
		return end
	}
	return cut
}

// overlapStart moves back from end by the overlap and then forward to the
// start of the next word so that overlapping chunks do not begin mid-word.
func (c *Chunker) overlapStart(content string, start, end int) int {
	if c.overlap == 0 {
		return end
	}
	next := end - c.overlap
	if next <= start {
		return end
	}
	if !isSpace(content[next-1]) {
		i := strings.IndexFunc(content[next:end], unicode.IsSpace)
		if i < 0 {
			return end
		}
		next += i
	}
	for next < end && isSpace(content[next]) {
		next++
	}
	return next
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
