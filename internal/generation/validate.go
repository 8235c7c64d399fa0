package generation

import (
	"fmt"
	"strings"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/llmjson"
)

// Field synonyms accepted from model output, in priority order.
var (
	frontKeys = []string{"front", "question", "q"}
	backKeys  = []string{"back", "answer", "a"}
)

// wrapperKeys are the object keys under which models tend to nest the card array.
var wrapperKeys = []string{"questions", "flashcards", "cards"}

var isCardObject = llmjson.HasAnyKey(frontKeys...)

// ExtractBatchCandidates recovers the raw flashcard candidates from a batch
// response. It accepts a bare array, an object wrapping the array under one
// of the wrapper keys, or a single flashcard object.
func ExtractBatchCandidates(text string) ([]any, error) {
	v, err := llmjson.Decode(text, llmjson.Any, looksLikeBatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return unwrapBatch(v), nil
}

func looksLikeBatch(v any) bool {
	return len(unwrapBatch(v)) > 0
}

// unwrapBatch normalizes the accepted top-level shapes to a candidate list.
// It returns nil for shapes that hold no card-like object.
func unwrapBatch(v any) []any {
	switch t := v.(type) {
	case []any:
		if llmjson.ContainsObjectWith(isCardObject)(t) {
			return t
		}
	case map[string]any:
		for _, key := range wrapperKeys {
			if arr, ok := t[key].([]any); ok && llmjson.ContainsObjectWith(isCardObject)(arr) {
				return arr
			}
		}
		if isCardObject(t) {
			return []any{t}
		}
	}
	return nil
}

// ValidateBatch applies the admission rules to raw candidates in order and
// keeps at most numCards survivors. Candidates that are not objects or lack
// a non-blank front or back are discarded. It fails with ErrValidation when
// nothing survives.
func ValidateBatch(candidates []any, numCards int) ([]domain.Flashcard, error) {
	cards := make([]domain.Flashcard, 0, min(len(candidates), max(numCards, 0)))
	for _, candidate := range candidates {
		if numCards > 0 && len(cards) >= numCards {
			break
		}
		obj, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		card, ok := cardFromObject(obj)
		if !ok {
			continue
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: %d candidates, none usable", ErrValidation, len(candidates))
	}
	return cards, nil
}

// Revalidate runs already-built cards through the same admission rules.
// Validating a validated batch returns an equal batch.
func Revalidate(cards []domain.Flashcard, numCards int) ([]domain.Flashcard, error) {
	candidates := make([]any, 0, len(cards))
	for _, c := range cards {
		tags := make([]any, len(c.Tags))
		for i, tag := range c.Tags {
			tags[i] = tag
		}
		candidates = append(candidates, map[string]any{
			"front":      c.Front,
			"back":       c.Back,
			"difficulty": string(c.Difficulty),
			"tags":       tags,
		})
	}
	return ValidateBatch(candidates, numCards)
}

// ParseFlashcard recovers a single {front, back} object from a draft or
// refine response. Difficulty and tags are not requested at this
// granularity and default to medium and empty.
func ParseFlashcard(text string) (domain.Flashcard, error) {
	obj, err := llmjson.DecodeObject(text, isCardObject)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	card, ok := cardFromObject(obj)
	if !ok {
		return domain.Flashcard{}, fmt.Errorf("%w: flashcard object has an empty side", ErrParse)
	}
	return card, nil
}

func cardFromObject(obj map[string]any) (domain.Flashcard, bool) {
	front := firstString(obj, frontKeys)
	back := firstString(obj, backKeys)
	if front == "" || back == "" {
		return domain.Flashcard{}, false
	}
	return domain.Flashcard{
		Front:      front,
		Back:       back,
		Difficulty: domain.NormalizeDifficulty(obj["difficulty"]),
		Tags:       normalizeTags(obj["tags"]),
	}, true
}

// firstString returns the first non-blank string value among keys, trimmed.
func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// normalizeTags turns any tag value into a sequence of strings: sequences
// are kept (non-string elements formatted), a truthy scalar becomes a
// single-element sequence and absent or falsy values become empty.
func normalizeTags(raw any) []string {
	switch t := raw.(type) {
	case nil:
		return []string{}
	case []any:
		tags := make([]string, 0, len(t))
		for _, el := range t {
			if s, ok := el.(string); ok {
				tags = append(tags, s)
				continue
			}
			tags = append(tags, fmt.Sprint(el))
		}
		return tags
	case []string:
		return append([]string{}, t...)
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	case bool:
		if !t {
			return []string{}
		}
		return []string{"true"}
	case float64:
		if t == 0 {
			return []string{}
		}
		return []string{fmt.Sprint(t)}
	default:
		return []string{fmt.Sprint(t)}
	}
}
