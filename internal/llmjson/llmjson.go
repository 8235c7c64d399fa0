package llmjson

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no acceptable JSON value can be recovered.
var ErrNoJSON = errors.New("no acceptable JSON value found in text")

// Shape selects which bracketed regions are scanned during recovery.
type Shape int

const (
	// Any scans both arrays and objects, in order of appearance.
	Any Shape = iota
	// Array scans only [...] regions.
	Array
	// Object scans only {...} regions.
	Object
)

// Matcher decides whether a decoded candidate carries the expected fields.
type Matcher func(v any) bool

var fenceRegex = regexp.MustCompile("(?m)^\\s*```[a-zA-Z0-9_-]*\\s*$")

// StripFences removes markdown code fence lines, including language tags
// such as ```json, and trims the result.
func StripFences(text string) string {
	out := fenceRegex.ReplaceAllString(text, "")
	out = strings.ReplaceAll(out, "```json", "")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

// Decode recovers the first JSON value in text that match accepts. A nil
// matcher accepts any value of the requested shape.
func Decode(text string, shape Shape, match Matcher) (any, error) {
	if match == nil {
		match = func(any) bool { return true }
	}
	accept := func(v any) bool { return shapeOf(v, shape) && match(v) }

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	if v, ok := strict(trimmed); ok && accept(v) {
		return v, nil
	}

	stripped := StripFences(trimmed)
	if stripped != trimmed {
		if v, ok := strict(stripped); ok && accept(v) {
			return v, nil
		}
	}

	var found any
	if scanRegions(stripped, shape, func(region string) bool {
		v, ok := strict(region)
		if ok && accept(v) {
			found = v
			return true
		}
		return false
	}) {
		return found, nil
	}

	return nil, ErrNoJSON
}

// DecodeArray recovers a JSON array whose decoded value satisfies match.
func DecodeArray(text string, match Matcher) ([]any, error) {
	v, err := Decode(text, Array, match)
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// DecodeObject recovers a JSON object whose decoded value satisfies match.
func DecodeObject(text string, match Matcher) (map[string]any, error) {
	v, err := Decode(text, Object, match)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// HasAnyKey matches objects containing at least one of keys.
func HasAnyKey(keys ...string) Matcher {
	return func(v any) bool {
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, k := range keys {
			if _, ok := m[k]; ok {
				return true
			}
		}
		return false
	}
}

// ContainsObjectWith matches arrays holding at least one object that
// satisfies inner.
func ContainsObjectWith(inner Matcher) Matcher {
	return func(v any) bool {
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, el := range arr {
			if inner(el) {
				return true
			}
		}
		return false
	}
}

// NonEmptyStrings matches arrays holding at least one non-blank string.
func NonEmptyStrings(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, el := range arr {
		if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Regions returns every balanced bracketed region of the given shape in
// order of their opening bracket. Brackets inside JSON strings are ignored.
// Nested regions are returned after the region enclosing them.
func Regions(text string, shape Shape) []string {
	var regions []string
	scanRegions(text, shape, func(region string) bool {
		regions = append(regions, region)
		return false
	})
	return regions
}

// scanRegions visits regions in the order Regions returns them and stops at
// the first one visit accepts, reporting whether any was accepted.
func scanRegions(text string, shape Shape, visit func(region string) bool) bool {
	for i := 0; i < len(text); i++ {
		c := text[i]
		var closing byte
		switch {
		case c == '[' && shape != Object:
			closing = ']'
		case c == '{' && shape != Array:
			closing = '}'
		default:
			continue
		}
		if end := matchBracket(text, i, c, closing); end > i && visit(text[i:end+1]) {
			return true
		}
	}
	return false
}

// matchBracket returns the index of the bracket closing the one at start,
// or -1 when the region is unbalanced.
func matchBracket(text string, start int, opening, closing byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func strict(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

func shapeOf(v any, shape Shape) bool {
	switch v.(type) {
	case []any:
		return shape == Any || shape == Array
	case map[string]any:
		return shape == Any || shape == Object
	}
	return false
}
