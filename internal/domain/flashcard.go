package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the self-reported difficulty of a flashcard.
type Difficulty string

// Allowed difficulty values.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// difficultySynonyms maps alternate and localized vocabularies onto the
// canonical difficulty values. Keys are lower-case.
var difficultySynonyms = map[string]Difficulty{
	"facile":    DifficultyEasy,
	"medio":     DifficultyMedium,
	"difficile": DifficultyHard,
	"low":       DifficultyEasy,
	"high":      DifficultyHard,
}

// IsValid reports whether d is one of the canonical values.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// NormalizeDifficulty maps an arbitrary model-produced value onto a canonical
// Difficulty. Canonical values are kept, known synonyms are translated
// case-insensitively and anything else falls back to medium. It never fails.
func NormalizeDifficulty(raw any) Difficulty {
	s, ok := raw.(string)
	if !ok {
		return DifficultyMedium
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if d := Difficulty(s); d.IsValid() {
		return d
	}
	if d, ok := difficultySynonyms[s]; ok {
		return d
	}
	return DifficultyMedium
}

// Flashcard is a single question/answer pair produced by the pipeline.
// Values are never mutated after creation; refinement produces a new value.
type Flashcard struct {
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Difficulty Difficulty `json:"difficulty"`
	Tags       []string   `json:"tags"`
}

// NewFlashcard builds a flashcard with trimmed sides, a normalized
// difficulty and a non-nil tag slice. It returns an error wrapping
// ErrValidation when either side is blank.
func NewFlashcard(front, back string, difficulty Difficulty, tags []string) (Flashcard, error) {
	card := Flashcard{
		Front:      strings.TrimSpace(front),
		Back:       strings.TrimSpace(back),
		Difficulty: NormalizeDifficulty(string(difficulty)),
		Tags:       tags,
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	if err := card.Validate(); err != nil {
		return Flashcard{}, err
	}
	return card, nil
}

// Validate checks the admission criterion: both sides non-empty after
// trimming, and a canonical difficulty.
func (f Flashcard) Validate() error {
	if strings.TrimSpace(f.Front) == "" {
		return fmt.Errorf("%w: flashcard front is empty", ErrValidation)
	}
	if strings.TrimSpace(f.Back) == "" {
		return fmt.Errorf("%w: flashcard back is empty", ErrValidation)
	}
	if !f.Difficulty.IsValid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidDifficulty, f.Difficulty)
	}
	return nil
}

// Key returns the case-insensitive identity of the card used for
// convergence checks between reflection iterations.
func (f Flashcard) Key() string {
	return strings.ToLower(strings.TrimSpace(f.Front)) + "\x00" + strings.ToLower(strings.TrimSpace(f.Back))
}
