package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDifficulty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want Difficulty
	}{
		{"canonical easy", "easy", DifficultyEasy},
		{"canonical hard mixed case", "HaRd", DifficultyHard},
		{"italian facile", "facile", DifficultyEasy},
		{"italian medio", "Medio", DifficultyMedium},
		{"italian difficile", "DIFFICILE", DifficultyHard},
		{"low", "low", DifficultyEasy},
		{"high", " high ", DifficultyHard},
		{"unknown word", "impossible", DifficultyMedium},
		{"empty", "", DifficultyMedium},
		{"nil", nil, DifficultyMedium},
		{"number", 3, DifficultyMedium},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDifficulty(tc.raw))
		})
	}
}

func TestNewFlashcard(t *testing.T) {
	t.Parallel()

	t.Run("trims sides and defaults tags", func(t *testing.T) {
		card, err := NewFlashcard("  What is Go? ", " A language ", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "What is Go?", card.Front)
		assert.Equal(t, "A language", card.Back)
		assert.Equal(t, DifficultyMedium, card.Difficulty)
		assert.NotNil(t, card.Tags)
		assert.Empty(t, card.Tags)
	})

	t.Run("rejects blank front", func(t *testing.T) {
		_, err := NewFlashcard("   ", "answer", DifficultyEasy, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects blank back", func(t *testing.T) {
		_, err := NewFlashcard("question", "\n\t", DifficultyEasy, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestFlashcardValidate(t *testing.T) {
	t.Parallel()

	card := Flashcard{Front: "Q", Back: "A", Difficulty: "weird"}
	err := card.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestFlashcardKeyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := Flashcard{Front: "What is TCP?", Back: "A protocol"}
	b := Flashcard{Front: "what is tcp? ", Back: "A PROTOCOL"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestGenerationRequestValidate(t *testing.T) {
	t.Parallel()

	valid := GenerationRequest{
		SubjectID: uuid.New(),
		NumCards:  3,
		Documents: []Document{{ID: "doc-1", Name: "notes.txt", Content: "text"}},
	}
	require.NoError(t, valid.Validate())

	noSubject := valid
	noSubject.SubjectID = uuid.Nil
	assert.ErrorIs(t, noSubject.Validate(), ErrInvalidRequest)

	zeroCards := valid
	zeroCards.NumCards = 0
	assert.ErrorIs(t, zeroCards.Validate(), ErrInvalidRequest)

	queryOnly := valid
	queryOnly.Documents = nil
	queryOnly.UserQuery = "How do SQL databases work?"
	assert.NoError(t, queryOnly.Validate())

	nothing := valid
	nothing.Documents = nil
	assert.ErrorIs(t, nothing.Validate(), ErrInvalidRequest)

	missingDocID := valid
	missingDocID.Documents = []Document{{Name: "x"}}
	assert.ErrorIs(t, missingDocID.Validate(), ErrInvalidRequest)
}
