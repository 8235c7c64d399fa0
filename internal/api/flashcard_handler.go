package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cardforge/internal/api/shared"
	"github.com/phrazzld/cardforge/internal/platform/logger"
	"github.com/phrazzld/cardforge/internal/store"
)

// FlashcardHandler serves the flashcards stored for a subject.
type FlashcardHandler struct {
	flashcards store.FlashcardStore
	logger     *slog.Logger
}

// NewFlashcardHandler creates a FlashcardHandler.
func NewFlashcardHandler(flashcards store.FlashcardStore, logger *slog.Logger) *FlashcardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardHandler{
		flashcards: flashcards,
		logger:     logger.With("component", "flashcard_handler"),
	}
}

// ListFlashcards handles GET /api/subjects/{id}/flashcards. A subject
// without flashcards is reported as not found.
func (h *FlashcardHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	subjectID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.flashcards.ListBySubject(r.Context(), subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load flashcards")
		return
	}
	if len(cards) == 0 {
		HandleAPIError(w, r, store.ErrSubjectNotFound, "")
		return
	}

	resp := SubjectFlashcardsResponse{
		SubjectID:  subjectID.String(),
		Count:      len(cards),
		Flashcards: make([]FlashcardResponse, 0, len(cards)),
	}
	for _, card := range cards {
		resp.Flashcards = append(resp.Flashcards, storedCardToResponse(card))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeleteFlashcards handles DELETE /api/subjects/{id}/flashcards.
func (h *FlashcardHandler) DeleteFlashcards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	subjectID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	deleted, err := h.flashcards.DeleteBySubject(ctx, subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete flashcards")
		return
	}
	if deleted == 0 {
		HandleAPIError(w, r, store.ErrSubjectNotFound, "")
		return
	}

	log.InfoContext(ctx, "subject flashcards deleted", "subject_id", subjectID, "count", deleted)
	shared.RespondWithJSON(w, r, http.StatusOK, DeleteFlashcardsResponse{
		SubjectID: subjectID.String(),
		Deleted:   deleted,
	})
}
