package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/phrazzld/cardforge/internal/task"
)

// DocumentRequest is one source document of a generation request.
type DocumentRequest struct {
	ID      string `json:"id" validate:"required,max=200"`
	Name    string `json:"name" validate:"max=500"`
	Content string `json:"content" validate:"required"`
}

// CreateGenerationRequest is the body of POST /api/generations. A missing
// subject_id starts a new subject.
type CreateGenerationRequest struct {
	SubjectID     string            `json:"subject_id" validate:"omitempty,uuid"`
	SubjectName   string            `json:"subject_name" validate:"required,max=200"`
	Documents     []DocumentRequest `json:"documents" validate:"omitempty,max=50,dive"`
	NumCards      int               `json:"num_cards" validate:"required,gte=1,lte=100"`
	UseWebSearch  bool              `json:"use_web_search"`
	UseRAG        bool              `json:"use_rag"`
	UseReflection bool              `json:"use_reflection"`
	UserQuery     string            `json:"user_query" validate:"max=2000"`
}

// toDomain converts the request, assigning a subject ID when none was given.
func (r CreateGenerationRequest) toDomain() domain.GenerationRequest {
	subjectID := uuid.New()
	if r.SubjectID != "" {
		subjectID = uuid.MustParse(r.SubjectID)
	}

	docs := make([]domain.Document, 0, len(r.Documents))
	for _, d := range r.Documents {
		docs = append(docs, domain.Document{ID: d.ID, Name: d.Name, Content: d.Content})
	}

	return domain.GenerationRequest{
		SubjectID:     subjectID,
		SubjectName:   r.SubjectName,
		Documents:     docs,
		NumCards:      r.NumCards,
		UseWebSearch:  r.UseWebSearch,
		UseRAG:        r.UseRAG,
		UseReflection: r.UseReflection,
		UserQuery:     r.UserQuery,
	}
}

// GenerationAcceptedResponse is returned when a run has been queued.
type GenerationAcceptedResponse struct {
	TaskID    string `json:"task_id"`
	SubjectID string `json:"subject_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

// FlashcardResponse is a flashcard as returned by the API.
type FlashcardResponse struct {
	ID         string   `json:"id,omitempty"`
	Front      string   `json:"front"`
	Back       string   `json:"back"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// GenerationResponse reports the state of a run.
type GenerationResponse struct {
	ID            string              `json:"id"`
	SubjectID     string              `json:"subject_id,omitempty"`
	Status        string              `json:"status"`
	Progress      int                 `json:"progress"`
	StatusMessage string              `json:"status_message,omitempty"`
	Mode          string              `json:"mode,omitempty"`
	Topics        []string            `json:"topics,omitempty"`
	FailedTopics  int                 `json:"failed_topics"`
	Flashcards    []FlashcardResponse `json:"flashcards,omitempty"`
	Error         string              `json:"error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// SubjectFlashcardsResponse lists the stored flashcards of a subject.
type SubjectFlashcardsResponse struct {
	SubjectID  string              `json:"subject_id"`
	Count      int                 `json:"count"`
	Flashcards []FlashcardResponse `json:"flashcards"`
}

// DeleteFlashcardsResponse reports how many flashcards were removed.
type DeleteFlashcardsResponse struct {
	SubjectID string `json:"subject_id"`
	Deleted   int64  `json:"deleted"`
}

func cardToResponse(card domain.Flashcard) FlashcardResponse {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	return FlashcardResponse{
		Front:      card.Front,
		Back:       card.Back,
		Difficulty: string(card.Difficulty),
		Tags:       tags,
	}
}

func storedCardToResponse(card store.StoredFlashcard) FlashcardResponse {
	resp := cardToResponse(card.Flashcard)
	resp.ID = card.ID.String()
	return resp
}

func snapshotToResponse(s task.Snapshot) GenerationResponse {
	resp := GenerationResponse{
		ID:            s.ID.String(),
		SubjectID:     s.SubjectID.String(),
		Status:        string(s.Status),
		Progress:      s.Progress.Percent,
		StatusMessage: s.Progress.Status,
		Error:         s.Error,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Result != nil {
		resp.Mode = s.Result.Mode
		resp.FailedTopics = s.Result.FailedTopics
		for _, t := range s.Result.Topics {
			resp.Topics = append(resp.Topics, string(t))
		}
		resp.Flashcards = make([]FlashcardResponse, 0, len(s.Result.Cards))
		for _, card := range s.Result.Cards {
			resp.Flashcards = append(resp.Flashcards, cardToResponse(card))
		}
	}
	return resp
}

func recordToResponse(rec task.TaskRecord) GenerationResponse {
	return GenerationResponse{
		ID:        rec.ID.String(),
		Status:    string(rec.Status),
		Error:     rec.ErrorMessage,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
