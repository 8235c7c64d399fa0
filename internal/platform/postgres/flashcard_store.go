package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/platform/logger"
	"github.com/phrazzld/cardforge/internal/store"
)

// PostgresFlashcardStore implements store.FlashcardStore on PostgreSQL.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// NewPostgresFlashcardStore creates a flashcard store. It panics if db is nil.
func NewPostgresFlashcardStore(db store.DBTX, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFlashcardStore{
		db:     db,
		logger: logger.With(slog.String("component", "flashcard_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a store that runs its queries inside tx.
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &PostgresFlashcardStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// CreateMultiple validates every card before writing any of them, then
// inserts them in order. Callers wanting all-or-nothing semantics run it
// through WithTx.
func (s *PostgresFlashcardStore) CreateMultiple(
	ctx context.Context,
	subjectID, taskID uuid.UUID,
	cards []domain.Flashcard,
) ([]store.StoredFlashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if subjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: subject id is required", store.ErrInvalidEntity)
	}
	if len(cards) == 0 {
		return []store.StoredFlashcard{}, nil
	}

	for i, card := range cards {
		if err := card.Validate(); err != nil {
			log.WarnContext(ctx, "rejecting invalid flashcard",
				"subject_id", subjectID, "index", i, "error", err)
			return nil, fmt.Errorf("%w: card %d: %v", store.ErrInvalidEntity, i, err)
		}
	}

	query := `
		INSERT INTO flashcards (id, subject_id, task_id, position, front, back, difficulty, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	createdAt := s.now()
	stored := make([]store.StoredFlashcard, 0, len(cards))
	for i, card := range cards {
		tags := card.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}

		id := uuid.New()
		_, err = s.db.ExecContext(ctx, query,
			id,
			subjectID,
			taskID,
			i,
			card.Front,
			card.Back,
			string(card.Difficulty),
			tagsJSON,
			createdAt,
		)
		if err != nil {
			log.ErrorContext(ctx, "failed to insert flashcard",
				"subject_id", subjectID, "task_id", taskID, "index", i, "error", err)
			return nil, MapError(err)
		}

		card.Tags = tags
		stored = append(stored, store.StoredFlashcard{
			ID:        id,
			SubjectID: subjectID,
			TaskID:    taskID,
			Flashcard: card,
			CreatedAt: createdAt,
		})
	}

	log.DebugContext(ctx, "flashcards stored",
		"subject_id", subjectID, "task_id", taskID, "count", len(stored))
	return stored, nil
}

// ListBySubject returns a subject's flashcards, oldest batch first and in
// generation order within a batch.
func (s *PostgresFlashcardStore) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]store.StoredFlashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, subject_id, task_id, front, back, difficulty, tags, created_at
		FROM flashcards
		WHERE subject_id = $1
		ORDER BY created_at, position
	`

	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		log.ErrorContext(ctx, "failed to query flashcards", "subject_id", subjectID, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []store.StoredFlashcard{}
	for rows.Next() {
		var (
			card       store.StoredFlashcard
			difficulty string
			tagsJSON   []byte
		)
		if err := rows.Scan(
			&card.ID,
			&card.SubjectID,
			&card.TaskID,
			&card.Front,
			&card.Back,
			&difficulty,
			&tagsJSON,
			&card.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flashcard: %w", err)
		}
		card.Difficulty = domain.Difficulty(difficulty)
		card.Tags = []string{}
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &card.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags for flashcard %s: %w", card.ID, err)
			}
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return cards, nil
}

// DeleteBySubject removes all of a subject's flashcards. Deleting from a
// subject with no cards is not an error.
func (s *PostgresFlashcardStore) DeleteBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE subject_id = $1`, subjectID)
	if err != nil {
		log.ErrorContext(ctx, "failed to delete flashcards", "subject_id", subjectID, "error", err)
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.InfoContext(ctx, "flashcards deleted", "subject_id", subjectID, "count", deleted)
	return deleted, nil
}
