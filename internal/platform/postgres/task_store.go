package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/platform/logger"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/phrazzld/cardforge/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore. It panics if db is nil.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask persists a task to the database
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	payload := t.Payload()
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		payload,
		string(t.Status()),
		now,
		now,
	)
	if err != nil {
		log.ErrorContext(ctx, "failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", MapError(err))
	}

	return nil
}

// UpdateTaskStatus updates the status of a task in the database
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	var message sql.NullString
	if errorMsg != "" {
		message = sql.NullString{String: errorMsg, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, string(status), message, s.now(), taskID)
	if err != nil {
		log.ErrorContext(ctx, "failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		log.WarnContext(ctx, "task status update matched no rows", "task_id", taskID)
		return err
	}

	return nil
}

// GetTask returns the stored record of a task.
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (task.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var (
		record  task.TaskRecord
		status  string
		message sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&record.ID,
		&record.Type,
		&record.Payload,
		&status,
		&message,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.TaskRecord{}, store.ErrTaskNotFound
		}
		log.ErrorContext(ctx, "failed to get task", "task_id", taskID, "error", err)
		return task.TaskRecord{}, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	record.Status = task.TaskStatus(status)
	record.ErrorMessage = message.String
	return record, nil
}
