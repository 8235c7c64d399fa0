package task

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/domain"
)

// GenerationTaskFactory creates GenerationTask instances
type GenerationTaskFactory struct {
	generator  Generator
	saver      FlashcardSaver
	logger     *slog.Logger
	bufferSize int
}

// NewGenerationTaskFactory creates a factory. saver may be nil.
func NewGenerationTaskFactory(
	generator Generator,
	saver FlashcardSaver,
	logger *slog.Logger,
	bufferSize int,
) (*GenerationTaskFactory, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &GenerationTaskFactory{
		generator:  generator,
		saver:      saver,
		logger:     logger,
		bufferSize: bufferSize,
	}, nil
}

// CreateTask creates a pending GenerationTask for req with the given ID.
func (f *GenerationTaskFactory) CreateTask(id uuid.UUID, req domain.GenerationRequest) (*GenerationTask, error) {
	return NewGenerationTask(id, req, f.generator, f.saver, f.logger, f.bufferSize)
}
