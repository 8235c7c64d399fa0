package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/events"
	"github.com/phrazzld/cardforge/internal/metrics"
	"github.com/phrazzld/cardforge/internal/pipeline"
	"github.com/phrazzld/cardforge/internal/platform/postgres"
	"github.com/phrazzld/cardforge/internal/store"
	"github.com/phrazzld/cardforge/internal/task"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "cardforge"

// application holds the shared dependencies of the server and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	collector *metrics.Collector

	// flashcards is nil when no database is configured.
	flashcards store.FlashcardStore
	taskStore  task.TaskStore

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication builds the generation pipeline from cfg and wires it to
// the task runner. db may be nil.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	collector := metrics.NewCollector(metricsNamespace)

	p, err := pipeline.Build(ctx, cfg, logger, collector)
	if err != nil {
		return nil, fmt.Errorf("failed to build generation pipeline: %w", err)
	}

	return assembleApplication(cfg, logger, db, collector, p.Orchestrator)
}

// assembleApplication wires stores, the event emitter and the task runner
// around generator and starts the runner.
func assembleApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	collector *metrics.Collector,
	generator task.Generator,
) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		collector: collector,
	}

	var saver task.FlashcardSaver
	if db != nil {
		app.flashcards = postgres.NewPostgresFlashcardStore(db, logger)
		app.taskStore = postgres.NewPostgresTaskStore(db, logger)

		writer, err := store.NewBatchWriter(db, app.flashcards)
		if err != nil {
			return nil, fmt.Errorf("failed to create flashcard writer: %w", err)
		}
		saver = writer
	} else {
		app.taskStore = task.NewMemoryTaskStore()
	}

	factory, err := task.NewGenerationTaskFactory(generator, saver, logger, task.DefaultMessageBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factory: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount: cfg.Generation.WorkerCount,
		QueueSize:   cfg.Generation.QueueSize,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger))
	if collector != nil {
		app.eventEmitter.RegisterHandler(collector)
	}
	app.taskRunner.SetEmitter(app.eventEmitter)

	app.taskRunner.Start()

	logger.Info("application initialized",
		"worker_count", cfg.Generation.WorkerCount,
		"queue_size", cfg.Generation.QueueSize,
		"persistence", db != nil)
	return app, nil
}

// Run serves HTTP until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task runner and closes the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
