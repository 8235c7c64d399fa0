package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/cardforge/internal/api"
	apiMiddleware "github.com/phrazzld/cardforge/internal/api/middleware"
)

// setupRouter creates the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if app.collector != nil {
		r.Use(app.collector.Middleware)
	}

	generationHandler := api.NewGenerationHandler(app.eventEmitter, app.taskRunner, app.taskStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generations", generationHandler.CreateGeneration)
		r.Get("/generations/{id}", generationHandler.GetGeneration)
		r.Delete("/generations/{id}", generationHandler.CancelGeneration)

		if app.flashcards != nil {
			flashcardHandler := api.NewFlashcardHandler(app.flashcards, app.logger)
			r.Get("/subjects/{id}/flashcards", flashcardHandler.ListFlashcards)
			r.Delete("/subjects/{id}/flashcards", flashcardHandler.DeleteFlashcards)
		}
	})

	if app.collector != nil {
		r.Method(http.MethodGet, "/metrics", app.collector.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
