// Package api handles incoming HTTP requests for flashcard generation:
// starting runs, polling their progress, cancelling them and reading the
// flashcards stored for a subject. It translates HTTP concerns into events
// and task operations and never exposes raw internal errors to clients.
package api
