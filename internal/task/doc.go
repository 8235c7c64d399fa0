// Package task runs flashcard generation in the background. A
// GenerationTask wraps one orchestrator run, publishes its progress, result
// and failure as messages and can be cancelled; the TaskRunner queues tasks,
// executes them on a fixed pool of workers and records their status in a
// TaskStore.
package task
