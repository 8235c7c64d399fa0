// Package store defines the persistence contracts for generated flashcards
// and generation tasks, together with the transaction helper and error
// taxonomy shared by their implementations.
package store
