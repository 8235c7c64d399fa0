package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidDifficulty is returned when a difficulty value cannot be parsed strictly.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrInvalidRequest is returned when a generation request is malformed.
	ErrInvalidRequest = errors.New("invalid generation request")
)
