package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when card generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate cards from text")

	// ErrTransientFailure is returned for provider failures (network, auth,
	// quota) that might resolve on retry
	ErrTransientFailure = errors.New("transient error from language model provider")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrEmptyResponse is returned when the provider answers with no text
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrParse is returned when model output contains no parseable structure
	// with the expected fields
	ErrParse = errors.New("unparseable language model output")

	// ErrValidation is returned when a batch yields zero valid flashcards
	ErrValidation = errors.New("no valid flashcards in language model output")

	// ErrInvalidConfig is returned when the backend configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyPrompt is returned when a completion is requested for a blank prompt
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
