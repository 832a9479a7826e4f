package domain

import "errors"

// Store and input errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrAlreadyEnriched is returned on a second keyword write for a report.
	ErrAlreadyEnriched = errors.New("report already enriched")
)

// Provider errors. Adapters wrap these around the transport error.
var (
	ErrLLMUnavailable       = errors.New("LLM service unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited means retry the same request after a fixed delay.
	ErrRateLimited = errors.New("rate limited")
)

// Pipeline errors.
var (
	// ErrRepairExhausted means model output never parsed within the
	// repair attempts.
	ErrRepairExhausted = errors.New("output repair exhausted")

	// ErrInvalidModelKey means a selected key is not an integer index into
	// the listing the model was shown.
	ErrInvalidModelKey = errors.New("invalid report key")

	ErrNoMorePages  = errors.New("no more pages")
	ErrEmptyCatalog = errors.New("catalog has no indexed reports")
)
