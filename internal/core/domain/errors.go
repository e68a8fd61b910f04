package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNoMatchingCourse indicates a fuzzy course title could not be
	// resolved against the catalog. Tools recover from this locally by
	// returning a user-facing message; it is not a system failure.
	ErrNoMatchingCourse = errors.New("no matching course")

	// ErrCourseNotFound indicates an exact title lookup missed the catalog.
	ErrCourseNotFound = errors.New("course not found")

	// ErrToolNotFound indicates a tool call named an unregistered tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrIndexUnavailable indicates the embedding or storage backend is
	// unreachable. Fatal to the calling operation; never retried here.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates an ingested document had no content.
	ErrEmptyDocument = errors.New("empty document")
)

// GenerationError wraps a failed model generation call. Transient failures
// (rate limit, server error, timeout) are retried once by the orchestrator;
// everything else is fatal to the query.
type GenerationError struct {
	// Transient marks failures worth one retry with backoff.
	Transient bool

	// Err is the underlying cause.
	Err error
}

func (e *GenerationError) Error() string {
	if e.Transient {
		return fmt.Sprintf("generation failed (transient): %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a GenerationError marked transient.
func IsTransient(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Transient
}
