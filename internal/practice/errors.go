package practice

import "errors"

var (
	// ErrNotFound covers unknown topics, sessions, and questions. Never retried.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a caller touches a session they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyCompleted is the completion idempotency guard. Callers should
	// treat it as evidence of a prior successful completion, not as a failure.
	ErrAlreadyCompleted = errors.New("session already completed")

	// ErrInvariantViolation signals an internal scoring bug (a score outside
	// [0,100] would have been persisted). It is never shown to callers as-is.
	ErrInvariantViolation = errors.New("scoring invariant violated")
)
