package task

import "errors"

var (
	// ErrUnauthorized means the calendar credential is expired or invalid.
	// The caller has to re-authenticate; the engine never retries.
	ErrUnauthorized = errors.New("calendar authorization is expired or invalid")

	// ErrRemoteRequest covers every non-auth remote failure (non-2xx,
	// transport errors).
	ErrRemoteRequest = errors.New("calendar request failed")

	// ErrMissingEnd marks a remote record that cannot be mapped to a task
	// because it has no usable end date.
	ErrMissingEnd = errors.New("event has no end date")

	// ErrTaskNotFound is returned for mutations on an id the engine does
	// not know.
	ErrTaskNotFound = errors.New("task not found")
)
