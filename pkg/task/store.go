package task

import "context"

// EventStore is the engine's contract with the remote calendar. Implementations
// translate between raw remote records and Task, and classify remote failures
// as ErrUnauthorized or ErrRemoteRequest.
type EventStore interface {
	// List returns all tasks in the remote store's own order. A single
	// malformed record is skipped, the rest of the listing still succeeds.
	List(ctx context.Context) ([]Task, error)

	// Insert creates a remote event for the task and returns the task with
	// the server-assigned id. The input task must not carry an id.
	Insert(ctx context.Context, t Task) (Task, error)

	// Update replaces title, description, start and end of the remote event.
	Update(ctx context.Context, t Task) (Task, error)

	// SetCompleted patches only the completion flag and leaves every other
	// field of the remote event untouched.
	SetCompleted(ctx context.Context, id string, completed bool) error

	// Delete removes the remote event.
	Delete(ctx context.Context, id string) error
}
