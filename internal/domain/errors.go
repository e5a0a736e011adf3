package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent marks a malformed inbound event. Caller's fault; not
	// retried.
	ErrInvalidEvent = errors.New("invalid inbound event")

	// ErrPresetNotFound marks an unknown preset id. Misconfiguration; the
	// classifier never silently falls back to a default preset.
	ErrPresetNotFound = errors.New("preset not found")

	// ErrNotFound marks a referenced work item that does not exist under
	// the given tenant.
	ErrNotFound = errors.New("work item not found")

	// ErrDuplicateID marks an insert whose id already exists. Should not
	// happen given random id generation, but the store checks anyway.
	ErrDuplicateID = errors.New("duplicate work item id")
)

// InvalidTransitionError reports an attempted illegal status change with
// enough context for the caller to explain the rejection to a user.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
