package queue

import "errors"

// ErrNotFound is the error kind shared by every lookup failure.
// Use errors.Is(err, ErrNotFound) to detect it.
var ErrNotFound = errors.New("not found")

// Lookup errors.
var (
	ErrEntryNotFound    error = &notFoundError{msg: "queue not found"}
	ErrNoWaitingEntries error = &notFoundError{msg: "no patients in queue"}
)

// ErrInvalidTransition is returned only when strict transitions are enabled
// and an entry in a terminal status is moved to a different status.
var ErrInvalidTransition = errors.New("status transition not allowed")

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
