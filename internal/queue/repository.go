package queue

import (
	"context"
	"iter"

	"github.com/mediq/patient-queue/internal/domain"
)

// AdmitFunc builds a new entry from the next ticket number and the number of
// entries currently WAITING. Repositories call it while holding their
// admission lock, so both values are consistent with the append.
type AdmitFunc func(queueNumber int64, waiting int) *domain.QueueEntry

// Repository defines the interface for queue entry storage.
type Repository interface {
	// Append stores the entry built by admit at the end of the queue.
	Append(ctx context.Context, admit AdmitFunc) (*domain.QueueEntry, error)

	// FindByID returns ErrEntryNotFound when no entry has the given ID.
	FindByID(ctx context.Context, id string) (*domain.QueueEntry, error)

	// Update applies mutate to the stored entry atomically and returns the result.
	// Only Status and Note are persisted.
	Update(ctx context.Context, id string, mutate func(*domain.QueueEntry)) (*domain.QueueEntry, error)

	// All returns every entry in insertion order. The sequence may be ranged
	// over more than once.
	All(ctx context.Context) (iter.Seq[domain.QueueEntry], error)
}

// Pinger is implemented by repositories backed by an external store.
type Pinger interface {
	Ping(ctx context.Context) error
}
