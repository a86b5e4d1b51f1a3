// Package memory provides an in-process implementation of queue.Repository.
package memory

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/queue"
)

// Repository keeps entries in insertion order with an ID index.
// Safe for concurrent use. Returned entries are copies.
type Repository struct {
	mu      sync.RWMutex
	entries []domain.QueueEntry
	byID    map[string]int
	counter int64
	waiting int
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		byID: make(map[string]int),
	}
}

// Append stores a new entry built by admit.
func (r *Repository) Append(_ context.Context, admit queue.AdmitFunc) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	entry := admit(r.counter, r.waiting)

	r.byID[entry.ID] = len(r.entries)
	r.entries = append(r.entries, *entry)
	if entry.Status == domain.StatusWaiting {
		r.waiting++
	}

	out := *entry
	return &out, nil
}

// FindByID returns a copy of the entry with the given ID.
func (r *Repository) FindByID(_ context.Context, id string) (*domain.QueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, queue.ErrEntryNotFound
	}
	out := r.entries[i]
	return &out, nil
}

// Update applies mutate to the entry. Only Status and Note are kept.
func (r *Repository) Update(_ context.Context, id string, mutate func(*domain.QueueEntry)) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, queue.ErrEntryNotFound
	}

	stored := &r.entries[i]
	draft := *stored
	mutate(&draft)

	if stored.Status == domain.StatusWaiting {
		r.waiting--
	}
	if draft.Status == domain.StatusWaiting {
		r.waiting++
	}
	stored.Status = draft.Status
	stored.Note = draft.Note

	out := *stored
	return &out, nil
}

// All returns a snapshot of every entry taken at call time.
func (r *Repository) All(_ context.Context) (iter.Seq[domain.QueueEntry], error) {
	r.mu.RLock()
	snapshot := slices.Clone(r.entries)
	r.mu.RUnlock()

	return slices.Values(snapshot), nil
}

// Len returns the number of stored entries.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
