package queue

import (
	"cmp"
	"context"
	"fmt"

	"github.com/mediq/patient-queue/internal/domain"
)

// CompareServiceOrder orders entries the way they are served: higher
// priority first, then earlier arrival, then lower queue number.
// Suitable for slices.SortFunc.
func CompareServiceOrder(a, b domain.QueueEntry) int {
	if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.QueueNumber, b.QueueNumber)
}

// Next returns the WAITING entry to be served next without changing it.
// Returns ErrNoWaitingEntries when nobody is waiting.
func (s *Service) Next(ctx context.Context) (*domain.QueueEntry, error) {
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var next *domain.QueueEntry
	for e := range entries {
		if e.Status != domain.StatusWaiting {
			continue
		}
		if next == nil || CompareServiceOrder(e, *next) < 0 {
			next = &e
		}
	}

	recordSelection(next != nil)
	if next == nil {
		return nil, ErrNoWaitingEntries
	}
	return next, nil
}

// WaitingByPriority counts WAITING entries per priority. Every priority is
// present in the result.
func (s *Service) WaitingByPriority(ctx context.Context) (map[domain.Priority]int, error) {
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	counts := make(map[domain.Priority]int, len(domain.Priorities))
	for _, p := range domain.Priorities {
		counts[p] = 0
	}
	for e := range entries {
		if e.Status == domain.StatusWaiting {
			counts[e.Priority]++
		}
	}
	return counts, nil
}
