// Package queue implements patient admission, the status lifecycle,
// next-to-serve selection and queue statistics.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/pkg/clock"
	"github.com/mediq/patient-queue/internal/pkg/ctxlog"
)

// Response messages.
const (
	AddedMessage     = "Patient successfully added to queue"
	CancelledMessage = "Queue cancelled successfully"
)

// WaitMinutesPerPatient is the estimated service time of one waiting patient.
const WaitMinutesPerPatient = 15

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Config contains service configuration.
type Config struct {
	// Location defines calendar days and hours for IDs, filters and statistics.
	// Defaults to UTC.
	Location *time.Location

	// StrictTransitions rejects moving COMPLETED or CANCELLED entries to
	// another status. Off by default: any status may follow any status.
	StrictTransitions bool
}

// Service implements queue business logic.
type Service struct {
	repo   Repository
	cache  StatsCache
	clock  clock.Clock
	loc    *time.Location
	strict bool
}

// NewService creates a new queue service. A nil cache disables caching and a
// nil clock uses the system time.
func NewService(repo Repository, cache StatsCache, clk clock.Clock, cfg Config) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		clock:  clk,
		loc:    loc,
		strict: cfg.StrictTransitions,
	}
}

// AddInput holds patient data for admission.
type AddInput struct {
	PatientID   string
	PatientName string
	BirthPlace  string
	BirthDate   string
	Gender      string
	Address     string
	Religion    string
	// Priority defaults to NORMAL when empty or unrecognized.
	Priority domain.Priority
	Note     string
}

// AddResult is the admission envelope.
type AddResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *domain.QueueEntry `json:"data"`
}

// CancelResult is the cancellation envelope.
type CancelResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Add admits a patient to the end of the queue.
func (s *Service) Add(ctx context.Context, input AddInput) (*AddResult, error) {
	priority := input.Priority
	if !priority.IsValid() {
		priority = domain.PriorityNormal
	}

	entry, err := s.repo.Append(ctx, func(queueNumber int64, waiting int) *domain.QueueEntry {
		now := s.clock.Now().In(s.loc)
		return &domain.QueueEntry{
			ID:                domain.TicketID(now, queueNumber),
			QueueNumber:       queueNumber,
			PatientID:         input.PatientID,
			PatientName:       input.PatientName,
			BirthPlace:        input.BirthPlace,
			BirthDate:         input.BirthDate,
			Gender:            input.Gender,
			Address:           input.Address,
			Religion:          input.Religion,
			Status:            domain.StatusWaiting,
			Priority:          priority,
			CreatedAt:         now,
			EstimatedWaitTime: waiting * WaitMinutesPerPatient,
			Note:              input.Note,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	recordAdmission(entry.Priority)
	s.invalidate(ctx)

	ctxlog.FromContext(ctx).Info("patient admitted",
		"queue_id", entry.ID,
		"queue_number", entry.QueueNumber,
		"priority", entry.Priority,
	)

	return &AddResult{
		Success: true,
		Message: AddedMessage,
		Data:    entry,
	}, nil
}

// Get returns the entry with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.QueueEntry, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateStatus sets the status of an entry. A non-empty note replaces the
// previous one; an empty note keeps it.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status, note string) (*domain.QueueEntry, error) {
	ctx, logger := ctxlog.With(ctx, "queue_id", id)

	var from domain.Status
	rejected := false

	entry, err := s.repo.Update(ctx, id, func(e *domain.QueueEntry) {
		from = e.Status
		if s.strict && !transitionAllowed(e.Status, status) {
			rejected = true
			return
		}
		e.Status = status
		if note != "" {
			e.Note = note
		}
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ErrInvalidTransition
	}

	recordTransition(from, status)
	s.invalidate(ctx)

	logger.Info("queue status updated",
		"from", from,
		"to", status,
	)

	return entry, nil
}

// Cancel marks an entry CANCELLED. Cancelled entries stay in the store, so
// cancelling twice succeeds both times.
func (s *Service) Cancel(ctx context.Context, id string) (*CancelResult, error) {
	if _, err := s.UpdateStatus(ctx, id, domain.StatusCancelled, ""); err != nil {
		return nil, err
	}
	return &CancelResult{
		Success: true,
		Message: CancelledMessage,
	}, nil
}

// ListFilter selects entries for List. Nil or empty fields match everything.
type ListFilter struct {
	Status   *domain.Status
	Priority *domain.Priority
	// Date is a calendar day in YYYY-MM-DD form.
	Date string
}

// Page requests one page of results. Zero values use the defaults.
type Page struct {
	Page  int
	Limit int
}

// PageInfo describes the returned page.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResult is one page of entries.
type ListResult struct {
	Data       []domain.QueueEntry `json:"data"`
	Pagination PageInfo            `json:"pagination"`
}

// List returns entries matching all supplied filters, in insertion order,
// paginated after filtering.
func (s *Service) List(ctx context.Context, filter ListFilter, page Page) (*ListResult, error) {
	if page.Page <= 0 {
		page.Page = DefaultPage
	}
	if page.Limit <= 0 {
		page.Limit = DefaultLimit
	}

	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	matched := make([]domain.QueueEntry, 0)
	for e := range entries {
		if s.matches(&e, filter) {
			matched = append(matched, e)
		}
	}

	total := len(matched)
	totalPages := total / page.Limit
	if total%page.Limit != 0 {
		totalPages++
	}

	// Pages past the end are compared before computing an offset, so huge
	// page numbers cannot overflow.
	data := make([]domain.QueueEntry, 0, min(page.Limit, total))
	if page.Page <= totalPages {
		skip := (page.Page - 1) * page.Limit
		end := skip + min(page.Limit, total-skip)
		data = append(data, matched[skip:end]...)
	}

	return &ListResult{
		Data: data,
		Pagination: PageInfo{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *Service) matches(e *domain.QueueEntry, f ListFilter) bool {
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Priority != nil && e.Priority != *f.Priority {
		return false
	}
	if f.Date != "" && e.Day(s.loc) != f.Date {
		return false
	}
	return true
}

// transitionAllowed implements the strict policy: terminal entries may only
// be set to the status they already have.
func transitionAllowed(from, to domain.Status) bool {
	return !from.IsTerminal() || from == to
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to invalidate stats cache", "error", err)
	}
}
