package queue

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/pkg/ctxlog"
)

// AverageWaitTime is reported in QueueStats until real service durations
// are tracked.
const AverageWaitTime = 25

// WeekDays is the number of calendar days in a weekly rollup.
const WeekDays = 7

// Stats returns today's counts by status.
func (s *Service) Stats(ctx context.Context) (*domain.QueueStats, error) {
	today := s.today()
	key := "stats:" + today

	var stats domain.QueueStats
	found, gen := s.cached(ctx, key, &stats)
	if found {
		return &stats, nil
	}

	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	stats = s.dayStats(entries, today, nil)
	s.store(ctx, key, gen, stats)
	return &stats, nil
}

// DailyStats returns counts and the hourly distribution for date
// (YYYY-MM-DD). An empty date means today.
func (s *Service) DailyStats(ctx context.Context, date string) (*domain.DailyStats, error) {
	if date == "" {
		date = s.today()
	}
	key := "daily:" + date

	var daily domain.DailyStats
	found, gen := s.cached(ctx, key, &daily)
	if found {
		return &daily, nil
	}

	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	hourly := make([]domain.HourlyCount, 24)
	for h := range hourly {
		hourly[h].Hour = h
	}

	daily = domain.DailyStats{
		Date:               date,
		Stats:              s.dayStats(entries, date, hourly),
		HourlyDistribution: hourly,
	}
	s.store(ctx, key, gen, daily)
	return &daily, nil
}

// WeeklyStats returns per-day totals for the seven days ending today,
// oldest first.
func (s *Service) WeeklyStats(ctx context.Context) (*domain.WeeklyStats, error) {
	now := s.clock.Now().In(s.loc)
	key := "weekly:" + now.Format(domain.DateLayout)

	var weekly domain.WeeklyStats
	found, gen := s.cached(ctx, key, &weekly)
	if found {
		return &weekly, nil
	}

	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	start := time.Date(now.Year(), now.Month(), now.Day()-(WeekDays-1), 0, 0, 0, 0, s.loc)
	days := make([]domain.DaySummary, WeekDays)
	index := make(map[string]int, WeekDays)
	for i := range days {
		date := start.AddDate(0, 0, i).Format(domain.DateLayout)
		days[i].Date = date
		index[date] = i
	}

	total := 0
	for e := range entries {
		i, ok := index[e.Day(s.loc)]
		if !ok {
			continue
		}
		d := &days[i]
		d.Total++
		switch e.Status {
		case domain.StatusWaiting:
			d.Waiting++
		case domain.StatusInProgress:
			d.InProgress++
		case domain.StatusCompleted:
			d.Completed++
		case domain.StatusCancelled:
			d.Cancelled++
		}
		total++
	}

	weekly = domain.WeeklyStats{
		WeeklyData:  days,
		TotalWeekly: total,
	}
	s.store(ctx, key, gen, weekly)
	return &weekly, nil
}

// dayStats counts entries created on date. When hourly is non-nil it must
// have 24 buckets and receives per-hour counts.
func (s *Service) dayStats(entries iter.Seq[domain.QueueEntry], date string, hourly []domain.HourlyCount) domain.QueueStats {
	stats := domain.QueueStats{AverageWaitTime: AverageWaitTime}
	for e := range entries {
		if e.Day(s.loc) != date {
			continue
		}
		stats.Count(e.Status)
		if hourly != nil {
			hourly[e.Hour(s.loc)].Count++
		}
	}
	return stats
}

func (s *Service) today() string {
	return s.clock.Now().In(s.loc).Format(domain.DateLayout)
}

// cached looks key up. On a miss it returns the generation to store the
// recomputed value under; an empty generation means the value is not cached.
func (s *Service) cached(ctx context.Context, key string, dst any) (bool, string) {
	found, gen, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("stats cache read failed", "key", key, "error", err)
		return false, ""
	}
	return found, gen
}

func (s *Service) store(ctx context.Context, key, gen string, value any) {
	if gen == "" {
		return
	}
	if err := s.cache.Set(ctx, key, gen, value); err != nil {
		ctxlog.FromContext(ctx).Warn("stats cache write failed", "key", key, "error", err)
	}
}
