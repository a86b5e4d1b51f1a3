package domain

// QueueStats aggregates entry counts by status for one calendar day.
type QueueStats struct {
	TotalToday      int `json:"totalToday"`
	Waiting         int `json:"waiting"`
	InProgress      int `json:"inProgress"`
	Completed       int `json:"completed"`
	Cancelled       int `json:"cancelled"`
	AverageWaitTime int `json:"averageWaitTime"`
}

// Count adds one entry with the given status to the totals.
func (s *QueueStats) Count(status Status) {
	s.TotalToday++
	switch status {
	case StatusWaiting:
		s.Waiting++
	case StatusInProgress:
		s.InProgress++
	case StatusCompleted:
		s.Completed++
	case StatusCancelled:
		s.Cancelled++
	}
}

// HourlyCount is the number of entries created within one hour of a day.
type HourlyCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DailyStats describes a single calendar day.
type DailyStats struct {
	Date               string        `json:"date"`
	Stats              QueueStats    `json:"stats"`
	HourlyDistribution []HourlyCount `json:"hourlyDistribution"`
}

// DaySummary is one day of a weekly rollup.
type DaySummary struct {
	Date       string `json:"date"`
	Total      int    `json:"total"`
	Waiting    int    `json:"waiting"`
	InProgress int    `json:"inProgress"`
	Completed  int    `json:"completed"`
	Cancelled  int    `json:"cancelled"`
}

// WeeklyStats is the rollup of the last seven calendar days, oldest first.
type WeeklyStats struct {
	WeeklyData  []DaySummary `json:"weeklyData"`
	TotalWeekly int          `json:"totalWeekly"`
}
