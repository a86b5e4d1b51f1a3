package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriority_Rank(t *testing.T) {
	tests := []struct {
		priority Priority
		rank     int
	}{
		{PriorityUrgent, 4},
		{PriorityHigh, 3},
		{PriorityNormal, 2},
		{PriorityLow, 1},
		{Priority("urgent"), 0},
		{Priority(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			assert.Equal(t, tt.rank, tt.priority.Rank())
			assert.Equal(t, tt.rank > 0, tt.priority.IsValid())
		})
	}
}

func TestPriorities_OrderedByRank(t *testing.T) {
	for i := 1; i < len(Priorities); i++ {
		assert.Greater(t, Priorities[i-1].Rank(), Priorities[i].Rank())
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("DONE").IsValid())
	assert.False(t, Status("waiting").IsValid())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestTicketID(t *testing.T) {
	created := time.Date(2024, 1, 20, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "PQ-20240120-001", TicketID(created, 1))
	assert.Equal(t, "PQ-20240120-042", TicketID(created, 42))
	assert.Equal(t, "PQ-20240120-1234", TicketID(created, 1234))
}

func TestQueueEntry_DayAndHour(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	entry := QueueEntry{CreatedAt: time.Date(2024, 1, 20, 20, 15, 0, 0, time.UTC)}

	assert.Equal(t, "2024-01-20", entry.Day(time.UTC))
	assert.Equal(t, 20, entry.Hour(time.UTC))

	// 20:15 UTC is 03:15 the next day in UTC+7.
	assert.Equal(t, "2024-01-21", entry.Day(jakarta))
	assert.Equal(t, 3, entry.Hour(jakarta))
}

func TestQueueStats_Count(t *testing.T) {
	var s QueueStats
	s.Count(StatusWaiting)
	s.Count(StatusWaiting)
	s.Count(StatusInProgress)
	s.Count(StatusCompleted)
	s.Count(StatusCancelled)

	assert.Equal(t, QueueStats{
		TotalToday: 5,
		Waiting:    2,
		InProgress: 1,
		Completed:  1,
		Cancelled:  1,
	}, s)
}
