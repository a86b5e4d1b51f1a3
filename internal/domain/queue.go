// Package domain contains the patient queue data model.
package domain

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a queue entry.
type Status string

// Queue entry statuses.
const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled}

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle of an entry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority represents the service priority of a queue entry.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists every priority from highest to lowest rank.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

// Rank returns the ordering weight used for next-to-serve selection.
// Higher ranks are served first. Unknown priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// IsValid checks if the priority is one of the known values.
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// QueueEntry is one patient's registration ticket and its lifecycle state.
//
// JSON names follow the wire format the registration desk clients already use.
type QueueEntry struct {
	ID                string    `json:"id"`
	QueueNumber       int64     `json:"queueNumber"`
	PatientID         string    `json:"nik"`
	PatientName       string    `json:"nama"`
	BirthPlace        string    `json:"tempat_lahir,omitempty"`
	BirthDate         string    `json:"tgl_lahir,omitempty"`
	Gender            string    `json:"jenis_kelamin,omitempty"`
	Address           string    `json:"alamat,omitempty"`
	Religion          string    `json:"agama,omitempty"`
	Status            Status    `json:"status"`
	Priority          Priority  `json:"priority"`
	CreatedAt         time.Time `json:"createdAt"`
	EstimatedWaitTime int       `json:"estimatedWaitTime"`
	Note              string    `json:"keterangan,omitempty"`
}

// DateLayout is the calendar-day format used for IDs, filters and statistics.
const DateLayout = "2006-01-02"

// TicketID formats the entry ID for a ticket created at the given time.
// The time must already be in the service location.
func TicketID(createdAt time.Time, queueNumber int64) string {
	return fmt.Sprintf("PQ-%s-%03d", createdAt.Format("20060102"), queueNumber)
}

// Day returns the calendar day of the entry in loc, formatted as YYYY-MM-DD.
func (e *QueueEntry) Day(loc *time.Location) string {
	return e.CreatedAt.In(loc).Format(DateLayout)
}

// Hour returns the hour of day (0-23) the entry was created at in loc.
func (e *QueueEntry) Hour(loc *time.Location) int {
	return e.CreatedAt.In(loc).Hour()
}
