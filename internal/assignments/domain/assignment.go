// Package domain holds the canonical assignment model and the read-side
// reconciliation of assignments with completed calendar invitations.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of an assignment.
type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Assignment is the canonical record that a juror evaluates a startup in a round.
type Assignment struct {
	ID                   uuid.UUID
	StartupID            uuid.UUID
	JurorID              uuid.UUID
	RoundName            string
	Status               Status
	MeetingScheduledDate *time.Time
	MeetingCompletedDate *time.Time
	MeetingNotes         *string
	MeetingLink          *string
	Location             *string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsActive reports whether the assignment occupies its (startup, juror, round) slot.
func (a Assignment) IsActive() bool {
	return a.Status != StatusCancelled
}

// FillMeetingDetails copies meeting details the assignment does not have yet.
// It reports whether anything changed.
func (a *Assignment) FillMeetingDetails(at *time.Time, link, location string) bool {
	changed := false
	if a.MeetingScheduledDate == nil && at != nil {
		t := *at
		a.MeetingScheduledDate = &t
		if a.Status == StatusAssigned {
			a.Status = StatusScheduled
		}
		changed = true
	}
	if a.MeetingLink == nil && link != "" {
		a.MeetingLink = &link
		changed = true
	}
	if a.Location == nil && location != "" {
		a.Location = &location
		changed = true
	}
	return changed
}

// SettableStatuses are the statuses UpdateStatus accepts; completion has its
// own action because it stamps the completion date.
var SettableStatuses = []Status{StatusAssigned, StatusScheduled, StatusConfirmed, StatusCancelled}

// IsSettable reports whether s may be set through UpdateStatus.
func IsSettable(s Status) bool {
	for _, v := range SettableStatuses {
		if v == s {
			return true
		}
	}
	return false
}
