// Package domain holds the calendar invitation model and its pure lifecycle rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the meeting status reported for an invitation.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
	StatusConflict    Status = "conflict"
)

// MatchingStatus tracks how the invitation was linked to a startup and juror.
type MatchingStatus string

const (
	MatchingUnmatched     MatchingStatus = "unmatched"
	MatchingAutoMatched   MatchingStatus = "auto_matched"
	MatchingManualMatched MatchingStatus = "manual_matched"
	MatchingRescheduled   MatchingStatus = "rescheduled"
	MatchingCancelled     MatchingStatus = "cancelled"
	MatchingConflict      MatchingStatus = "conflict"
)

// Lifecycle actions recorded in the history log.
const (
	ActionIngested          = "ingested"
	ActionUpdated           = "updated"
	ActionAutoMatched       = "auto_matched"
	ActionMatched           = "matched"
	ActionRescheduled       = "rescheduled"
	ActionCancelled         = "cancelled"
	ActionCompleted         = "completed"
	ActionConfirmReschedule = "confirm_reschedule"
	ActionReopened          = "reopened"
)

// LifecycleEntry is one append-only history record.
type LifecycleEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// CalendarInvitation is one inbound calendar event.
type CalendarInvitation struct {
	ID                     uuid.UUID
	CalendarUID            string
	StartupID              *uuid.UUID
	JurorID                *uuid.UUID
	AssignmentID           *uuid.UUID
	RoundName              string
	Summary                string
	Description            string
	Location               string
	MeetingLink            string
	StartTime              *time.Time
	EndTime                *time.Time
	AttendeeEmails         []string
	Status                 Status
	MatchingStatus         MatchingStatus
	ManualAssignmentNeeded bool
	MatchingErrors         []string
	SequenceNumber         int
	PreviousEventDate      *time.Time
	LifecycleHistory       []LifecycleEntry
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Normalize enforces that manual assignment is needed exactly when neither
// party has been resolved.
func (inv *CalendarInvitation) Normalize() {
	inv.ManualAssignmentNeeded = inv.StartupID == nil && inv.JurorID == nil
}

// Append adds a history entry.
func (inv *CalendarInvitation) Append(action string, at time.Time, note string) {
	inv.LifecycleHistory = append(inv.LifecycleHistory, LifecycleEntry{Action: action, Timestamp: at, Note: note})
}

// IsMatched reports whether both parties are resolved.
func (inv CalendarInvitation) IsMatched() bool {
	return inv.StartupID != nil && inv.JurorID != nil
}

// ApplyMatch links the invitation to an assignment and its parties. It
// reports whether anything changed; the history entry is only appended on
// change, so repeating the call leaves the same final state.
func (inv *CalendarInvitation) ApplyMatch(assignmentID, startupID, jurorID uuid.UUID, at time.Time, note string) bool {
	changed := !sameID(inv.AssignmentID, assignmentID) ||
		!sameID(inv.StartupID, startupID) ||
		!sameID(inv.JurorID, jurorID) ||
		inv.Status != StatusScheduled ||
		inv.MatchingStatus != MatchingManualMatched ||
		inv.ManualAssignmentNeeded
	if !changed {
		return false
	}
	inv.AssignmentID = &assignmentID
	inv.StartupID = &startupID
	inv.JurorID = &jurorID
	inv.Status = StatusScheduled
	inv.MatchingStatus = MatchingManualMatched
	inv.Append(ActionMatched, at, note)
	inv.Normalize()
	return true
}

func sameID(current *uuid.UUID, want uuid.UUID) bool {
	return current != nil && *current == want
}
