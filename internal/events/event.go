// Package events defines the jury portal's domain events. The bus itself lives
// in platform/events and is aliased here so modules import a single package.
package events

import (
	"time"

	"jury_portal_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Invitation / Meeting Events
// =============================================================================

// InvitationMatched is published after an invitation was linked to an assignment.
type InvitationMatched struct {
	BaseEvent
	InvitationID uuid.UUID  `json:"invitationId"`
	AssignmentID uuid.UUID  `json:"assignmentId"`
	StartupID    uuid.UUID  `json:"startupId"`
	JurorID      uuid.UUID  `json:"jurorId"`
	RoundName    string     `json:"roundName"`
	MeetingAt    *time.Time `json:"meetingAt,omitempty"`
	ActorID      uuid.UUID  `json:"actorId"`
}

func (e InvitationMatched) EventName() string { return "invitations.matched" }

// InvitationStatusChanged is published when a user action or an ingest moves an
// invitation to a new status.
type InvitationStatusChanged struct {
	BaseEvent
	InvitationID uuid.UUID `json:"invitationId"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
	Action       string    `json:"action"`
}

func (e InvitationStatusChanged) EventName() string { return "invitations.status_changed" }

// MeetingReminderDue is published by the scheduler worker when a juror reminder fires.
type MeetingReminderDue struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	JurorID      uuid.UUID `json:"jurorId"`
	StartupID    uuid.UUID `json:"startupId"`
	MeetingAt    time.Time `json:"meetingAt"`
	MeetingLink  string    `json:"meetingLink,omitempty"`
	Location     string    `json:"location,omitempty"`
}

func (e MeetingReminderDue) EventName() string { return "meetings.reminder_due" }

// =============================================================================
// Feedback Events
// =============================================================================

// FeedbackApproved is published when a feedback record becomes approved.
type FeedbackApproved struct {
	BaseEvent
	StartupID  uuid.UUID `json:"startupId"`
	RoundName  string    `json:"roundName"`
	Kind       string    `json:"kind"`
	ApproverID uuid.UUID `json:"approverId"`
}

func (e FeedbackApproved) EventName() string { return "feedback.approved" }

// FeedbackInvalidated is published when an approved record was regenerated
// because the content it depends on changed.
type FeedbackInvalidated struct {
	BaseEvent
	StartupID uuid.UUID `json:"startupId"`
	RoundName string    `json:"roundName"`
	Kind      string    `json:"kind"`
}

func (e FeedbackInvalidated) EventName() string { return "feedback.invalidated" }

// FeedbackSent is published after the provider accepted a feedback email.
type FeedbackSent struct {
	BaseEvent
	StartupID  uuid.UUID `json:"startupId"`
	RoundName  string    `json:"roundName"`
	ToAddress  string    `json:"toAddress"`
	MessageID  string    `json:"messageId,omitempty"`
	ArchiveKey string    `json:"archiveKey,omitempty"`
	Duplicate  bool      `json:"duplicate"`
}

func (e FeedbackSent) EventName() string { return "feedback.sent" }
