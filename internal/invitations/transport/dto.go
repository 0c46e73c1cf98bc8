package transport

import (
	"time"

	"jury_portal_backend/internal/invitations/domain"

	"github.com/google/uuid"
)

// ListInvitationsRequest is the query string accepted by the list endpoints.
type ListInvitationsRequest struct {
	RoundName string     `form:"round" validate:"omitempty,round"`
	StartupID *uuid.UUID `form:"startupId"`
	JurorID   *uuid.UUID `form:"jurorId"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit" validate:"omitempty,min=1,max=1000"`
	// Context selects the status labels: juror or manager.
	Context string `form:"context" validate:"omitempty,oneof=juror manager"`
}

// TransitionRequest is the body for POST /invitations/:id/transition.
type TransitionRequest struct {
	Action  domain.Action `json:"action" validate:"required,oneof=complete cancel confirm_reschedule reopen"`
	Note    string        `json:"note,omitempty" validate:"max=2000"`
	Version int           `json:"version,omitempty" validate:"min=0"`
}

// LifecycleEntryResponse is one history item.
type LifecycleEntryResponse struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// InvitationResponse is the API shape of an invitation.
type InvitationResponse struct {
	ID                     uuid.UUID                `json:"id"`
	CalendarUID            string                   `json:"calendarUid"`
	StartupID              *uuid.UUID               `json:"startupId,omitempty"`
	JurorID                *uuid.UUID               `json:"jurorId,omitempty"`
	AssignmentID           *uuid.UUID               `json:"assignmentId,omitempty"`
	RoundName              string                   `json:"roundName"`
	Summary                string                   `json:"summary"`
	Description            string                   `json:"description,omitempty"`
	Location               string                   `json:"location,omitempty"`
	MeetingLink            string                   `json:"meetingLink,omitempty"`
	StartTime              *time.Time               `json:"startTime,omitempty"`
	EndTime                *time.Time               `json:"endTime,omitempty"`
	AttendeeEmails         []string                 `json:"attendeeEmails"`
	Status                 string                   `json:"status"`
	StatusLabel            string                   `json:"statusLabel"`
	MatchingStatus         string                   `json:"matchingStatus"`
	Bucket                 string                   `json:"bucket"`
	ManualAssignmentNeeded bool                     `json:"manualAssignmentNeeded"`
	MatchingErrors         []string                 `json:"matchingErrors"`
	SequenceNumber         int                      `json:"sequenceNumber"`
	PreviousEventDate      *time.Time               `json:"previousEventDate,omitempty"`
	LifecycleHistory       []LifecycleEntryResponse `json:"lifecycleHistory"`
	Version                int                      `json:"version"`
	UpdatedAt              time.Time                `json:"updatedAt"`
}

// BucketResponse groups invitations under one bucket.
type BucketResponse struct {
	Bucket      string               `json:"bucket"`
	Count       int                  `json:"count"`
	Invitations []InvitationResponse `json:"invitations"`
}

// BucketCountsResponse is returned by the count-only endpoint.
type BucketCountsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// IngestResponse summarises an ICS upload.
type IngestResponse struct {
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	Rescheduled int                  `json:"rescheduled"`
	Cancelled   int                  `json:"cancelled"`
	Unchanged   int                  `json:"unchanged"`
	Skipped     []string             `json:"skipped"`
	Invitations []InvitationResponse `json:"invitations"`
}

// ToResponse maps a domain invitation for the given display context.
func ToResponse(inv domain.CalendarInvitation, ctx domain.DisplayContext) InvitationResponse {
	history := make([]LifecycleEntryResponse, 0, len(inv.LifecycleHistory))
	for _, h := range inv.LifecycleHistory {
		history = append(history, LifecycleEntryResponse{Action: h.Action, Timestamp: h.Timestamp, Note: h.Note})
	}
	attendees := inv.AttendeeEmails
	if attendees == nil {
		attendees = []string{}
	}
	matchingErrors := inv.MatchingErrors
	if matchingErrors == nil {
		matchingErrors = []string{}
	}
	return InvitationResponse{
		ID:                     inv.ID,
		CalendarUID:            inv.CalendarUID,
		StartupID:              inv.StartupID,
		JurorID:                inv.JurorID,
		AssignmentID:           inv.AssignmentID,
		RoundName:              inv.RoundName,
		Summary:                inv.Summary,
		Description:            inv.Description,
		Location:               inv.Location,
		MeetingLink:            inv.MeetingLink,
		StartTime:              inv.StartTime,
		EndTime:                inv.EndTime,
		AttendeeEmails:         attendees,
		Status:                 string(inv.Status),
		StatusLabel:            domain.DisplayStatus(inv.Status, ctx),
		MatchingStatus:         string(inv.MatchingStatus),
		Bucket:                 string(domain.Classify(inv)),
		ManualAssignmentNeeded: inv.ManualAssignmentNeeded,
		MatchingErrors:         matchingErrors,
		SequenceNumber:         inv.SequenceNumber,
		PreviousEventDate:      inv.PreviousEventDate,
		LifecycleHistory:       history,
		Version:                inv.Version,
		UpdatedAt:              inv.UpdatedAt,
	}
}

// ToResponses maps a slice.
func ToResponses(items []domain.CalendarInvitation, ctx domain.DisplayContext) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(items))
	for _, inv := range items {
		out = append(out, ToResponse(inv, ctx))
	}
	return out
}
