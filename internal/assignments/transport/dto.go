package transport

import (
	"time"

	"jury_portal_backend/internal/assignments/domain"

	"github.com/google/uuid"
)

// ApplyMatchRequest is the body for POST /invitations/:id/match.
type ApplyMatchRequest struct {
	StartupID uuid.UUID `json:"startupId" validate:"required"`
	JurorID   uuid.UUID `json:"jurorId" validate:"required"`
}

// CompleteRequest is the body for POST /assignments/:id/complete.
type CompleteRequest struct {
	Notes   string `json:"notes,omitempty" validate:"max=4000"`
	Version int    `json:"version,omitempty" validate:"min=0"`
}

// UpdateStatusRequest is the body for PATCH /assignments/:id/status.
type UpdateStatusRequest struct {
	Status  domain.Status `json:"status" validate:"required,oneof=assigned scheduled confirmed cancelled"`
	Version int           `json:"version,omitempty" validate:"min=0"`
}

// MeetingsRequest is the query string of GET /meetings.
type MeetingsRequest struct {
	RoundName string     `form:"round" validate:"omitempty,round"`
	StartupID *uuid.UUID `form:"startupId"`
	JurorID   *uuid.UUID `form:"jurorId"`
}

type AssignmentResponse struct {
	ID                   uuid.UUID  `json:"id"`
	StartupID            uuid.UUID  `json:"startupId"`
	JurorID              uuid.UUID  `json:"jurorId"`
	RoundName            string     `json:"roundName"`
	Status               string     `json:"status"`
	MeetingScheduledDate *time.Time `json:"meetingScheduledDate,omitempty"`
	MeetingCompletedDate *time.Time `json:"meetingCompletedDate,omitempty"`
	MeetingNotes         *string    `json:"meetingNotes,omitempty"`
	MeetingLink          *string    `json:"meetingLink,omitempty"`
	Location             *string    `json:"location,omitempty"`
	Version              int        `json:"version"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type MeetingResponse struct {
	StartupID    uuid.UUID  `json:"startupId"`
	JurorID      uuid.UUID  `json:"jurorId"`
	Source       string     `json:"source"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
	InvitationID *uuid.UUID `json:"invitationId,omitempty"`
	RoundName    string     `json:"roundName"`
	Status       string     `json:"status"`
	MeetingAt    *time.Time `json:"meetingAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	MeetingLink  string     `json:"meetingLink,omitempty"`
	Location     string     `json:"location,omitempty"`
}

type MeetingViewResponse struct {
	Meetings        []MeetingResponse `json:"meetings"`
	FromAssignments []MeetingResponse `json:"fromAssignments"`
	FromInvitations []MeetingResponse `json:"fromInvitations"`
	UniqueMeetings  int               `json:"uniqueMeetings"`
}

func ToAssignmentResponse(a domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                   a.ID,
		StartupID:            a.StartupID,
		JurorID:              a.JurorID,
		RoundName:            a.RoundName,
		Status:               string(a.Status),
		MeetingScheduledDate: a.MeetingScheduledDate,
		MeetingCompletedDate: a.MeetingCompletedDate,
		MeetingNotes:         a.MeetingNotes,
		MeetingLink:          a.MeetingLink,
		Location:             a.Location,
		Version:              a.Version,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func ToMeetingViewResponse(v domain.MeetingView) MeetingViewResponse {
	return MeetingViewResponse{
		Meetings:        toMeetings(v.Meetings),
		FromAssignments: toMeetings(v.FromAssignments),
		FromInvitations: toMeetings(v.FromInvitations),
		UniqueMeetings:  v.UniqueMeetings,
	}
}

func toMeetings(entries []domain.MeetingEntry) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, MeetingResponse{
			StartupID:    e.Key.StartupID,
			JurorID:      e.Key.JurorID,
			Source:       e.Source,
			AssignmentID: e.AssignmentID,
			InvitationID: e.InvitationID,
			RoundName:    e.RoundName,
			Status:       e.Status,
			MeetingAt:    e.MeetingAt,
			CompletedAt:  e.CompletedAt,
			MeetingLink:  e.MeetingLink,
			Location:     e.Location,
		})
	}
	return out
}
