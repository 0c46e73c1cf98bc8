package domain

import (
	"bytes"
	"sort"
	"time"

	invdomain "jury_portal_backend/internal/invitations/domain"

	"github.com/google/uuid"
)

// MeetingKey identifies a meeting by its two parties.
type MeetingKey struct {
	StartupID uuid.UUID
	JurorID   uuid.UUID
}

// Meeting sources.
const (
	SourceAssignment = "assignment"
	SourceInvitation = "invitation"
)

// MeetingEntry is one row of the meetings view.
type MeetingEntry struct {
	Key          MeetingKey
	Source       string
	AssignmentID *uuid.UUID
	InvitationID *uuid.UUID
	RoundName    string
	Status       string
	MeetingAt    *time.Time
	CompletedAt  *time.Time
	MeetingLink  string
	Location     string
}

// MeetingView is the reconciled set of meetings. FromAssignments and
// FromInvitations keep each partition as it was before merging.
type MeetingView struct {
	Meetings        []MeetingEntry
	FromAssignments []MeetingEntry
	FromInvitations []MeetingEntry
	UniqueMeetings  int
}

// ReconcileForDisplay merges assignments and completed invitations keyed by
// (startup, juror). Assignment entries go in first and completed invitation
// entries overwrite them. Invitations missing either party are ignored.
func ReconcileForDisplay(assignments []Assignment, invitations []invdomain.CalendarInvitation) MeetingView {
	merged := make(map[MeetingKey]MeetingEntry, len(assignments)+len(invitations))
	view := MeetingView{
		FromAssignments: make([]MeetingEntry, 0, len(assignments)),
		FromInvitations: make([]MeetingEntry, 0),
	}

	for _, a := range assignments {
		id := a.ID
		e := MeetingEntry{
			Key:          MeetingKey{StartupID: a.StartupID, JurorID: a.JurorID},
			Source:       SourceAssignment,
			AssignmentID: &id,
			RoundName:    a.RoundName,
			Status:       string(a.Status),
			MeetingAt:    a.MeetingScheduledDate,
			CompletedAt:  a.MeetingCompletedDate,
			MeetingLink:  deref(a.MeetingLink),
			Location:     deref(a.Location),
		}
		view.FromAssignments = append(view.FromAssignments, e)
		merged[e.Key] = e
	}

	for _, inv := range invitations {
		if inv.Status != invdomain.StatusCompleted || inv.StartupID == nil || inv.JurorID == nil {
			continue
		}
		id := inv.ID
		e := MeetingEntry{
			Key:          MeetingKey{StartupID: *inv.StartupID, JurorID: *inv.JurorID},
			Source:       SourceInvitation,
			AssignmentID: inv.AssignmentID,
			InvitationID: &id,
			RoundName:    inv.RoundName,
			Status:       string(inv.Status),
			MeetingAt:    inv.StartTime,
			MeetingLink:  inv.MeetingLink,
			Location:     inv.Location,
		}
		view.FromInvitations = append(view.FromInvitations, e)
		merged[e.Key] = e
	}

	view.Meetings = make([]MeetingEntry, 0, len(merged))
	for _, e := range merged {
		view.Meetings = append(view.Meetings, e)
	}
	sortEntries(view.Meetings)
	sortEntries(view.FromAssignments)
	sortEntries(view.FromInvitations)
	view.UniqueMeetings = len(merged)
	return view
}

// sortEntries orders by meeting date (undated last), then key.
func sortEntries(entries []MeetingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.MeetingAt != nil && b.MeetingAt != nil && !a.MeetingAt.Equal(*b.MeetingAt):
			return a.MeetingAt.Before(*b.MeetingAt)
		case a.MeetingAt != nil && b.MeetingAt == nil:
			return true
		case a.MeetingAt == nil && b.MeetingAt != nil:
			return false
		}
		if c := bytes.Compare(a.Key.StartupID[:], b.Key.StartupID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Key.JurorID[:], b.Key.JurorID[:]) < 0
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
