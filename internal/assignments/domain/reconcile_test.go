package domain

import (
	"testing"
	"time"

	invdomain "jury_portal_backend/internal/invitations/domain"

	"github.com/google/uuid"
)

func TestReconcileForDisplayDeduplicatesByPair(t *testing.T) {
	s1, s2, j1 := uuid.New(), uuid.New(), uuid.New()
	early := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	assignments := []Assignment{
		{ID: uuid.New(), StartupID: s1, JurorID: j1, RoundName: "screening", Status: StatusScheduled, MeetingScheduledDate: &late},
		{ID: uuid.New(), StartupID: s2, JurorID: j1, RoundName: "screening", Status: StatusScheduled},
	}
	invitations := []invdomain.CalendarInvitation{
		{ID: uuid.New(), StartupID: &s1, JurorID: &j1, Status: invdomain.StatusCompleted, StartTime: &early},
		{ID: uuid.New(), StartupID: &s2, JurorID: &j1, Status: invdomain.StatusScheduled, StartTime: &early},
		{ID: uuid.New(), StartupID: &s2, Status: invdomain.StatusCompleted, StartTime: &early},
	}

	view := ReconcileForDisplay(assignments, invitations)

	if view.UniqueMeetings != 2 || len(view.Meetings) != 2 {
		t.Fatalf("expected 2 unique meetings, got %d (%d rows)", view.UniqueMeetings, len(view.Meetings))
	}
	if len(view.FromAssignments) != 2 || len(view.FromInvitations) != 1 {
		t.Fatalf("unexpected partitions: %d assignments, %d invitations", len(view.FromAssignments), len(view.FromInvitations))
	}

	first := view.Meetings[0]
	if first.Key.StartupID != s1 || first.Source != SourceInvitation {
		t.Fatalf("completed invitation must overwrite the assignment entry, got %+v", first)
	}
	if first.MeetingAt == nil || !first.MeetingAt.Equal(early) {
		t.Fatalf("expected invitation date, got %v", first.MeetingAt)
	}
	if view.Meetings[1].MeetingAt != nil {
		t.Fatal("undated meetings must sort last")
	}
}

func TestReconcileForDisplayIsOrderIndependent(t *testing.T) {
	j := uuid.New()
	var assignments []Assignment
	for i := 0; i < 5; i++ {
		assignments = append(assignments, Assignment{ID: uuid.New(), StartupID: uuid.New(), JurorID: j, Status: StatusAssigned})
	}
	reversed := make([]Assignment, len(assignments))
	for i := range assignments {
		reversed[len(assignments)-1-i] = assignments[i]
	}

	a := ReconcileForDisplay(assignments, nil)
	b := ReconcileForDisplay(reversed, nil)
	for i := range a.Meetings {
		if a.Meetings[i].Key != b.Meetings[i].Key {
			t.Fatalf("order differs at %d", i)
		}
	}
}

func TestFillMeetingDetailsOnlyFillsGaps(t *testing.T) {
	at := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	a := Assignment{Status: StatusAssigned}

	if !a.FillMeetingDetails(&at, "https://zoom.us/j/1", "") {
		t.Fatal("expected first fill to change the assignment")
	}
	if a.Status != StatusScheduled {
		t.Fatalf("assigned meeting with a date becomes scheduled, got %s", a.Status)
	}
	other := at.Add(time.Hour)
	if a.FillMeetingDetails(&other, "https://zoom.us/j/2", "") {
		t.Fatal("existing details must not be overwritten")
	}
	if !a.MeetingScheduledDate.Equal(at) || *a.MeetingLink != "https://zoom.us/j/1" {
		t.Fatalf("details changed: %+v", a)
	}
}
