package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrID() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestClassifyPriority(t *testing.T) {
	start := ptrTime(time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC))

	cases := []struct {
		name string
		inv  CalendarInvitation
		want Bucket
	}{
		{
			name: "manual assignment overrides completed",
			inv:  CalendarInvitation{ManualAssignmentNeeded: true, Status: StatusCompleted, StartTime: start},
			want: BucketNeedsAssignment,
		},
		{
			name: "manual assignment overrides cancelled",
			inv:  CalendarInvitation{ManualAssignmentNeeded: true, Status: StatusCancelled, MatchingStatus: MatchingCancelled},
			want: BucketNeedsAssignment,
		},
		{
			name: "matched and rescheduled surfaces as rescheduled",
			inv:  CalendarInvitation{Status: StatusScheduled, MatchingStatus: MatchingRescheduled, StartTime: start},
			want: BucketRescheduled,
		},
		{
			name: "rescheduled status beats cancelled matching status",
			inv:  CalendarInvitation{Status: StatusRescheduled, MatchingStatus: MatchingCancelled},
			want: BucketRescheduled,
		},
		{
			name: "cancelled via matching status",
			inv:  CalendarInvitation{Status: StatusCompleted, MatchingStatus: MatchingCancelled, StartTime: start},
			want: BucketCancelled,
		},
		{
			name: "cancelled via status",
			inv:  CalendarInvitation{Status: StatusCancelled, MatchingStatus: MatchingManualMatched, StartTime: start},
			want: BucketCancelled,
		},
		{
			name: "completed",
			inv:  CalendarInvitation{Status: StatusCompleted, MatchingStatus: MatchingManualMatched, StartTime: start},
			want: BucketCompleted,
		},
		{
			name: "scheduled with start time",
			inv:  CalendarInvitation{Status: StatusScheduled, MatchingStatus: MatchingAutoMatched, StartTime: start},
			want: BucketScheduled,
		},
		{
			name: "conflict with start time is scheduled",
			inv:  CalendarInvitation{Status: StatusConflict, MatchingStatus: MatchingConflict, StartTime: start},
			want: BucketScheduled,
		},
		{
			name: "no start time is pending",
			inv:  CalendarInvitation{Status: StatusScheduled, MatchingStatus: MatchingAutoMatched},
			want: BucketPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.inv); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	statuses := []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled, StatusConflict, ""}
	matching := []MatchingStatus{MatchingUnmatched, MatchingAutoMatched, MatchingManualMatched, MatchingRescheduled, MatchingCancelled, MatchingConflict, ""}
	starts := []*time.Time{nil, ptrTime(time.Now())}

	valid := make(map[Bucket]bool, len(AllBuckets))
	for _, b := range AllBuckets {
		valid[b] = true
	}

	for _, s := range statuses {
		for _, m := range matching {
			for _, start := range starts {
				for _, manual := range []bool{true, false} {
					inv := CalendarInvitation{Status: s, MatchingStatus: m, StartTime: start, ManualAssignmentNeeded: manual}
					got := Classify(inv)
					if !valid[got] {
						t.Fatalf("Classify(%+v) returned unknown bucket %q", inv, got)
					}
					if manual && got != BucketNeedsAssignment {
						t.Fatalf("manual assignment must win, got %s for %+v", got, inv)
					}
				}
			}
		}
	}
}

func TestDisplayStatusDoesNotAffectClassification(t *testing.T) {
	inv := CalendarInvitation{Status: StatusCompleted, StartTime: ptrTime(time.Now())}

	if got := DisplayStatus(inv.Status, ContextJuror); got != "Confirmed" {
		t.Fatalf("juror label = %q, want Confirmed", got)
	}
	if got := DisplayStatus(inv.Status, ContextManager); got != "Scheduled" {
		t.Fatalf("manager label = %q, want Scheduled", got)
	}
	if got := DisplayStatus(StatusScheduled, ContextManager); got != "Invited" {
		t.Fatalf("scheduled label = %q, want Invited", got)
	}
	if Classify(inv) != BucketCompleted {
		t.Fatalf("classification changed after computing display labels")
	}
}

func TestNormalizeManualAssignmentFlag(t *testing.T) {
	inv := CalendarInvitation{}
	inv.Normalize()
	if !inv.ManualAssignmentNeeded {
		t.Fatalf("expected manual assignment when nothing is resolved")
	}

	inv.StartupID = ptrID()
	inv.Normalize()
	if inv.ManualAssignmentNeeded {
		t.Fatalf("expected no manual assignment once the startup is resolved")
	}

	inv = CalendarInvitation{JurorID: ptrID(), ManualAssignmentNeeded: true}
	inv.Normalize()
	if inv.ManualAssignmentNeeded {
		t.Fatalf("expected no manual assignment once the juror is resolved")
	}
}
