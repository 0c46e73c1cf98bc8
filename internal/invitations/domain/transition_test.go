package domain

import (
	"errors"
	"testing"
	"time"
)

func matchedInvitation() CalendarInvitation {
	start := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)
	return CalendarInvitation{
		StartupID:      ptrID(),
		JurorID:        ptrID(),
		AssignmentID:   ptrID(),
		Status:         StatusScheduled,
		MatchingStatus: MatchingManualMatched,
		StartTime:      &start,
	}
}

func TestApplyTransitionComplete(t *testing.T) {
	inv := matchedInvitation()
	now := time.Now()

	if err := ApplyTransition(&inv, TransitionComplete, now, "went well"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Classify(inv) != BucketCompleted {
		t.Fatalf("expected completed bucket, got %s", Classify(inv))
	}
	last := inv.LifecycleHistory[len(inv.LifecycleHistory)-1]
	if last.Action != ActionCompleted || last.Note != "went well" || !last.Timestamp.Equal(now) {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestApplyTransitionConfirmRescheduleRestoresMatchedState(t *testing.T) {
	inv := matchedInvitation()
	inv.Status = StatusRescheduled
	inv.MatchingStatus = MatchingRescheduled

	if err := ApplyTransition(&inv, TransitionConfirmReschedule, time.Now(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.MatchingStatus != MatchingManualMatched || inv.Status != StatusScheduled {
		t.Fatalf("unexpected state %s/%s", inv.Status, inv.MatchingStatus)
	}
	if Classify(inv) != BucketScheduled {
		t.Fatalf("expected scheduled bucket, got %s", Classify(inv))
	}
}

func TestApplyTransitionRejectsInvalidActions(t *testing.T) {
	inv := matchedInvitation()

	err := ApplyTransition(&inv, TransitionConfirmReschedule, time.Now(), "")
	var notAllowed ErrTransitionNotAllowed
	if !errors.As(err, &notAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
	if len(inv.LifecycleHistory) != 0 {
		t.Fatalf("rejected transition must not append history")
	}

	if err := ApplyTransition(&inv, TransitionCancel, time.Now(), ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := ApplyTransition(&inv, TransitionCancel, time.Now(), ""); !errors.As(err, &notAllowed) {
		t.Fatalf("second cancel should be rejected, got %v", err)
	}
	if err := ApplyTransition(&inv, TransitionReopen, time.Now(), ""); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if Classify(inv) != BucketScheduled {
		t.Fatalf("expected scheduled after reopen, got %s", Classify(inv))
	}
}

func TestApplyMatchIsIdempotent(t *testing.T) {
	inv := CalendarInvitation{Status: StatusScheduled, MatchingStatus: MatchingUnmatched, ManualAssignmentNeeded: true}
	assignment, startup, juror := *ptrID(), *ptrID(), *ptrID()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	if !inv.ApplyMatch(assignment, startup, juror, now, "") {
		t.Fatal("first match must change the invitation")
	}
	if inv.ManualAssignmentNeeded || inv.MatchingStatus != MatchingManualMatched {
		t.Fatalf("unexpected state after match: %+v", inv)
	}
	if Classify(inv) != BucketPending {
		t.Fatalf("undated match is pending, got %s", Classify(inv))
	}
	history := len(inv.LifecycleHistory)

	if inv.ApplyMatch(assignment, startup, juror, now.Add(time.Minute), "") {
		t.Fatal("repeating the same match must be a no-op")
	}
	if len(inv.LifecycleHistory) != history {
		t.Fatalf("history grew on repeat: %d -> %d", history, len(inv.LifecycleHistory))
	}
}
