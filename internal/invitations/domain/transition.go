package domain

import (
	"fmt"
	"time"
)

// Action is a user-initiated status transition.
type Action string

const (
	TransitionComplete          Action = "complete"
	TransitionCancel            Action = "cancel"
	TransitionConfirmReschedule Action = "confirm_reschedule"
	TransitionReopen            Action = "reopen"
)

// ErrTransitionNotAllowed is returned when an action does not apply to the
// invitation's current bucket.
type ErrTransitionNotAllowed struct {
	Action Action
	Bucket Bucket
}

func (e ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("cannot %s an invitation in %s", e.Action, e.Bucket)
}

// ApplyTransition mutates inv for action and appends the history entry.
// Cancelling is the only way to remove an invitation from active lists.
func ApplyTransition(inv *CalendarInvitation, action Action, at time.Time, note string) error {
	bucket := Classify(*inv)
	switch action {
	case TransitionComplete:
		if bucket != BucketScheduled && bucket != BucketPending {
			return ErrTransitionNotAllowed{Action: action, Bucket: bucket}
		}
		inv.Status = StatusCompleted
		inv.Append(ActionCompleted, at, note)
	case TransitionCancel:
		if bucket == BucketCancelled || inv.Status == StatusCancelled {
			return ErrTransitionNotAllowed{Action: action, Bucket: bucket}
		}
		inv.Status = StatusCancelled
		inv.MatchingStatus = MatchingCancelled
		inv.Append(ActionCancelled, at, note)
	case TransitionConfirmReschedule:
		if bucket != BucketRescheduled {
			return ErrTransitionNotAllowed{Action: action, Bucket: bucket}
		}
		inv.Status = StatusScheduled
		inv.MatchingStatus = matchedStatusFor(*inv)
		inv.Append(ActionConfirmReschedule, at, note)
	case TransitionReopen:
		if bucket != BucketCancelled && bucket != BucketCompleted {
			return ErrTransitionNotAllowed{Action: action, Bucket: bucket}
		}
		inv.Status = StatusScheduled
		inv.MatchingStatus = matchedStatusFor(*inv)
		inv.Append(ActionReopened, at, note)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	inv.Normalize()
	return nil
}

func matchedStatusFor(inv CalendarInvitation) MatchingStatus {
	switch {
	case inv.AssignmentID != nil:
		return MatchingManualMatched
	case inv.IsMatched():
		return MatchingAutoMatched
	default:
		return MatchingUnmatched
	}
}
