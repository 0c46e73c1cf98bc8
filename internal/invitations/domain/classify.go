package domain

// Bucket is the lifecycle bucket an invitation is listed under.
type Bucket string

const (
	BucketNeedsAssignment Bucket = "needs_assignment"
	BucketPending         Bucket = "pending"
	BucketScheduled       Bucket = "scheduled"
	BucketRescheduled     Bucket = "rescheduled"
	BucketCancelled       Bucket = "cancelled"
	BucketCompleted       Bucket = "completed"
)

// AllBuckets lists buckets in display order.
var AllBuckets = []Bucket{
	BucketNeedsAssignment,
	BucketRescheduled,
	BucketScheduled,
	BucketPending,
	BucketCompleted,
	BucketCancelled,
}

// Classify places an invitation in exactly one bucket. Rules are checked in
// priority order; a matched invitation that was moved stays Rescheduled until
// someone confirms the new date.
func Classify(inv CalendarInvitation) Bucket {
	switch {
	case inv.ManualAssignmentNeeded:
		return BucketNeedsAssignment
	case inv.MatchingStatus == MatchingRescheduled || inv.Status == StatusRescheduled:
		return BucketRescheduled
	case inv.MatchingStatus == MatchingCancelled || inv.Status == StatusCancelled:
		return BucketCancelled
	case inv.Status == StatusCompleted:
		return BucketCompleted
	case inv.StartTime != nil:
		return BucketScheduled
	default:
		return BucketPending
	}
}

// DisplayContext selects the audience of a status label.
type DisplayContext string

const (
	ContextJuror   DisplayContext = "juror"
	ContextManager DisplayContext = "manager"
)

// DisplayStatus returns the user-facing label for a status. It is never used
// by Classify.
func DisplayStatus(status Status, ctx DisplayContext) string {
	switch status {
	case StatusScheduled:
		return "Invited"
	case StatusCompleted:
		if ctx == ContextJuror {
			return "Confirmed"
		}
		return "Scheduled"
	case StatusCancelled:
		return "Cancelled"
	case StatusRescheduled:
		return "Rescheduled"
	case StatusConflict:
		return "Conflict"
	default:
		return string(status)
	}
}
