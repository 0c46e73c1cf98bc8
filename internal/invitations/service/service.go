// Package service implements calendar invitation ingest, bucketed listing and
// user driven status transitions.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"jury_portal_backend/internal/events"
	"jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the persistence the service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.CalendarInvitation, error)
	GetByCalendarUID(ctx context.Context, uid string) (*domain.CalendarInvitation, error)
	Upsert(ctx context.Context, inv *domain.CalendarInvitation) error
	Update(ctx context.Context, inv *domain.CalendarInvitation, expectedVersion int) error
	List(ctx context.Context, filter repository.ListFilter) ([]domain.CalendarInvitation, error)
	CountByBucket(ctx context.Context, roundName string) (map[domain.Bucket]int, error)
}

// ExactMatcher resolves attendee addresses to a startup and a juror by exact
// email equality. A party that is missing or ambiguous is returned as nil.
type ExactMatcher interface {
	ExactMatch(ctx context.Context, attendees []string) (startupID, jurorID *uuid.UUID, err error)
}

// Service provides invitation operations.
type Service struct {
	repo         Repository
	matcher      ExactMatcher
	eventBus     events.Bus
	log          *logger.Logger
	defaultRound string
	now          func() time.Time
}

// New creates the invitations service. matcher may be nil, in which case
// ingest never auto-matches.
func New(repo Repository, matcher ExactMatcher, eventBus events.Bus, log *logger.Logger, defaultRound string) *Service {
	return &Service{
		repo:         repo,
		matcher:      matcher,
		eventBus:     eventBus,
		log:          log,
		defaultRound: defaultRound,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetExactMatcher sets the matcher used during ingest.
func (s *Service) SetExactMatcher(matcher ExactMatcher) {
	s.matcher = matcher
}

// IngestResult summarises one ICS upload.
type IngestResult struct {
	Created     int
	Updated     int
	Rescheduled int
	Cancelled   int
	Unchanged   int
	Skipped     []string
	Invitations []domain.CalendarInvitation
}

// Ingest parses an ICS payload and upserts every event on its calendar UID.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (IngestResult, error) {
	parsed, skipped, err := ParseICS(r)
	if err != nil {
		return IngestResult{}, apperr.BadRequest("invalid calendar payload").WithDetails(err.Error())
	}

	result := IngestResult{Skipped: skipped}
	for _, ev := range parsed {
		inv, outcome, err := s.ingestEvent(ctx, ev)
		if err != nil {
			return result, err
		}
		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeRescheduled:
			result.Rescheduled++
		case outcomeCancelled:
			result.Cancelled++
		case outcomeUnchanged:
			result.Unchanged++
			continue
		default:
			result.Updated++
		}
		result.Invitations = append(result.Invitations, inv)
	}

	s.log.Info("calendar ingest finished",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("rescheduled", result.Rescheduled),
		slog.Int("cancelled", result.Cancelled),
		slog.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

type ingestOutcome int

const (
	outcomeCreated ingestOutcome = iota
	outcomeUpdated
	outcomeRescheduled
	outcomeCancelled
	outcomeUnchanged
)

func (s *Service) ingestEvent(ctx context.Context, ev ParsedEvent) (domain.CalendarInvitation, ingestOutcome, error) {
	now := s.now()

	existing, err := s.repo.GetByCalendarUID(ctx, ev.UID)
	if err != nil {
		return domain.CalendarInvitation{}, 0, err
	}

	if existing == nil {
		inv := domain.CalendarInvitation{
			CalendarUID:    ev.UID,
			RoundName:      roundFor(ev.Summary, s.defaultRound),
			Status:         domain.StatusScheduled,
			MatchingStatus: domain.MatchingUnmatched,
			SequenceNumber: ev.Sequence,
		}
		applyEventFields(&inv, ev)
		inv.Append(domain.ActionIngested, now, "")
		s.autoMatch(ctx, &inv, now)
		if ev.Cancelled {
			inv.Status = domain.StatusCancelled
			inv.MatchingStatus = domain.MatchingCancelled
			inv.Append(domain.ActionCancelled, now, "cancelled in calendar")
		}
		inv.Normalize()
		if err := s.repo.Upsert(ctx, &inv); err != nil {
			return inv, 0, err
		}
		return inv, outcomeCreated, nil
	}

	inv := *existing
	// Out of order delivery of an older revision.
	if ev.Sequence < inv.SequenceNumber {
		return inv, outcomeUnchanged, nil
	}

	oldStatus := inv.Status
	outcome := outcomeUpdated
	oldStart := inv.StartTime

	applyEventFields(&inv, ev)

	switch {
	case ev.Cancelled && inv.Status != domain.StatusCancelled:
		inv.Status = domain.StatusCancelled
		inv.MatchingStatus = domain.MatchingCancelled
		inv.Append(domain.ActionCancelled, now, "cancelled in calendar")
		outcome = outcomeCancelled
	case !ev.Cancelled && ev.Sequence > inv.SequenceNumber && startMoved(oldStart, ev.Start):
		inv.PreviousEventDate = oldStart
		inv.Status = domain.StatusRescheduled
		inv.MatchingStatus = domain.MatchingRescheduled
		inv.Append(domain.ActionRescheduled, now, rescheduleNote(oldStart, ev.Start))
		outcome = outcomeRescheduled
	case ev.Sequence > inv.SequenceNumber:
		inv.Append(domain.ActionUpdated, now, fmt.Sprintf("sequence %d", ev.Sequence))
	}
	inv.SequenceNumber = ev.Sequence

	if inv.StartupID == nil || inv.JurorID == nil {
		s.autoMatch(ctx, &inv, now)
	}
	inv.Normalize()

	if err := s.repo.Upsert(ctx, &inv); err != nil {
		return inv, 0, err
	}
	if inv.Status != oldStatus {
		s.eventBus.Publish(ctx, events.InvitationStatusChanged{
			BaseEvent:    events.NewBaseEventAt(now),
			InvitationID: inv.ID,
			OldStatus:    string(oldStatus),
			NewStatus:    string(inv.Status),
			Action:       "ingest",
		})
	}
	return inv, outcome, nil
}

func applyEventFields(inv *domain.CalendarInvitation, ev ParsedEvent) {
	inv.Summary = ev.Summary
	inv.Description = sanitize.Text(ev.Description)
	inv.Location = ev.Location
	inv.MeetingLink = ev.MeetingLink
	inv.StartTime = ev.Start
	inv.EndTime = ev.End
	inv.AttendeeEmails = ev.Attendees
}

// autoMatch fills in whichever parties resolve exactly. Matching failures are
// recorded on the invitation instead of failing the ingest.
func (s *Service) autoMatch(ctx context.Context, inv *domain.CalendarInvitation, now time.Time) {
	if s.matcher == nil || len(inv.AttendeeEmails) == 0 || inv.AssignmentID != nil {
		return
	}
	startupID, jurorID, err := s.matcher.ExactMatch(ctx, inv.AttendeeEmails)
	if err != nil {
		s.log.Warn("exact match failed", slog.String("calendarUid", inv.CalendarUID), slog.String("error", err.Error()))
		inv.MatchingErrors = appendUnique(inv.MatchingErrors, "exact match unavailable: "+err.Error())
		return
	}
	if inv.StartupID == nil && startupID != nil {
		inv.StartupID = startupID
	}
	if inv.JurorID == nil && jurorID != nil {
		inv.JurorID = jurorID
	}
	switch {
	case inv.IsMatched():
		if inv.MatchingStatus == domain.MatchingUnmatched {
			inv.MatchingStatus = domain.MatchingAutoMatched
			inv.Append(domain.ActionAutoMatched, now, "exact attendee email")
		}
	case inv.StartupID == nil && inv.JurorID == nil:
		inv.MatchingErrors = appendUnique(inv.MatchingErrors, "no attendee matches a startup or juror")
	case inv.StartupID == nil:
		inv.MatchingErrors = appendUnique(inv.MatchingErrors, "no attendee matches a startup")
	default:
		inv.MatchingErrors = appendUnique(inv.MatchingErrors, "no attendee matches a juror")
	}
}

func startMoved(old, updated *time.Time) bool {
	if old == nil || updated == nil {
		return false
	}
	return !old.Equal(*updated)
}

func rescheduleNote(old, updated *time.Time) string {
	if old == nil || updated == nil {
		return ""
	}
	return fmt.Sprintf("moved from %s to %s", old.Format(time.RFC3339), updated.Format(time.RFC3339))
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// Get returns one invitation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.CalendarInvitation, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns invitations matching filter.
func (s *Service) List(ctx context.Context, filter repository.ListFilter) ([]domain.CalendarInvitation, error) {
	return s.repo.List(ctx, filter)
}

// BucketGroup is one bucket with its invitations.
type BucketGroup struct {
	Bucket      domain.Bucket
	Count       int
	Invitations []domain.CalendarInvitation
}

// ListBuckets classifies every listed invitation and groups them in display
// order. Every bucket is present, empty ones included.
func (s *Service) ListBuckets(ctx context.Context, filter repository.ListFilter) ([]BucketGroup, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return GroupByBucket(items), nil
}

// GroupByBucket is the pure grouping step of ListBuckets.
func GroupByBucket(items []domain.CalendarInvitation) []BucketGroup {
	index := make(map[domain.Bucket]int, len(domain.AllBuckets))
	groups := make([]BucketGroup, len(domain.AllBuckets))
	for i, b := range domain.AllBuckets {
		index[b] = i
		groups[i] = BucketGroup{Bucket: b, Invitations: []domain.CalendarInvitation{}}
	}
	for _, inv := range items {
		g := &groups[index[domain.Classify(inv)]]
		g.Invitations = append(g.Invitations, inv)
		g.Count++
	}
	return groups
}

// BucketCounts returns per-bucket counts without loading rows.
func (s *Service) BucketCounts(ctx context.Context, roundName string) (map[domain.Bucket]int, error) {
	return s.repo.CountByBucket(ctx, roundName)
}

// Transition applies a user status action. expectedVersion of zero skips the
// optimistic concurrency check.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action domain.Action, note string, expectedVersion int) (domain.CalendarInvitation, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return inv, err
	}
	if expectedVersion > 0 && inv.Version != expectedVersion {
		return inv, apperr.Conflict("invitation was modified by someone else; reload and try again")
	}

	oldStatus := inv.Status
	now := s.now()
	if err := domain.ApplyTransition(&inv, action, now, sanitize.Text(note)); err != nil {
		var notAllowed domain.ErrTransitionNotAllowed
		if errors.As(err, &notAllowed) {
			return inv, apperr.Validation(err.Error())
		}
		return inv, apperr.BadRequest(err.Error())
	}

	if err := s.repo.Update(ctx, &inv, inv.Version); err != nil {
		return inv, err
	}

	s.eventBus.Publish(ctx, events.InvitationStatusChanged{
		BaseEvent:    events.NewBaseEventAt(now),
		InvitationID: inv.ID,
		OldStatus:    string(oldStatus),
		NewStatus:    string(inv.Status),
		Action:       string(action),
	})
	return inv, nil
}
