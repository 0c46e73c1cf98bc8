// Package service reconciles calendar invitations with canonical assignments.
package service

import (
	"context"
	"strings"
	"time"

	"jury_portal_backend/internal/assignments/domain"
	"jury_portal_backend/internal/assignments/repository"
	"jury_portal_backend/internal/events"
	invdomain "jury_portal_backend/internal/invitations/domain"
	invrepo "jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultReminderLead = 24 * time.Hour
	maxNotesLength      = 4000

	msgCancelledInvitation = "a cancelled invitation cannot be matched"
	msgMissingParty        = "startupId and jurorId are required"
	msgCompleteViaAction   = "use the complete action to mark an assignment completed"
	msgAlreadyCompleted    = "a completed assignment cannot change status"
	msgUnknownStatus       = "unknown assignment status"
)

// Service is the assignment reconciler.
type Service struct {
	store     repository.Store
	eventBus  events.Bus
	reminders scheduler.ReminderScheduler
	leadTime  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// New creates the reconciler. reminders may be nil when no scheduler is configured.
func New(store repository.Store, eventBus events.Bus, reminders scheduler.ReminderScheduler, leadTime time.Duration, log *logger.Logger) *Service {
	if leadTime <= 0 {
		leadTime = defaultReminderLead
	}
	return &Service{
		store:     store,
		eventBus:  eventBus,
		reminders: reminders,
		leadTime:  leadTime,
		log:       log,
		now:       time.Now,
	}
}

// ApplyMatch links an invitation to the active assignment for its pair,
// creating the assignment if none exists. Repeating the call with the same
// arguments leaves the same final state.
func (s *Service) ApplyMatch(ctx context.Context, invitationID, startupID, jurorID, actorID uuid.UUID) (domain.Assignment, error) {
	if startupID == uuid.Nil || jurorID == uuid.Nil {
		return domain.Assignment{}, apperr.Validation(msgMissingParty)
	}

	var (
		assignment domain.Assignment
		invitation invdomain.CalendarInvitation
		changed    bool
	)
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		inv, err := r.Invitations().GetByIDForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv.Status == invdomain.StatusCancelled {
			return apperr.Validation(msgCancelledInvitation)
		}

		a, err := s.findOrCreate(ctx, r.Assignments(), inv, startupID, jurorID)
		if err != nil {
			return err
		}

		changed = inv.ApplyMatch(a.ID, startupID, jurorID, s.now().UTC(), "")
		if changed {
			if err := r.Invitations().Update(ctx, &inv, 0); err != nil {
				return err
			}
		}
		assignment, invitation = a, inv
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	if changed {
		s.eventBus.Publish(ctx, events.InvitationMatched{
			BaseEvent:    events.NewBaseEvent(),
			InvitationID: invitation.ID,
			AssignmentID: assignment.ID,
			StartupID:    startupID,
			JurorID:      jurorID,
			RoundName:    assignment.RoundName,
			MeetingAt:    assignment.MeetingScheduledDate,
			ActorID:      actorID,
		})
	}
	s.scheduleReminder(ctx, assignment)
	return assignment, nil
}

// findOrCreate returns the active assignment for the invitation's round. A
// lost insert race re-reads the row the other writer created.
func (s *Service) findOrCreate(ctx context.Context, repo repository.Assignments, inv invdomain.CalendarInvitation, startupID, jurorID uuid.UUID) (domain.Assignment, error) {
	existing, err := repo.FindActive(ctx, startupID, jurorID, inv.RoundName)
	if err != nil {
		return domain.Assignment{}, err
	}
	if existing == nil {
		a := seedAssignment(inv, startupID, jurorID)
		inserted, err := repo.InsertIfAbsent(ctx, &a)
		if err != nil {
			return domain.Assignment{}, err
		}
		if inserted {
			return a, nil
		}
		existing, err = repo.FindActive(ctx, startupID, jurorID, inv.RoundName)
		if err != nil {
			return domain.Assignment{}, err
		}
		if existing == nil {
			return domain.Assignment{}, apperr.Conflict("assignment changed concurrently; retry")
		}
	}

	if existing.FillMeetingDetails(inv.StartTime, inv.MeetingLink, inv.Location) {
		if err := repo.Update(ctx, existing, 0); err != nil {
			return domain.Assignment{}, err
		}
	}
	return *existing, nil
}

func seedAssignment(inv invdomain.CalendarInvitation, startupID, jurorID uuid.UUID) domain.Assignment {
	a := domain.Assignment{
		StartupID:            startupID,
		JurorID:              jurorID,
		RoundName:            inv.RoundName,
		Status:               domain.StatusScheduled,
		MeetingScheduledDate: inv.StartTime,
	}
	if inv.MeetingLink != "" {
		link := inv.MeetingLink
		a.MeetingLink = &link
	}
	if inv.Location != "" {
		loc := inv.Location
		a.Location = &loc
	}
	if notes := sanitize.Body(inv.Description); notes != "" {
		a.MeetingNotes = &notes
	}
	return a
}

// scheduleReminder enqueues the juror reminder lead time before the meeting.
// Meetings in the past get none; meetings inside the lead window get one now.
func (s *Service) scheduleReminder(ctx context.Context, a domain.Assignment) {
	if s.reminders == nil || a.MeetingScheduledDate == nil {
		return
	}
	now := s.now()
	meetingAt := *a.MeetingScheduledDate
	if !meetingAt.After(now) {
		return
	}
	runAt := meetingAt.Add(-s.leadTime)
	if runAt.Before(now) {
		runAt = now
	}
	payload := scheduler.MeetingReminderPayload{AssignmentID: a.ID.String(), MeetingAt: meetingAt.UTC()}
	if err := s.reminders.ScheduleMeetingReminder(ctx, payload, runAt); err != nil {
		s.log.UpstreamFailure("scheduler", "schedule_meeting_reminder", err)
	}
}

// MeetingsFilter narrows Meetings.
type MeetingsFilter struct {
	RoundName string
	StartupID *uuid.UUID
	JurorID   *uuid.UUID
}

// Meetings returns the reconciled meetings view.
func (s *Service) Meetings(ctx context.Context, filter MeetingsFilter) (domain.MeetingView, error) {
	assignments, err := s.store.Assignments().List(ctx, repository.ListFilter{
		RoundName: filter.RoundName,
		StartupID: filter.StartupID,
		JurorID:   filter.JurorID,
	})
	if err != nil {
		return domain.MeetingView{}, err
	}
	invitations, err := s.store.Invitations().List(ctx, invrepo.ListFilter{
		RoundName: filter.RoundName,
		StartupID: filter.StartupID,
		JurorID:   filter.JurorID,
	})
	if err != nil {
		return domain.MeetingView{}, err
	}
	return domain.ReconcileForDisplay(assignments, invitations), nil
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	return s.store.Assignments().GetByID(ctx, id)
}

// Complete marks the meeting held. A positive expectedVersion must match.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string, expectedVersion int) (domain.Assignment, error) {
	a, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return domain.Assignment{}, err
	}
	if expectedVersion > 0 && a.Version != expectedVersion {
		return domain.Assignment{}, apperr.Conflict("assignment was modified by someone else; reload and try again")
	}
	if a.Status == domain.StatusCancelled {
		return domain.Assignment{}, apperr.Validation("a cancelled assignment cannot be completed")
	}

	now := s.now().UTC()
	a.Status = domain.StatusCompleted
	if a.MeetingCompletedDate == nil {
		a.MeetingCompletedDate = &now
	}
	if notes = strings.TrimSpace(sanitize.Text(notes)); notes != "" {
		if len(notes) > maxNotesLength {
			notes = strings.ToValidUTF8(notes[:maxNotesLength], "")
		}
		a.MeetingNotes = &notes
	}
	if err := s.store.Assignments().Update(ctx, &a, expectedVersion); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

// UpdateStatus sets any status except completed.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, expectedVersion int) (domain.Assignment, error) {
	if status == domain.StatusCompleted {
		return domain.Assignment{}, apperr.Validation(msgCompleteViaAction)
	}
	if !domain.IsSettable(status) {
		return domain.Assignment{}, apperr.Validation(msgUnknownStatus)
	}

	a, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return domain.Assignment{}, err
	}
	if expectedVersion > 0 && a.Version != expectedVersion {
		return domain.Assignment{}, apperr.Conflict("assignment was modified by someone else; reload and try again")
	}
	if a.Status == domain.StatusCompleted {
		return domain.Assignment{}, apperr.Validation(msgAlreadyCompleted)
	}
	if a.Status == status {
		return a, nil
	}

	a.Status = status
	if err := s.store.Assignments().Update(ctx, &a, expectedVersion); err != nil {
		return domain.Assignment{}, err
	}
	if status == domain.StatusScheduled || status == domain.StatusConfirmed {
		s.scheduleReminder(ctx, a)
	}
	return a, nil
}
