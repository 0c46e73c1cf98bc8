// Package notification sends juror meeting reminders and records feedback
// lifecycle events in response to domain events. Domain modules publish events
// and never talk to the email provider for notifications themselves.
package notification

import (
	"context"
	"fmt"

	"jury_portal_backend/internal/directory"
	"jury_portal_backend/internal/email"
	"jury_portal_backend/internal/events"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Directory resolves the people named in an event.
type Directory interface {
	GetJuror(ctx context.Context, id uuid.UUID) (directory.Juror, error)
	GetStartup(ctx context.Context, id uuid.UUID) (directory.Startup, error)
}

// Subscriber is the part of the event bus the module registers on.
type Subscriber interface {
	Subscribe(eventName string, handler events.Handler)
}

// Module handles notification-related event subscriptions.
type Module struct {
	dir    Directory
	sender email.Sender
	log    *logger.Logger
}

func New(dir Directory, sender email.Sender, log *logger.Logger) *Module {
	return &Module{dir: dir, sender: sender, log: log}
}

// RegisterHandlers subscribes to the events this module reacts to.
func (m *Module) RegisterHandlers(bus Subscriber) {
	bus.Subscribe(events.MeetingReminderDue{}.EventName(), m)

	bus.Subscribe(events.InvitationMatched{}.EventName(), m)
	bus.Subscribe(events.InvitationStatusChanged{}.EventName(), m)
	bus.Subscribe(events.FeedbackApproved{}.EventName(), m)
	bus.Subscribe(events.FeedbackInvalidated{}.EventName(), m)
	bus.Subscribe(events.FeedbackSent{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.MeetingReminderDue:
		return m.handleMeetingReminderDue(ctx, e)
	case events.InvitationMatched:
		m.log.Info("invitation matched",
			"invitationId", e.InvitationID, "assignmentId", e.AssignmentID,
			"startupId", e.StartupID, "jurorId", e.JurorID)
	case events.InvitationStatusChanged:
		m.log.Info("invitation status changed",
			"invitationId", e.InvitationID, "from", e.OldStatus, "to", e.NewStatus, "action", e.Action)
	case events.FeedbackApproved:
		m.log.Info("feedback approved",
			"startupId", e.StartupID, "round", e.RoundName, "kind", e.Kind, "approverId", e.ApproverID)
	case events.FeedbackInvalidated:
		m.log.Warn("approved feedback regenerated after its source changed",
			"startupId", e.StartupID, "round", e.RoundName, "kind", e.Kind)
	case events.FeedbackSent:
		m.log.Info("feedback email sent",
			"startupId", e.StartupID, "round", e.RoundName, "messageId", e.MessageID, "duplicate", e.Duplicate)
	default:
		m.log.Debug("unhandled event type", "event", event.EventName())
	}
	return nil
}

func (m *Module) handleMeetingReminderDue(ctx context.Context, e events.MeetingReminderDue) error {
	juror, err := m.dir.GetJuror(ctx, e.JurorID)
	if err != nil {
		return fmt.Errorf("reminder %s: %w", e.AssignmentID, err)
	}
	to := sanitize.Email(juror.Email)
	if to == "" {
		m.log.Warn("juror has no email address; reminder skipped", "jurorId", e.JurorID, "assignmentId", e.AssignmentID)
		return nil
	}
	startup, err := m.dir.GetStartup(ctx, e.StartupID)
	if err != nil {
		return fmt.Errorf("reminder %s: %w", e.AssignmentID, err)
	}

	subject, html, err := email.RenderMeetingReminder(email.MeetingReminder{
		JurorName:   juror.Name,
		StartupName: startup.Name,
		MeetingAt:   e.MeetingAt,
		MeetingLink: e.MeetingLink,
		Location:    e.Location,
	})
	if err != nil {
		return err
	}

	delivery, err := m.sender.Send(ctx, email.Message{To: to, Subject: subject, HTML: html, Tags: []string{"meeting-reminder"}})
	if err != nil {
		m.log.UpstreamFailure("email", "meeting_reminder", err)
		return err
	}
	m.log.Info("meeting reminder sent", "assignmentId", e.AssignmentID, "provider", delivery.Provider, "messageId", delivery.MessageID)
	return nil
}
