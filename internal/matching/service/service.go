// Package service resolves calendar invitations to startup and juror
// candidates.
package service

import (
	"context"

	"jury_portal_backend/internal/directory"
	invdomain "jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Directory is the read-only directory the service matches against.
type Directory interface {
	ListStartups(ctx context.Context) ([]directory.Startup, error)
	ListJurors(ctx context.Context) ([]directory.Juror, error)
	FindStartupsByEmails(ctx context.Context, emails []string) ([]directory.Startup, error)
	FindJurorsByEmails(ctx context.Context, emails []string) ([]directory.Juror, error)
}

// InvitationReader loads the invitation being matched.
type InvitationReader interface {
	Get(ctx context.Context, id uuid.UUID) (invdomain.CalendarInvitation, error)
}

// Service provides matching operations.
type Service struct {
	resolver    *Resolver
	dir         Directory
	invitations InvitationReader
	log         *logger.Logger
}

// New creates the matching service.
func New(resolver *Resolver, dir Directory, invitations InvitationReader, log *logger.Logger) *Service {
	return &Service{resolver: resolver, dir: dir, invitations: invitations, log: log}
}

// Suggest runs the resolver for one stored invitation against the full
// directory.
func (s *Service) Suggest(ctx context.Context, invitationID uuid.UUID) (Result, error) {
	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		return Result{}, err
	}
	startups, err := s.dir.ListStartups(ctx)
	if err != nil {
		return Result{}, err
	}
	jurors, err := s.dir.ListJurors(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.resolver.Resolve(ctx, inv, startups, jurors), nil
}

// ExactMatch resolves attendees by exact address. Each side is returned only
// when exactly one directory entry matches.
func (s *Service) ExactMatch(ctx context.Context, attendees []string) (*uuid.UUID, *uuid.UUID, error) {
	emails := normalizedAttendees(attendees)
	if len(emails) == 0 {
		return nil, nil, nil
	}

	startups, err := s.dir.FindStartupsByEmails(ctx, emails)
	if err != nil {
		return nil, nil, err
	}
	jurors, err := s.dir.FindJurorsByEmails(ctx, emails)
	if err != nil {
		return nil, nil, err
	}

	var startupID, jurorID *uuid.UUID
	if len(startups) == 1 {
		id := startups[0].ID
		startupID = &id
	}
	if len(jurors) == 1 {
		id := jurors[0].ID
		jurorID = &id
	}
	return startupID, jurorID, nil
}
