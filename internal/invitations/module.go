// Package invitations provides the calendar invitation module: ICS ingest,
// lifecycle buckets and user status transitions.
package invitations

import (
	"jury_portal_backend/internal/events"
	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/internal/invitations/handler"
	"jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/internal/invitations/service"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the invitations domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new invitations module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger, defaultRound string) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, nil, eventBus, log, defaultRound)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Service returns the invitations service.
func (m *Module) Service() *service.Service { return m.service }

// SetExactMatcher enables exact auto-matching on ingest (breaks the
// invitations <-> matching construction cycle).
func (m *Module) SetExactMatcher(matcher service.ExactMatcher) {
	m.service.SetExactMatcher(matcher)
}

// Repository returns the invitations repository for modules that update
// invitations inside their own transactions.
func (m *Module) Repository() *repository.Repository { return m.repo }

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "invitations"
}

// RegisterRoutes registers the module's routes under /api/v1/invitations.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/invitations"), ctx.Manager.Group("/invitations"))
}

var _ apphttp.Module = (*Module)(nil)
