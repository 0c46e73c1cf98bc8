// Package assignments provides the assignment reconciler module: applying
// matches, the reconciled meetings view and assignment status actions.
package assignments

import (
	"time"

	"jury_portal_backend/internal/assignments/handler"
	"jury_portal_backend/internal/assignments/repository"
	"jury_portal_backend/internal/assignments/service"
	"jury_portal_backend/internal/events"
	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	store   *repository.PgStore
}

// NewModule wires the reconciler. reminders may be nil.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, reminders scheduler.ReminderScheduler, reminderLead time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	store := repository.NewStore(pool)
	svc := service.New(store, eventBus, reminders, reminderLead, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		store:   store,
	}
}

func (m *Module) Service() *service.Service { return m.service }

// ReminderSource returns the repository the scheduler worker reads meetings from.
func (m *Module) ReminderSource() scheduler.ReminderSource { return m.store.AssignmentRepository() }

func (m *Module) Name() string {
	return "assignments"
}

// RegisterRoutes registers /api/v1/meetings, /api/v1/assignments and the
// match action under /api/v1/invitations.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected, ctx.Manager)
}

var _ apphttp.Module = (*Module)(nil)
