// Package feedback provides the content lifecycle module for per-startup
// custom emails and VC feedback.
package feedback

import (
	"jury_portal_backend/internal/directory"
	"jury_portal_backend/internal/email"
	"jury_portal_backend/internal/events"
	"jury_portal_backend/internal/feedback/agent"
	"jury_portal_backend/internal/feedback/handler"
	"jury_portal_backend/internal/feedback/repository"
	"jury_portal_backend/internal/feedback/service"
	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/internal/storage"
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration the feedback module reads.
type ModuleConfig interface {
	config.AIConfig
	config.FeedbackConfig
	config.SchedulerConfig
}

type Module struct {
	handler *handler.Handler
	service *service.Service
	close   func() error
}

// NewModule wires the lifecycle manager. archive may be nil when MinIO is not
// configured; generation is disabled without an AI key.
func NewModule(pool *pgxpool.Pool, dir *directory.Repository, cfg ModuleConfig, sender email.Sender, archive storage.Archive, eventBus events.Bus, val *validator.Validator, log *logger.Logger) (*Module, error) {
	var generator service.Generator
	if cfg.IsAIEnabled() {
		w, err := agent.NewWriter(cfg)
		if err != nil {
			return nil, err
		}
		generator = w
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; feedback generation disabled")
	}

	debouncer, closeDebouncer, err := service.NewDebouncer(cfg, cfg.GetEnhanceDebounce())
	if err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), dir, generator, sender, eventBus, log, service.Options{
		Debouncer:          debouncer,
		Archive:            archive,
		AllowDuplicateSend: cfg.GetAllowDuplicateSend(),
		BatchConcurrency:   cfg.GetBatchConcurrency(),
	})
	return &Module{
		handler: handler.New(svc, val, cfg.GetDefaultRoundName()),
		service: svc,
		close:   closeDebouncer,
	}, nil
}

func (m *Module) Service() *service.Service { return m.service }

// Close releases the debounce store.
func (m *Module) Close() error { return m.close() }

func (m *Module) Name() string { return "feedback" }

// RegisterRoutes registers /api/v1/feedback for managers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Manager, ctx.BatchRateLimiter.RateLimit())
}

var _ apphttp.Module = (*Module)(nil)
