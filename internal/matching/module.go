// Package matching provides match suggestions for calendar invitations.
package matching

import (
	"jury_portal_backend/internal/directory"
	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/internal/matching/agent"
	"jury_portal_backend/internal/matching/handler"
	"jury_portal_backend/internal/matching/service"
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/logger"
)

// ModuleConfig is the configuration the matching module reads.
type ModuleConfig interface {
	config.AIConfig
	config.MatchingConfig
}

// Module represents the matching domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the resolver. The AI stage is enabled only when an API
// key is configured.
func NewModule(dir *directory.Repository, invitations service.InvitationReader, cfg ModuleConfig, log *logger.Logger) (*Module, error) {
	var suggester service.Suggester
	if cfg.IsAIEnabled() {
		s, err := agent.NewSuggester(cfg)
		if err != nil {
			return nil, err
		}
		suggester = s
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; AI match suggestions disabled")
	}

	resolver := service.NewResolver(suggester, cfg.GetMatchCandidateLimit(), cfg.GetAIRequestTimeout(), log)
	svc := service.New(resolver, dir, invitations, log)
	return &Module{handler: handler.New(svc), service: svc}, nil
}

// Service returns the matching service; it also serves as the exact matcher
// for invitation ingest.
func (m *Module) Service() *service.Service { return m.service }

// Name returns the module name for logging.
func (m *Module) Name() string { return "matching" }

// RegisterRoutes registers the suggestion route under /api/v1/invitations.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Manager.Group("/invitations"))
}

var _ apphttp.Module = (*Module)(nil)
