package http

import (
	"context"

	"jury_portal_backend/internal/events"
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by the health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds everything the router needs. It is populated by cmd/api.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
