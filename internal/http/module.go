// Package http provides HTTP server infrastructure including the Module interface
// that domain modules implement for route registration.
package http

import (
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared route groups and middleware to modules.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the unauthenticated /api/v1 group.
	V1 *gin.RouterGroup
	// Protected requires a valid access token (jurors and managers).
	Protected *gin.RouterGroup
	// Manager requires the manager role.
	Manager *gin.RouterGroup
	Config  config.JWTConfig
	// AuthMiddleware provides the authentication middleware.
	AuthMiddleware gin.HandlerFunc
	// BatchRateLimiter throttles multi-entity mutations such as batch generate.
	BatchRateLimiter *httpkit.IPRateLimiter
}
