// Package router builds the gin engine from the application's modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "jury_portal_backend/internal/http"
	"jury_portal_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// New creates the engine, mounts shared middleware and lets every module
// register its routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				httpkit.Error(c, http.StatusServiceUnavailable, "database unavailable", nil)
				return
			}
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	})

	auth := httpkit.AuthRequired(app.Config)
	v1 := engine.Group("/api/v1")
	protected := v1.Group("", auth)
	manager := protected.Group("", httpkit.RequireRole(httpkit.RoleManager))

	rc := &apphttp.RouterContext{
		Engine:           engine,
		V1:               v1,
		Protected:        protected,
		Manager:          manager,
		Config:           app.Config,
		AuthMiddleware:   auth,
		BatchRateLimiter: httpkit.NewBatchRateLimiter(app.Logger),
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(rc)
		app.Logger.Info("module routes registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
