// Package http holds the contract between the router and the feature modules
// it mounts. main.go assembles an App; router.New turns it into an engine.
package http

import (
	"context"

	"coaching_portal_backend/platform/config"
	"coaching_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a feature that mounts its own routes.
type Module interface {
	// Name is used in startup logs.
	Name() string
	// RegisterRoutes mounts routes on the groups in ctx.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module may attach routes to.
type RouterContext struct {
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthMiddleware; pipeline routes live here.
	Protected *gin.RouterGroup
	// AuthMiddleware validates bearer tokens, for modules that build their own groups.
	AuthMiddleware gin.HandlerFunc
}

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is the composition root's hand-off to the router.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
