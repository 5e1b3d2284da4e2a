// Package http holds what the router needs from the composition root: the
// assembled App and the Module contract each bounded context implements.
package http

import (
	"context"

	"pestcontrol_backend/platform/config"
	"pestcontrol_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and handed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}

// Module mounts one bounded context's endpoints.
type Module interface {
	Name() string
	RegisterRoutes(routes *Routes)
}

// Routes are the groups a module may mount on. Public has no auth,
// Protected requires a valid access token and Admin additionally the admin
// role. All three live under /api/v1.
type Routes struct {
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
}
