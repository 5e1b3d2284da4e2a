// Package assignments provides the technician assignment module.
package assignments

import (
	"pestcontrol_backend/internal/assignments/handler"
	"pestcontrol_backend/internal/assignments/repository"
	"pestcontrol_backend/internal/assignments/service"
	apphttp "pestcontrol_backend/internal/http"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/logger"
	"pestcontrol_backend/platform/validator"
)

// Module represents the assignments domain module
type Module struct {
	handler *handler.Handler
	Manager *service.Manager
}

// NewModule creates a new assignments module with all dependencies wired
func NewModule(pool db.DBTX, tx db.Transactor, val *validator.Validator, log *logger.Logger) *Module {
	mgr := service.New(repository.New(), tx, pool, log)
	return &Module{
		handler: handler.New(mgr, val),
		Manager: mgr,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "assignments"
}

// RegisterRoutes registers the module's routes under /api/v1/admin/assignments
func (m *Module) RegisterRoutes(routes *apphttp.Routes) {
	m.handler.RegisterRoutes(routes.Admin.Group("/assignments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
