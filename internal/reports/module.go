// Package reports provides the service report module.
package reports

import (
	"pestcontrol_backend/internal/events"
	apphttp "pestcontrol_backend/internal/http"
	"pestcontrol_backend/internal/reports/handler"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/internal/reports/service"
	"pestcontrol_backend/internal/scheduler"
	"pestcontrol_backend/platform/config"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/locker"
	"pestcontrol_backend/platform/logger"
	"pestcontrol_backend/platform/validator"
)

// Dependencies collects what the reports module needs from the composition root.
type Dependencies struct {
	Pool        db.DBTX
	Tx          db.Transactor
	Assignments service.Assignments
	Bus         events.Bus
	Reminders   scheduler.ReminderScheduler
	Locker      locker.Locker
	Config      config.ReportConfig
	Validator   *validator.Validator
	Logger      *logger.Logger
}

// Module represents the reports domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new reports module with all dependencies wired
func NewModule(d Dependencies) *Module {
	svc := service.New(service.Deps{
		Store:       repository.New(),
		Tx:          d.Tx,
		Pool:        d.Pool,
		Assignments: d.Assignments,
		Bus:         d.Bus,
		Reminders:   d.Reminders,
		Locker:      d.Locker,
		Config:      d.Config,
		Logger:      d.Logger,
	})
	return &Module{
		handler: handler.New(svc, d.Validator),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "reports"
}

// RegisterRoutes registers report routes under /api/v1/reports and the
// admin edit under /api/v1/admin/reports
func (m *Module) RegisterRoutes(routes *apphttp.Routes) {
	m.handler.RegisterRoutes(routes.Protected.Group("/reports"))
	m.handler.RegisterAdminRoutes(routes.Admin.Group("/reports"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
