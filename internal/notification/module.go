// Package notification turns report lifecycle events into in-app
// notifications. Report code only publishes events; who gets told what is
// decided here.
package notification

import (
	"context"
	"fmt"

	"pestcontrol_backend/internal/events"
	apphttp "pestcontrol_backend/internal/http"
	notifhandler "pestcontrol_backend/internal/notification/handler"
	"pestcontrol_backend/internal/notification/inapp"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	resourceReport = "report"
	dateLayout     = "2006-01-02"

	TypeReportSubmitted   = "report_submitted"
	TypeReportResubmitted = "report_resubmitted"
	TypeReportApproved    = "report_approved"
	TypeReportDeclined    = "report_declined"
	TypeReportArchived    = "report_archived"
	TypeServiceReminder   = "service_reminder"
)

// Sender is the notify(userId, type, title, body) collaborator.
type Sender interface {
	Send(ctx context.Context, p inapp.SendParams) error
	SendToAdmins(ctx context.Context, p inapp.SendParams) error
}

// Module handles notification-related domain events and serves the inbox.
type Module struct {
	sender  Sender
	handler *notifhandler.HTTPHandler
	log     *logger.Logger
}

// New creates the notification module backed by in_app_notifications.
func New(pool db.DBTX, log *logger.Logger) *Module {
	svc := inapp.NewService(inapp.NewRepository(pool), log)
	return &Module{
		sender:  svc,
		handler: notifhandler.NewHTTPHandler(svc),
		log:     log,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notifications"
}

// RegisterRoutes registers the inbox routes under /api/v1/notifications
func (m *Module) RegisterRoutes(routes *apphttp.Routes) {
	if m.handler == nil {
		return
	}
	m.handler.RegisterRoutes(routes.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the module to report events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ReportSubmitted{}.EventName(), m)
	bus.Subscribe(events.ReportApproved{}.EventName(), m)
	bus.Subscribe(events.ReportDeclined{}.EventName(), m)
	bus.Subscribe(events.ReportArchived{}.EventName(), m)
	bus.Subscribe(events.ServiceReminderDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ReportSubmitted:
		return m.handleReportSubmitted(ctx, e)
	case events.ReportApproved:
		return m.handleReportApproved(ctx, e)
	case events.ReportDeclined:
		return m.handleReportDeclined(ctx, e)
	case events.ReportArchived:
		return m.handleReportArchived(ctx, e)
	case events.ServiceReminderDue:
		return m.handleServiceReminderDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func reportParams(reportID uuid.UUID, kind, title, content string) inapp.SendParams {
	id := reportID
	return inapp.SendParams{
		Type:         kind,
		Title:        title,
		Content:      content,
		ResourceID:   &id,
		ResourceType: resourceReport,
	}
}

func (m *Module) handleReportSubmitted(ctx context.Context, e events.ReportSubmitted) error {
	kind, title := TypeReportSubmitted, "New report submitted"
	if e.Resubmission {
		kind, title = TypeReportResubmitted, "Report resubmitted"
	}
	content := fmt.Sprintf("Service report for %s (%s) is waiting for review.", e.ClientName, e.ServiceDate.Format(dateLayout))
	if added := e.NewBaitStations + e.NewInsectMonitors; added > 0 {
		content += fmt.Sprintf(" %d new bait station(s) and %d new insect monitor(s) were recorded.", e.NewBaitStations, e.NewInsectMonitors)
	}

	if err := m.sender.SendToAdmins(ctx, reportParams(e.ReportID, kind, title, content)); err != nil {
		return fmt.Errorf("notify admins of report %s: %w", e.ReportID, err)
	}
	m.log.Info("review notification sent", "reportId", e.ReportID, "resubmission", e.Resubmission)
	return nil
}

func (m *Module) handleReportApproved(ctx context.Context, e events.ReportApproved) error {
	content := fmt.Sprintf("Your report for %s was approved.", e.ClientName)
	if e.NextServiceDate != nil {
		content += fmt.Sprintf(" Next service is due on %s.", e.NextServiceDate.Format(dateLayout))
	}
	p := reportParams(e.ReportID, TypeReportApproved, "Report approved", content)
	p.UserID = e.PcoID
	return m.sender.Send(ctx, p)
}

func (m *Module) handleReportDeclined(ctx context.Context, e events.ReportDeclined) error {
	content := fmt.Sprintf("Your report for %s needs changes: %s", e.ClientName, e.AdminNotes)
	if e.Forced {
		content += " The client has been reassigned to you for the revision."
	}
	p := reportParams(e.ReportID, TypeReportDeclined, "Report declined", content)
	p.UserID = e.PcoID
	return m.sender.Send(ctx, p)
}

func (m *Module) handleReportArchived(ctx context.Context, e events.ReportArchived) error {
	p := reportParams(e.ReportID, TypeReportArchived, "Report archived", fmt.Sprintf("Your report for %s was archived.", e.ClientName))
	p.UserID = e.PcoID
	return m.sender.Send(ctx, p)
}

func (m *Module) handleServiceReminderDue(ctx context.Context, e events.ServiceReminderDue) error {
	p := reportParams(e.ReportID, TypeServiceReminder, "Service due",
		fmt.Sprintf("%s is due for its next service on %s.", e.ClientName, e.NextServiceDate.Format(dateLayout)))
	p.UserID = e.PcoID
	return m.sender.Send(ctx, p)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
