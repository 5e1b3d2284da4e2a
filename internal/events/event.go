// Package events declares the report-domain events and re-exports the
// platform bus so modules import a single package.
package events

import (
	"time"

	"pestcontrol_backend/platform/events"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Report Domain Events
// =============================================================================

// ReportCreated is published when a technician opens a draft report.
type ReportCreated struct {
	BaseEvent
	ReportID uuid.UUID `json:"reportId"`
	ClientID uuid.UUID `json:"clientId"`
	PcoID    uuid.UUID `json:"pcoId"`
}

func (e ReportCreated) EventName() string { return "reports.report.created" }

// ReportSubmitted is published once a report is pending review, either via
// submit, the complete-report upload or an admin resubmission.
type ReportSubmitted struct {
	BaseEvent
	ReportID          uuid.UUID `json:"reportId"`
	ClientID          uuid.UUID `json:"clientId"`
	ClientName        string    `json:"clientName"`
	PcoID             uuid.UUID `json:"pcoId"`
	ServiceDate       time.Time `json:"serviceDate"`
	NewBaitStations   int       `json:"newBaitStations"`
	NewInsectMonitors int       `json:"newInsectMonitors"`
	Resubmission      bool      `json:"resubmission"`
}

func (e ReportSubmitted) EventName() string { return "reports.report.submitted" }

// ReportApproved is published when an admin approves a report.
type ReportApproved struct {
	BaseEvent
	ReportID        uuid.UUID  `json:"reportId"`
	ClientID        uuid.UUID  `json:"clientId"`
	ClientName      string     `json:"clientName"`
	PcoID           uuid.UUID  `json:"pcoId"`
	ReviewedBy      uuid.UUID  `json:"reviewedBy"`
	NextServiceDate *time.Time `json:"nextServiceDate,omitempty"`
}

func (e ReportApproved) EventName() string { return "reports.report.approved" }

// ReportDeclined is published when an admin declines (or force-declines) a report.
type ReportDeclined struct {
	BaseEvent
	ReportID   uuid.UUID `json:"reportId"`
	ClientID   uuid.UUID `json:"clientId"`
	ClientName string    `json:"clientName"`
	PcoID      uuid.UUID `json:"pcoId"`
	ReviewedBy uuid.UUID `json:"reviewedBy"`
	AdminNotes string    `json:"adminNotes"`
	Forced     bool      `json:"forced"`
}

func (e ReportDeclined) EventName() string { return "reports.report.declined" }

// ReportArchived is published when a report reaches its terminal state.
type ReportArchived struct {
	BaseEvent
	ReportID   uuid.UUID `json:"reportId"`
	ClientID   uuid.UUID `json:"clientId"`
	ClientName string    `json:"clientName"`
	PcoID      uuid.UUID `json:"pcoId"`
	ArchivedBy uuid.UUID `json:"archivedBy"`
}

func (e ReportArchived) EventName() string { return "reports.report.archived" }

// ReportDeleted is published when a technician discards a draft.
type ReportDeleted struct {
	BaseEvent
	ReportID uuid.UUID `json:"reportId"`
	ClientID uuid.UUID `json:"clientId"`
	PcoID    uuid.UUID `json:"pcoId"`
}

func (e ReportDeleted) EventName() string { return "reports.report.deleted" }

// ServiceReminderDue is published by the worker when a client's next service
// date is approaching.
type ServiceReminderDue struct {
	BaseEvent
	ReportID        uuid.UUID `json:"reportId"`
	ClientID        uuid.UUID `json:"clientId"`
	ClientName      string    `json:"clientName"`
	PcoID           uuid.UUID `json:"pcoId"`
	NextServiceDate time.Time `json:"nextServiceDate"`
}

func (e ServiceReminderDue) EventName() string { return "reports.service_reminder.due" }
