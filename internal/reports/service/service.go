// Package service implements the report lifecycle: status transitions,
// sub-entity persistence, equipment reconciliation and the assignment side
// effects of each transition, each transition in one unit of work.
package service

import (
	"context"
	"errors"
	"time"

	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/internal/scheduler"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/config"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/locker"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgNotOwner        = "report belongs to another technician"
	msgAdminOnly       = "administrator privileges required"
	msgStatusForbidden = "report status does not allow this action"
	msgServiceDate     = "service_date is required"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Deps are the collaborators of the report service. Bus, Reminders and
// Locker are optional.
type Deps struct {
	Store       Store
	Tx          db.Transactor
	Pool        db.DBTX
	Assignments Assignments
	Bus         events.Bus
	Reminders   scheduler.ReminderScheduler
	Locker      locker.Locker
	Config      config.ReportConfig
	Logger      *logger.Logger
}

// Service provides business logic for reports.
type Service struct {
	store       Store
	tx          db.Transactor
	pool        db.DBTX
	assignments Assignments
	bus         events.Bus
	reminders   scheduler.ReminderScheduler
	locker      locker.Locker
	cfg         config.ReportConfig
	log         *logger.Logger
	now         func() time.Time
}

// New creates a new reports service.
func New(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:       d.Store,
		tx:          d.Tx,
		pool:        d.Pool,
		assignments: d.Assignments,
		bus:         d.Bus,
		reminders:   d.Reminders,
		locker:      d.Locker,
		cfg:         d.Config,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// publish hands an event to the bus. Delivery is asynchronous and never
// affects the transition that produced it.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

func (s *Service) declineMinNotes() int {
	if s.cfg == nil || s.cfg.GetDeclineMinNotes() <= 0 {
		return 10
	}
	return s.cfg.GetDeclineMinNotes()
}

func (s *Service) submitLockTTL() time.Duration {
	if s.cfg == nil || s.cfg.GetSubmitLockTTL() <= 0 {
		return 30 * time.Second
	}
	return s.cfg.GetSubmitLockTTL()
}

func (s *Service) reminderLeadTime() time.Duration {
	if s.cfg == nil {
		return 24 * time.Hour
	}
	return s.cfg.GetServiceReminderLeadTime()
}

// loadOwned fetches a report the actor may act on. Technicians only see
// their own reports.
func (s *Service) loadOwned(ctx context.Context, q db.DBTX, actor Actor, id uuid.UUID) (domain.Report, error) {
	rep, err := s.store.Get(ctx, q, id)
	if err != nil {
		return domain.Report{}, err
	}
	if !actor.IsAdmin && rep.PcoID != actor.UserID {
		return domain.Report{}, apperr.Forbidden(msgNotOwner)
	}
	return rep, nil
}

func (s *Service) loadDetail(ctx context.Context, q db.DBTX, id uuid.UUID) (domain.ReportDetail, error) {
	rep, err := s.store.Get(ctx, q, id)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	client, err := s.store.GetClient(ctx, q, rep.ClientID)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	stations, err := s.store.ListStations(ctx, q, id)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	monitors, err := s.store.ListMonitors(ctx, q, id)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	fumigation, err := s.store.GetFumigation(ctx, q, id)
	if err != nil {
		return domain.ReportDetail{}, err
	}
	return domain.ReportDetail{
		Report:         rep,
		ClientName:     client.Name,
		BaitStations:   stations,
		Fumigation:     fumigation,
		InsectMonitors: monitors,
	}, nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin {
		return apperr.Forbidden(msgAdminOnly)
	}
	return nil
}

func requireStatus(rep domain.Report, action domain.Action) error {
	if !rep.Status.Allows(action) {
		return apperr.Forbidden(msgStatusForbidden).WithDetails(map[string]string{
			"status": string(rep.Status),
			"action": string(action),
		})
	}
	return nil
}

// statusErr turns a lost conditional write into the same error a failed
// precondition produces.
func statusErr(err error) error {
	if errors.Is(err, repository.ErrStatusChanged) {
		return apperr.Forbidden(msgStatusForbidden)
	}
	return err
}

// ReminderTarget resolves the report behind a scheduled next-service
// reminder and the technician currently looking after the client.
func (s *Service) ReminderTarget(ctx context.Context, reportID uuid.UUID) (scheduler.ReminderTarget, error) {
	rep, err := s.store.Get(ctx, s.pool, reportID)
	if err != nil {
		return scheduler.ReminderTarget{}, err
	}
	client, err := s.store.GetClient(ctx, s.pool, rep.ClientID)
	if err != nil {
		return scheduler.ReminderTarget{}, err
	}
	active, err := s.assignments.ActivePco(ctx, s.pool, rep.ClientID)
	if err != nil {
		return scheduler.ReminderTarget{}, err
	}
	target := scheduler.ReminderTarget{
		ReportID:    rep.ID,
		ClientID:    rep.ClientID,
		ClientName:  client.Name,
		ReportPcoID: rep.PcoID,
		ActivePcoID: active,
	}
	if rep.Status == domain.StatusApproved {
		target.NextServiceDate = rep.NextServiceDate
	}
	return target, nil
}

var _ scheduler.ReminderLookup = (*Service)(nil)
