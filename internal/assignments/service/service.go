// Package service keeps technician assignments in step with the report
// lifecycle and enforces a single active technician per client.
package service

import (
	"context"
	"errors"
	"time"

	"pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/internal/assignments/repository"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgNotAssigned      = "technician is not assigned to this client"
	msgConcurrentAssign = "client was assigned to another technician concurrently"
)

// Store is the persistence the manager needs.
type Store interface {
	FindActive(ctx context.Context, q db.DBTX, clientID uuid.UUID) (*domain.Assignment, error)
	FindLatest(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (*domain.Assignment, error)
	ListByClient(ctx context.Context, q db.DBTX, clientID uuid.UUID) ([]domain.Assignment, error)
	Insert(ctx context.Context, q db.DBTX, a domain.Assignment) error
	Reactivate(ctx context.Context, q db.DBTX, id uuid.UUID, by *uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID, by *uuid.UUID, at time.Time) (int64, error)
	DeleteInactive(ctx context.Context, q db.DBTX, clientID uuid.UUID) error
	DeletePair(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, q db.DBTX, clientID uuid.UUID) error
}

// Manager applies assignment side effects. The On* methods run on the
// caller's transaction; the admin operations open their own.
type Manager struct {
	store Store
	tx    db.Transactor
	pool  db.DBTX
	log   *logger.Logger
	now   func() time.Time
}

// New creates an assignment manager.
func New(store Store, tx db.Transactor, pool db.DBTX, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{store: store, tx: tx, pool: pool, log: log, now: time.Now}
}

// RequireActive fails unless pcoID holds the client's active assignment.
func (m *Manager) RequireActive(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error {
	active, err := m.store.FindActive(ctx, q, clientID)
	if err != nil {
		return err
	}
	if active == nil || active.PcoID != pcoID {
		return apperr.Forbidden(msgNotAssigned)
	}
	return nil
}

// ActivePco returns the technician currently assigned to the client, or nil.
func (m *Manager) ActivePco(ctx context.Context, q db.DBTX, clientID uuid.UUID) (*uuid.UUID, error) {
	active, err := m.store.FindActive(ctx, q, clientID)
	if err != nil || active == nil {
		return nil, err
	}
	return &active.PcoID, nil
}

// OnSubmit provisionally releases the technician while the report is in
// review: stale inactive rows for the client are removed and the active row
// is flipped to inactive.
func (m *Manager) OnSubmit(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error {
	if err := m.store.DeleteInactive(ctx, q, clientID); err != nil {
		return err
	}
	changed, err := m.store.Deactivate(ctx, q, clientID, pcoID, &pcoID, m.now())
	if err != nil {
		return err
	}
	if changed == 0 {
		m.log.WithContext(ctx).Warn("no active assignment to release on submit",
			"client_id", clientID, "pco_id", pcoID)
	}
	return nil
}

// OnDecline gives the client back to the technician whose report was
// declined. If the client has meanwhile been given to someone else the
// outcome is a DeclineConflict and nothing is written.
func (m *Manager) OnDecline(ctx context.Context, q db.DBTX, clientID, originalPcoID, reviewerID uuid.UUID) (domain.DeclineOutcome, error) {
	active, err := m.store.FindActive(ctx, q, clientID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if active.PcoID == originalPcoID {
			return domain.DeclineRestored{Assignment: *active, Action: domain.RestoreKept}, nil
		}
		return domain.DeclineConflict{CurrentPcoID: active.PcoID, OriginalPcoID: originalPcoID}, nil
	}

	now := m.now()
	previous, err := m.store.FindLatest(ctx, q, clientID, originalPcoID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if err := m.store.Reactivate(ctx, q, previous.ID, &reviewerID, now); err != nil {
			return nil, concurrentAssignment(err)
		}
		restored := *previous
		restored.Status = domain.StatusActive
		restored.AssignedAt = now
		restored.AssignedBy = &reviewerID
		restored.UnassignedAt = nil
		restored.UnassignedBy = nil
		return domain.DeclineRestored{Assignment: restored, Action: domain.RestoreReactivated}, nil
	}

	rows, err := m.store.ListByClient(ctx, q, clientID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.PcoID != originalPcoID {
			return domain.DeclineConflict{CurrentPcoID: row.PcoID, OriginalPcoID: originalPcoID}, nil
		}
	}

	created := domain.Assignment{
		ID:         uuid.New(),
		ClientID:   clientID,
		PcoID:      originalPcoID,
		AssignedBy: &reviewerID,
		AssignedAt: now,
		Status:     domain.StatusActive,
	}
	if err := m.store.Insert(ctx, q, created); err != nil {
		return nil, concurrentAssignment(err)
	}
	return domain.DeclineRestored{Assignment: created, Action: domain.RestoreCreated}, nil
}

// OnForceDecline drops every assignment for the client and makes the
// original technician the active one.
func (m *Manager) OnForceDecline(ctx context.Context, q db.DBTX, clientID, originalPcoID, reviewerID uuid.UUID) (domain.Assignment, error) {
	if err := m.store.DeleteAll(ctx, q, clientID); err != nil {
		return domain.Assignment{}, err
	}
	a := domain.Assignment{
		ID:         uuid.New(),
		ClientID:   clientID,
		PcoID:      originalPcoID,
		AssignedBy: &reviewerID,
		AssignedAt: m.now(),
		Status:     domain.StatusActive,
	}
	if err := m.store.Insert(ctx, q, a); err != nil {
		return domain.Assignment{}, concurrentAssignment(err)
	}
	return a, nil
}

// OnClose ends the service cycle after approval or archival by deleting the
// pair's assignment rows.
func (m *Manager) OnClose(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error {
	_, err := m.store.DeletePair(ctx, q, clientID, pcoID)
	return err
}

// Assign makes pcoID the client's active technician. A different active
// technician is released first; this is the explicit reassignment that
// resolves a decline conflict.
func (m *Manager) Assign(ctx context.Context, clientID, pcoID, adminID uuid.UUID) (domain.Assignment, error) {
	var result domain.Assignment
	err := m.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		active, err := m.store.FindActive(ctx, q, clientID)
		if err != nil {
			return err
		}
		if active != nil && active.PcoID == pcoID {
			result = *active
			return nil
		}

		now := m.now()
		if active != nil {
			if _, err := m.store.Deactivate(ctx, q, clientID, active.PcoID, &adminID, now); err != nil {
				return err
			}
		}

		previous, err := m.store.FindLatest(ctx, q, clientID, pcoID)
		if err != nil {
			return err
		}
		if previous != nil {
			if err := m.store.Reactivate(ctx, q, previous.ID, &adminID, now); err != nil {
				return concurrentAssignment(err)
			}
			result = *previous
			result.Status = domain.StatusActive
			result.AssignedAt = now
			result.AssignedBy = &adminID
			result.UnassignedAt = nil
			result.UnassignedBy = nil
			return nil
		}

		result = domain.Assignment{
			ID:         uuid.New(),
			ClientID:   clientID,
			PcoID:      pcoID,
			AssignedBy: &adminID,
			AssignedAt: now,
			Status:     domain.StatusActive,
		}
		return concurrentAssignment(m.store.Insert(ctx, q, result))
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	m.log.WithContext(ctx).Info("client assigned", "client_id", clientID, "pco_id", pcoID, "assigned_by", adminID)
	return result, nil
}

// Unassign releases the client's active technician.
func (m *Manager) Unassign(ctx context.Context, clientID, adminID uuid.UUID) error {
	return m.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		active, err := m.store.FindActive(ctx, q, clientID)
		if err != nil {
			return err
		}
		if active == nil {
			return apperr.NotFound("client has no active assignment")
		}
		_, err = m.store.Deactivate(ctx, q, clientID, active.PcoID, &adminID, m.now())
		return err
	})
}

// List returns the client's assignment history.
func (m *Manager) List(ctx context.Context, clientID uuid.UUID) ([]domain.Assignment, error) {
	return m.store.ListByClient(ctx, m.pool, clientID)
}

func concurrentAssignment(err error) error {
	if errors.Is(err, repository.ErrActiveExists) {
		return apperr.Conflict(msgConcurrentAssign)
	}
	return err
}
