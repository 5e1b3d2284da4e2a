// Package repository persists client_pco_assignments rows.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	assignmentColumns = `id, client_id, pco_id, assigned_by, assigned_at, unassigned_at, unassigned_by, status`

	oneActiveConstraint = "client_pco_assignments_one_active"
)

// ErrActiveExists is returned when a write would leave a client with two
// active assignments.
var ErrActiveExists = errors.New("client already has an active assignment")

// Repository provides database operations for assignments.
type Repository struct{}

// New creates a new assignments repository.
func New() *Repository {
	return &Repository{}
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.ClientID, &a.PcoID, &a.AssignedBy, &a.AssignedAt, &a.UnassignedAt, &a.UnassignedBy, &a.Status)
	return a, err
}

func mapWriteError(err error, op string) error {
	if db.IsUniqueViolation(err) && db.ConstraintName(err) == oneActiveConstraint {
		return ErrActiveExists
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// FindActive returns the client's active assignment, or nil.
func (r *Repository) FindActive(ctx context.Context, q db.DBTX, clientID uuid.UUID) (*domain.Assignment, error) {
	a, err := scanAssignment(q.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM client_pco_assignments
		WHERE client_id = $1 AND status = 'active'`, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active assignment: %w", err)
	}
	return &a, nil
}

// FindLatest returns the most recent row for a client and technician, or nil.
func (r *Repository) FindLatest(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (*domain.Assignment, error) {
	a, err := scanAssignment(q.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM client_pco_assignments
		WHERE client_id = $1 AND pco_id = $2
		ORDER BY assigned_at DESC LIMIT 1`, clientID, pcoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return &a, nil
}

// ListByClient returns every row for a client, newest first.
func (r *Repository) ListByClient(ctx context.Context, q db.DBTX, clientID uuid.UUID) ([]domain.Assignment, error) {
	rows, err := q.Query(ctx, `SELECT `+assignmentColumns+` FROM client_pco_assignments
		WHERE client_id = $1 ORDER BY assigned_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return items, nil
}

// Insert creates an assignment row.
func (r *Repository) Insert(ctx context.Context, q db.DBTX, a domain.Assignment) error {
	_, err := q.Exec(ctx, `INSERT INTO client_pco_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ClientID, a.PcoID, a.AssignedBy, a.AssignedAt, a.UnassignedAt, a.UnassignedBy, a.Status)
	if err != nil {
		return mapWriteError(err, "create assignment")
	}
	return nil
}

// Reactivate makes an existing row the client's active assignment again.
func (r *Repository) Reactivate(ctx context.Context, q db.DBTX, id uuid.UUID, by *uuid.UUID, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE client_pco_assignments SET
			status = 'active', assigned_at = $2, assigned_by = COALESCE($3, assigned_by),
			unassigned_at = NULL, unassigned_by = NULL
		WHERE id = $1`, id, at, by)
	if err != nil {
		return mapWriteError(err, "reactivate assignment")
	}
	return nil
}

// Deactivate flips the active row for a client and technician to inactive.
// Returns the number of rows changed.
func (r *Repository) Deactivate(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID, by *uuid.UUID, at time.Time) (int64, error) {
	result, err := q.Exec(ctx, `
		UPDATE client_pco_assignments SET status = 'inactive', unassigned_at = $3, unassigned_by = $4
		WHERE client_id = $1 AND pco_id = $2 AND status = 'active'`, clientID, pcoID, at, by)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteInactive removes every inactive row for a client.
func (r *Repository) DeleteInactive(ctx context.Context, q db.DBTX, clientID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM client_pco_assignments WHERE client_id = $1 AND status = 'inactive'`, clientID); err != nil {
		return fmt.Errorf("failed to delete inactive assignments: %w", err)
	}
	return nil
}

// DeletePair removes every row between a client and a technician.
func (r *Repository) DeletePair(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (int64, error) {
	result, err := q.Exec(ctx, `DELETE FROM client_pco_assignments WHERE client_id = $1 AND pco_id = $2`, clientID, pcoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignment: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteAll removes every row for a client.
func (r *Repository) DeleteAll(ctx context.Context, q db.DBTX, clientID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM client_pco_assignments WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}
