package repository

import (
	"context"
	"fmt"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

// EntryKind selects the fumigation areas or target pests table.
type EntryKind int

const (
	EntryArea EntryKind = iota
	EntryTargetPest
)

func (k EntryKind) table() (table, nameColumn string) {
	if k == EntryTargetPest {
		return "fumigation_target_pests", "pest_name"
	}
	return "fumigation_areas", "area_name"
}

// GetFumigation loads every fumigation sub-entity of a report.
func (r *Repository) GetFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID) (domain.Fumigation, error) {
	areas, err := r.ListEntries(ctx, q, EntryArea, reportID)
	if err != nil {
		return domain.Fumigation{}, err
	}
	pests, err := r.ListEntries(ctx, q, EntryTargetPest, reportID)
	if err != nil {
		return domain.Fumigation{}, err
	}
	chemicals, err := r.listFumigationChemicals(ctx, q, reportID)
	if err != nil {
		return domain.Fumigation{}, err
	}
	return domain.Fumigation{Areas: areas, TargetPests: pests, Chemicals: chemicals}, nil
}

// ListEntries returns the areas or target pests of a report in order.
func (r *Repository) ListEntries(ctx context.Context, q db.DBTX, kind EntryKind, reportID uuid.UUID) ([]domain.FumigationEntry, error) {
	table, nameColumn := kind.table()
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT id, %s, is_other, other_description FROM %s
		WHERE report_id = $1 ORDER BY sort_order, id`, nameColumn, table), reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	entries := make([]domain.FumigationEntry, 0)
	for rows.Next() {
		var e domain.FumigationEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.IsOther, &e.OtherDescription); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return entries, nil
}

// InsertEntry creates an area or target pest at the given position.
func (r *Repository) InsertEntry(ctx context.Context, q db.DBTX, kind EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error {
	table, nameColumn := kind.table()
	_, err := q.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, report_id, %s, is_other, other_description, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`, table, nameColumn),
		e.ID, reportID, e.Name, e.IsOther, e.OtherDescription, sortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// UpdateEntry rewrites an area or target pest in place.
func (r *Repository) UpdateEntry(ctx context.Context, q db.DBTX, kind EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error {
	table, nameColumn := kind.table()
	result, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET %s = $3, is_other = $4, other_description = $5, sort_order = $6
		WHERE id = $1 AND report_id = $2`, table, nameColumn),
		e.ID, reportID, e.Name, e.IsOther, e.OtherDescription, sortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("fumigation entry not found")
	}
	return nil
}

// DeleteEntries removes the given areas or target pests.
func (r *Repository) DeleteEntries(ctx context.Context, q db.DBTX, kind EntryKind, reportID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	table, _ := kind.table()
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE report_id = $1 AND id = ANY($2)`, table), reportID, ids); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// ReplaceFumigationChemicals deletes and re-inserts the fumigation chemicals.
func (r *Repository) ReplaceFumigationChemicals(ctx context.Context, q db.DBTX, reportID uuid.UUID, chemicals []domain.ChemicalUsage) error {
	if _, err := q.Exec(ctx, `DELETE FROM fumigation_chemicals WHERE report_id = $1`, reportID); err != nil {
		return fmt.Errorf("failed to clear fumigation chemicals: %w", err)
	}
	for i, c := range chemicals {
		_, err := q.Exec(ctx, `
			INSERT INTO fumigation_chemicals (id, report_id, chemical_id, quantity, batch_number, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, reportID, c.ChemicalID, c.Quantity, c.BatchNumber, i,
		)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Validation("unknown chemical_id")
			}
			return fmt.Errorf("failed to insert fumigation chemical: %w", err)
		}
	}
	return nil
}

// DeleteAllFumigation removes every fumigation sub-entity of a report.
func (r *Repository) DeleteAllFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID) error {
	for _, stmt := range []string{
		`DELETE FROM fumigation_areas WHERE report_id = $1`,
		`DELETE FROM fumigation_target_pests WHERE report_id = $1`,
		`DELETE FROM fumigation_chemicals WHERE report_id = $1`,
	} {
		if _, err := q.Exec(ctx, stmt, reportID); err != nil {
			return fmt.Errorf("failed to clear fumigation data: %w", err)
		}
	}
	return nil
}

func (r *Repository) listFumigationChemicals(ctx context.Context, q db.DBTX, reportID uuid.UUID) ([]domain.ChemicalUsage, error) {
	rows, err := q.Query(ctx, `
		SELECT id, chemical_id, quantity, batch_number FROM fumigation_chemicals
		WHERE report_id = $1 ORDER BY sort_order`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fumigation chemicals: %w", err)
	}
	defer rows.Close()

	chemicals := make([]domain.ChemicalUsage, 0)
	for rows.Next() {
		var c domain.ChemicalUsage
		if err := rows.Scan(&c.ID, &c.ChemicalID, &c.Quantity, &c.BatchNumber); err != nil {
			return nil, fmt.Errorf("failed to scan fumigation chemical: %w", err)
		}
		chemicals = append(chemicals, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fumigation chemicals: %w", err)
	}
	return chemicals, nil
}
