package repository

import (
	"context"
	"fmt"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

func groupTable(g domain.Group) (table, categoryColumn string) {
	if g == domain.GroupInsectMonitors {
		return "insect_monitors", "monitor_type"
	}
	return "bait_stations", "location"
}

func categoryFor(g domain.Group, raw string) domain.Category {
	if g == domain.GroupInsectMonitors {
		return domain.MonitorCategory(domain.MonitorType(raw))
	}
	return domain.StationCategory(domain.StationLocation(raw))
}

// ListEquipment returns the classification view of one equipment group.
func (r *Repository) ListEquipment(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group) ([]domain.EquipmentItem, error) {
	table, column := groupTable(g)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT id, %s, sort_order, created_at, is_new_addition FROM %s
		WHERE report_id = $1 ORDER BY sort_order, created_at, id`, column, table), reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s equipment: %w", table, err)
	}
	defer rows.Close()

	items := make([]domain.EquipmentItem, 0)
	for rows.Next() {
		var item domain.EquipmentItem
		var raw string
		if err := rows.Scan(&item.ID, &raw, &item.SortOrder, &item.CreatedAt, &item.IsNewAddition); err != nil {
			return nil, fmt.Errorf("failed to scan %s equipment: %w", table, err)
		}
		item.Category = categoryFor(g, raw)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s equipment: %w", table, err)
	}
	return items, nil
}

// HasNewAdditions reports whether any item of the group is already marked.
func (r *Repository) HasNewAdditions(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group) (bool, error) {
	table, _ := groupTable(g)
	var exists bool
	err := q.QueryRow(ctx, fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE report_id = $1 AND is_new_addition)`, table), reportID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check %s markings: %w", table, err)
	}
	return exists, nil
}

// MarkNew sets is_new_addition for exactly the given ids of the group and
// clears it everywhere else in the report.
func (r *Repository) MarkNew(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group, ids []uuid.UUID) error {
	table, _ := groupTable(g)
	if ids == nil {
		ids = []uuid.UUID{}
	}
	_, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET is_new_addition = (id = ANY($2)) WHERE report_id = $1`, table), reportID, ids)
	if err != nil {
		return fmt.Errorf("failed to mark %s: %w", table, err)
	}
	return nil
}
