package repository

import (
	"context"
	"fmt"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

const (
	monitorNotFoundMsg = "insect monitor not found"

	monitorColumns = `id, report_id, monitor_number, location, monitor_type, monitor_condition,
		monitor_condition_other, warning_sign_condition, light_condition, light_faulty_type,
		light_faulty_other, glue_board_replaced, tubes_replaced, monitor_serviced, is_new_addition,
		sort_order, created_at, updated_at`
)

// ListMonitors returns a report's insect monitors in classification order.
func (r *Repository) ListMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID) ([]domain.InsectMonitor, error) {
	rows, err := q.Query(ctx, `SELECT `+monitorColumns+` FROM insect_monitors
		WHERE report_id = $1 ORDER BY sort_order, created_at, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list insect monitors: %w", err)
	}
	defer rows.Close()

	monitors := make([]domain.InsectMonitor, 0)
	for rows.Next() {
		var m domain.InsectMonitor
		if err := rows.Scan(
			&m.ID, &m.ReportID, &m.MonitorNumber, &m.Location, &m.MonitorType, &m.MonitorCondition,
			&m.MonitorConditionOther, &m.WarningSignCondition, &m.LightCondition, &m.LightFaultyType,
			&m.LightFaultyOther, &m.GlueBoardReplaced, &m.TubesReplaced, &m.MonitorServiced, &m.IsNewAddition,
			&m.SortOrder, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insect monitor: %w", err)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insect monitors: %w", err)
	}
	return monitors, nil
}

// InsertMonitor creates an insect monitor.
func (r *Repository) InsertMonitor(ctx context.Context, q db.DBTX, m domain.InsectMonitor) error {
	_, err := q.Exec(ctx, `
		INSERT INTO insect_monitors (`+monitorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		m.ID, m.ReportID, m.MonitorNumber, m.Location, m.MonitorType, m.MonitorCondition,
		m.MonitorConditionOther, m.WarningSignCondition, m.LightCondition, m.LightFaultyType,
		m.LightFaultyOther, m.GlueBoardReplaced, m.TubesReplaced, m.MonitorServiced, m.IsNewAddition,
		m.SortOrder, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create insect monitor: %w", err)
	}
	return nil
}

// UpdateMonitor rewrites a monitor in place.
func (r *Repository) UpdateMonitor(ctx context.Context, q db.DBTX, m domain.InsectMonitor) error {
	result, err := q.Exec(ctx, `
		UPDATE insect_monitors SET
			monitor_number = $3,
			location = $4,
			monitor_type = $5,
			monitor_condition = $6,
			monitor_condition_other = $7,
			warning_sign_condition = $8,
			light_condition = $9,
			light_faulty_type = $10,
			light_faulty_other = $11,
			glue_board_replaced = $12,
			tubes_replaced = $13,
			monitor_serviced = $14,
			is_new_addition = $15,
			sort_order = $16,
			updated_at = $17
		WHERE id = $1 AND report_id = $2`,
		m.ID, m.ReportID, m.MonitorNumber, m.Location, m.MonitorType, m.MonitorCondition,
		m.MonitorConditionOther, m.WarningSignCondition, m.LightCondition, m.LightFaultyType,
		m.LightFaultyOther, m.GlueBoardReplaced, m.TubesReplaced, m.MonitorServiced, m.IsNewAddition,
		m.SortOrder, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update insect monitor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(monitorNotFoundMsg)
	}
	return nil
}

// DeleteMonitors removes the given monitors from a report.
func (r *Repository) DeleteMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := q.Exec(ctx, `DELETE FROM insect_monitors WHERE report_id = $1 AND id = ANY($2)`, reportID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete insect monitors: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteAllMonitors removes every monitor of a report.
func (r *Repository) DeleteAllMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM insect_monitors WHERE report_id = $1`, reportID); err != nil {
		return fmt.Errorf("failed to clear insect monitors: %w", err)
	}
	return nil
}

// NextMonitorSortOrder returns the sort order for a monitor appended to the report.
func (r *Repository) NextMonitorSortOrder(ctx context.Context, q db.DBTX, reportID uuid.UUID) (int, error) {
	var next int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM insect_monitors WHERE report_id = $1`, reportID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute monitor sort order: %w", err)
	}
	return next, nil
}
