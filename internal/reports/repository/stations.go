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
	stationNotFoundMsg = "bait station not found"

	stationColumns = `id, report_id, station_number, location, is_accessible, inaccessible_reason,
		activity_droppings, activity_gnawing, activity_tracks, activity_other, activity_other_description,
		bait_status, station_condition, action_taken, warning_sign_condition, rodent_box_replaced,
		station_remarks, is_new_addition, sort_order, created_at, updated_at`
)

// ListStations returns a report's bait stations in classification order,
// each with its chemical usages.
func (r *Repository) ListStations(ctx context.Context, q db.DBTX, reportID uuid.UUID) ([]domain.BaitStation, error) {
	rows, err := q.Query(ctx, `SELECT `+stationColumns+` FROM bait_stations
		WHERE report_id = $1 ORDER BY sort_order, created_at, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bait stations: %w", err)
	}
	defer rows.Close()

	stations := make([]domain.BaitStation, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var s domain.BaitStation
		if err := rows.Scan(
			&s.ID, &s.ReportID, &s.StationNumber, &s.Location, &s.IsAccessible, &s.InaccessibleReason,
			&s.ActivityDroppings, &s.ActivityGnawing, &s.ActivityTracks, &s.ActivityOther, &s.ActivityOtherDescription,
			&s.BaitStatus, &s.StationCondition, &s.ActionTaken, &s.WarningSignCondition, &s.RodentBoxReplaced,
			&s.StationRemarks, &s.IsNewAddition, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bait station: %w", err)
		}
		s.Chemicals = make([]domain.ChemicalUsage, 0)
		index[s.ID] = len(stations)
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bait stations: %w", err)
	}
	if len(stations) == 0 {
		return stations, nil
	}

	chemRows, err := q.Query(ctx, `
		SELECT sc.id, sc.station_id, sc.chemical_id, sc.quantity, sc.batch_number
		FROM station_chemicals sc
		JOIN bait_stations bs ON bs.id = sc.station_id
		WHERE bs.report_id = $1
		ORDER BY sc.station_id, sc.sort_order`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list station chemicals: %w", err)
	}
	defer chemRows.Close()

	for chemRows.Next() {
		var c domain.ChemicalUsage
		var stationID uuid.UUID
		if err := chemRows.Scan(&c.ID, &stationID, &c.ChemicalID, &c.Quantity, &c.BatchNumber); err != nil {
			return nil, fmt.Errorf("failed to scan station chemical: %w", err)
		}
		if i, ok := index[stationID]; ok {
			stations[i].Chemicals = append(stations[i].Chemicals, c)
		}
	}
	if err := chemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate station chemicals: %w", err)
	}

	return stations, nil
}

// InsertStation creates a bait station and its chemical usages.
func (r *Repository) InsertStation(ctx context.Context, q db.DBTX, s domain.BaitStation) error {
	_, err := q.Exec(ctx, `
		INSERT INTO bait_stations (`+stationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		s.ID, s.ReportID, s.StationNumber, s.Location, s.IsAccessible, s.InaccessibleReason,
		s.ActivityDroppings, s.ActivityGnawing, s.ActivityTracks, s.ActivityOther, s.ActivityOtherDescription,
		s.BaitStatus, s.StationCondition, s.ActionTaken, s.WarningSignCondition, s.RodentBoxReplaced,
		s.StationRemarks, s.IsNewAddition, s.SortOrder, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Validation("bait station references an unknown report")
		}
		return fmt.Errorf("failed to create bait station: %w", err)
	}
	return r.insertStationChemicals(ctx, q, s.ID, s.Chemicals)
}

// UpdateStation rewrites a station in place and replaces its chemical usages.
func (r *Repository) UpdateStation(ctx context.Context, q db.DBTX, s domain.BaitStation) error {
	result, err := q.Exec(ctx, `
		UPDATE bait_stations SET
			station_number = $3,
			location = $4,
			is_accessible = $5,
			inaccessible_reason = $6,
			activity_droppings = $7,
			activity_gnawing = $8,
			activity_tracks = $9,
			activity_other = $10,
			activity_other_description = $11,
			bait_status = $12,
			station_condition = $13,
			action_taken = $14,
			warning_sign_condition = $15,
			rodent_box_replaced = $16,
			station_remarks = $17,
			is_new_addition = $18,
			sort_order = $19,
			updated_at = $20
		WHERE id = $1 AND report_id = $2`,
		s.ID, s.ReportID, s.StationNumber, s.Location, s.IsAccessible, s.InaccessibleReason,
		s.ActivityDroppings, s.ActivityGnawing, s.ActivityTracks, s.ActivityOther, s.ActivityOtherDescription,
		s.BaitStatus, s.StationCondition, s.ActionTaken, s.WarningSignCondition, s.RodentBoxReplaced,
		s.StationRemarks, s.IsNewAddition, s.SortOrder, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bait station: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(stationNotFoundMsg)
	}

	if _, err := q.Exec(ctx, `DELETE FROM station_chemicals WHERE station_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear station chemicals: %w", err)
	}
	return r.insertStationChemicals(ctx, q, s.ID, s.Chemicals)
}

// DeleteStations removes the given stations from a report.
func (r *Repository) DeleteStations(ctx context.Context, q db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := q.Exec(ctx, `DELETE FROM bait_stations WHERE report_id = $1 AND id = ANY($2)`, reportID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bait stations: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteAllStations removes every station of a report.
func (r *Repository) DeleteAllStations(ctx context.Context, q db.DBTX, reportID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM bait_stations WHERE report_id = $1`, reportID); err != nil {
		return fmt.Errorf("failed to clear bait stations: %w", err)
	}
	return nil
}

// NextStationSortOrder returns the sort order for a station appended to the report.
func (r *Repository) NextStationSortOrder(ctx context.Context, q db.DBTX, reportID uuid.UUID) (int, error) {
	var next int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM bait_stations WHERE report_id = $1`, reportID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute station sort order: %w", err)
	}
	return next, nil
}

func (r *Repository) insertStationChemicals(ctx context.Context, q db.DBTX, stationID uuid.UUID, chemicals []domain.ChemicalUsage) error {
	for i, c := range chemicals {
		_, err := q.Exec(ctx, `
			INSERT INTO station_chemicals (id, station_id, chemical_id, quantity, batch_number, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, stationID, c.ChemicalID, c.Quantity, c.BatchNumber, i,
		)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Validation("unknown chemical_id")
			}
			return fmt.Errorf("failed to insert station chemical: %w", err)
		}
	}
	return nil
}
