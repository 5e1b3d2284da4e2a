// Package repository persists reports, their sub-entities and the client
// equipment baseline. Every method takes the db.DBTX to run against so the
// service can compose several writes into one transaction.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	reportNotFoundMsg = "report not found"
	clientNotFoundMsg = "client not found"

	reportColumns = `id, client_id, pco_id, report_type, service_date, next_service_date, status,
		pco_signature, client_signature, client_signature_name, general_remarks, recommendations,
		admin_notes, reviewed_by, reviewed_at, submitted_at, new_bait_stations_count,
		new_insect_monitors_count, created_at, updated_at, prior_stations_inside, prior_stations_outside,
		prior_monitors_light, prior_monitors_box`
)

// ErrStatusChanged is returned when a conditional write finds the report in
// a status outside the allowed set.
var ErrStatusChanged = errors.New("report status does not allow this change")

// Repository provides database operations for reports.
type Repository struct{}

// New creates a new reports repository.
func New() *Repository {
	return &Repository{}
}

// Client is the part of a client record the report workflow reads.
type Client struct {
	ID       uuid.UUID
	Name     string
	Baseline domain.Baseline
}

// StatusChange describes a conditional status transition.
type StatusChange struct {
	ID              uuid.UUID
	From            []domain.Status
	To              domain.Status
	ReviewedBy      *uuid.UUID
	ReviewedAt      *time.Time
	SubmittedAt     *time.Time
	AdminNotes      *string
	NextServiceDate *time.Time
	At              time.Time
}

// Counts summarises sub-entity cardinalities for submission validation.
type Counts struct {
	BaitStations    int
	FumigationAreas int
	TargetPests     int
	InsectMonitors  int
}

func scanReport(row pgx.Row) (domain.Report, error) {
	var r domain.Report
	var inside, outside, light, box *int
	err := row.Scan(
		&r.ID, &r.ClientID, &r.PcoID, &r.ReportType, &r.ServiceDate, &r.NextServiceDate, &r.Status,
		&r.PcoSignature, &r.ClientSignature, &r.ClientSignatureName, &r.GeneralRemarks, &r.Recommendations,
		&r.AdminNotes, &r.ReviewedBy, &r.ReviewedAt, &r.SubmittedAt, &r.NewBaitStationsCount,
		&r.NewInsectMonitorsCount, &r.CreatedAt, &r.UpdatedAt, &inside, &outside, &light, &box,
	)
	if err != nil {
		return r, err
	}
	if inside != nil && outside != nil && light != nil && box != nil {
		r.PriorBaseline = &domain.Baseline{
			StationsInside:  *inside,
			StationsOutside: *outside,
			MonitorsLight:   *light,
			MonitorsBox:     *box,
		}
	}
	return r, nil
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Insert creates a report row.
func (r *Repository) Insert(ctx context.Context, q db.DBTX, rep domain.Report) error {
	_, err := q.Exec(ctx, `
		INSERT INTO reports (
			id, client_id, pco_id, report_type, service_date, next_service_date, status,
			pco_signature, client_signature, client_signature_name, general_remarks, recommendations,
			admin_notes, submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rep.ID, rep.ClientID, rep.PcoID, rep.ReportType, rep.ServiceDate, rep.NextServiceDate, rep.Status,
		rep.PcoSignature, rep.ClientSignature, rep.ClientSignatureName, rep.GeneralRemarks, rep.Recommendations,
		rep.AdminNotes, rep.SubmittedAt, rep.CreatedAt, rep.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return duplicateReportError(db.ConstraintName(err))
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func duplicateReportError(constraint string) error {
	switch constraint {
	case "reports_one_open_per_client_pco":
		return apperr.Conflict("an open report already exists for this client")
	case "reports_one_per_client_service_date":
		return apperr.Conflict("a report already exists for this client on this service date")
	}
	return apperr.Conflict("duplicate report")
}

// Get retrieves a report by its ID.
func (r *Repository) Get(ctx context.Context, q db.DBTX, id uuid.UUID) (domain.Report, error) {
	rep, err := scanReport(q.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, apperr.NotFound(reportNotFoundMsg)
		}
		return domain.Report{}, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

// FindOpen returns the draft or pending report for a client and technician,
// or nil when there is none.
func (r *Repository) FindOpen(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (*domain.Report, error) {
	rep, err := scanReport(q.QueryRow(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE client_id = $1 AND pco_id = $2 AND status IN ('draft', 'pending')
		ORDER BY created_at DESC LIMIT 1`, clientID, pcoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open report: %w", err)
	}
	return &rep, nil
}

// FindOnServiceDate returns the non-archived report for a client on a date,
// or nil when there is none.
func (r *Repository) FindOnServiceDate(ctx context.Context, q db.DBTX, clientID uuid.UUID, serviceDate time.Time) (*domain.Report, error) {
	rep, err := scanReport(q.QueryRow(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE client_id = $1 AND service_date = $2 AND status <> 'archived'
		LIMIT 1`, clientID, serviceDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find report by service date: %w", err)
	}
	return &rep, nil
}

// UpdateContent writes the editable report fields while the report is still
// in one of the allowed statuses.
func (r *Repository) UpdateContent(ctx context.Context, q db.DBTX, rep domain.Report, allowed []domain.Status) error {
	result, err := q.Exec(ctx, `
		UPDATE reports SET
			report_type = $2,
			service_date = $3,
			next_service_date = $4,
			pco_signature = $5,
			client_signature = $6,
			client_signature_name = $7,
			general_remarks = $8,
			recommendations = $9,
			admin_notes = $10,
			updated_at = $11
		WHERE id = $1 AND status = ANY($12)`,
		rep.ID, rep.ReportType, rep.ServiceDate, rep.NextServiceDate, rep.PcoSignature, rep.ClientSignature,
		rep.ClientSignatureName, rep.GeneralRemarks, rep.Recommendations, rep.AdminNotes, rep.UpdatedAt,
		statusStrings(allowed),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return duplicateReportError(db.ConstraintName(err))
		}
		return fmt.Errorf("failed to update report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Transition moves a report to a new status if it is still in one of the
// From statuses. Nil review fields are left untouched.
func (r *Repository) Transition(ctx context.Context, q db.DBTX, change StatusChange) error {
	result, err := q.Exec(ctx, `
		UPDATE reports SET
			status = $2,
			reviewed_by = COALESCE($3, reviewed_by),
			reviewed_at = COALESCE($4, reviewed_at),
			submitted_at = COALESCE($5, submitted_at),
			admin_notes = COALESCE($6, admin_notes),
			next_service_date = COALESCE($7, next_service_date),
			updated_at = $8
		WHERE id = $1 AND status = ANY($9)`,
		change.ID, change.To, change.ReviewedBy, change.ReviewedAt, change.SubmittedAt, change.AdminNotes,
		change.NextServiceDate, change.At, statusStrings(change.From),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return duplicateReportError(db.ConstraintName(err))
		}
		return fmt.Errorf("failed to update report status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Touch bumps updated_at if the report is still in an allowed status. It is
// the status guard for sub-entity edits.
func (r *Repository) Touch(ctx context.Context, q db.DBTX, id uuid.UUID, allowed []domain.Status, at time.Time) error {
	result, err := q.Exec(ctx, `UPDATE reports SET updated_at = $2 WHERE id = $1 AND status = ANY($3)`,
		id, at, statusStrings(allowed))
	if err != nil {
		return fmt.Errorf("failed to touch report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// SetNewCounts stores the derived new-equipment aggregates.
func (r *Repository) SetNewCounts(ctx context.Context, q db.DBTX, id uuid.UUID, stations, monitors int) error {
	_, err := q.Exec(ctx, `
		UPDATE reports SET new_bait_stations_count = $2, new_insect_monitors_count = $3
		WHERE id = $1`, id, stations, monitors)
	if err != nil {
		return fmt.Errorf("failed to update new equipment counts: %w", err)
	}
	return nil
}

// Delete removes a report owned by pcoID if it is still in an allowed status.
// Sub-entities cascade.
func (r *Repository) Delete(ctx context.Context, q db.DBTX, id, pcoID uuid.UUID, allowed []domain.Status) error {
	result, err := q.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND pco_id = $2 AND status = ANY($3)`,
		id, pcoID, statusStrings(allowed))
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Counts returns how many stations, areas, pests and monitors a report has.
func (r *Repository) Counts(ctx context.Context, q db.DBTX, reportID uuid.UUID) (Counts, error) {
	var c Counts
	err := q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bait_stations WHERE report_id = $1),
			(SELECT COUNT(*) FROM fumigation_areas WHERE report_id = $1),
			(SELECT COUNT(*) FROM fumigation_target_pests WHERE report_id = $1),
			(SELECT COUNT(*) FROM insect_monitors WHERE report_id = $1)`, reportID,
	).Scan(&c.BaitStations, &c.FumigationAreas, &c.TargetPests, &c.InsectMonitors)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count report sub-entities: %w", err)
	}
	return c, nil
}

// GetClient loads a client's name and equipment baseline.
func (r *Repository) GetClient(ctx context.Context, q db.DBTX, id uuid.UUID) (Client, error) {
	c := Client{ID: id}
	err := q.QueryRow(ctx, `
		SELECT company_name, expected_bait_stations_inside, expected_bait_stations_outside,
			expected_insect_monitors_light, expected_insect_monitors_box
		FROM clients WHERE id = $1`, id,
	).Scan(&c.Name, &c.Baseline.StationsInside, &c.Baseline.StationsOutside,
		&c.Baseline.MonitorsLight, &c.Baseline.MonitorsBox)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, apperr.NotFound(clientNotFoundMsg)
		}
		return Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// SetPriorBaseline records the baseline a report is measured against. Only
// the first call for a report has any effect.
func (r *Repository) SetPriorBaseline(ctx context.Context, q db.DBTX, id uuid.UUID, b domain.Baseline) error {
	_, err := q.Exec(ctx, `
		UPDATE reports SET
			prior_stations_inside = $2,
			prior_stations_outside = $3,
			prior_monitors_light = $4,
			prior_monitors_box = $5
		WHERE id = $1 AND prior_stations_inside IS NULL`,
		id, b.StationsInside, b.StationsOutside, b.MonitorsLight, b.MonitorsBox,
	)
	if err != nil {
		return fmt.Errorf("failed to set report prior baseline: %w", err)
	}
	return nil
}

// UpdateBaseline overwrites the client's expected equipment counts.
func (r *Repository) UpdateBaseline(ctx context.Context, q db.DBTX, clientID uuid.UUID, b domain.Baseline) error {
	result, err := q.Exec(ctx, `
		UPDATE clients SET
			expected_bait_stations_inside = $2,
			expected_bait_stations_outside = $3,
			expected_insect_monitors_light = $4,
			expected_insect_monitors_box = $5,
			updated_at = now()
		WHERE id = $1`,
		clientID, b.StationsInside, b.StationsOutside, b.MonitorsLight, b.MonitorsBox,
	)
	if err != nil {
		return fmt.Errorf("failed to update client baseline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(clientNotFoundMsg)
	}
	return nil
}
