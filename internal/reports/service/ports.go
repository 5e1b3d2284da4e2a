package service

import (
	"context"
	"time"

	assignmentsdomain "pestcontrol_backend/internal/assignments/domain"
	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

// Store is the report persistence the lifecycle runs on. It is implemented by
// repository.Repository; every method runs against the given DBTX.
type Store interface {
	Insert(ctx context.Context, q db.DBTX, rep domain.Report) error
	Get(ctx context.Context, q db.DBTX, id uuid.UUID) (domain.Report, error)
	FindOpen(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) (*domain.Report, error)
	FindOnServiceDate(ctx context.Context, q db.DBTX, clientID uuid.UUID, serviceDate time.Time) (*domain.Report, error)
	UpdateContent(ctx context.Context, q db.DBTX, rep domain.Report, allowed []domain.Status) error
	Transition(ctx context.Context, q db.DBTX, change repository.StatusChange) error
	Touch(ctx context.Context, q db.DBTX, id uuid.UUID, allowed []domain.Status, at time.Time) error
	SetNewCounts(ctx context.Context, q db.DBTX, id uuid.UUID, stations, monitors int) error
	SetPriorBaseline(ctx context.Context, q db.DBTX, id uuid.UUID, b domain.Baseline) error
	Delete(ctx context.Context, q db.DBTX, id, pcoID uuid.UUID, allowed []domain.Status) error
	Counts(ctx context.Context, q db.DBTX, reportID uuid.UUID) (repository.Counts, error)
	GetClient(ctx context.Context, q db.DBTX, id uuid.UUID) (repository.Client, error)
	UpdateBaseline(ctx context.Context, q db.DBTX, clientID uuid.UUID, b domain.Baseline) error

	ListStations(ctx context.Context, q db.DBTX, reportID uuid.UUID) ([]domain.BaitStation, error)
	InsertStation(ctx context.Context, q db.DBTX, s domain.BaitStation) error
	UpdateStation(ctx context.Context, q db.DBTX, s domain.BaitStation) error
	DeleteStations(ctx context.Context, q db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error)
	DeleteAllStations(ctx context.Context, q db.DBTX, reportID uuid.UUID) error
	NextStationSortOrder(ctx context.Context, q db.DBTX, reportID uuid.UUID) (int, error)

	ListMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID) ([]domain.InsectMonitor, error)
	InsertMonitor(ctx context.Context, q db.DBTX, m domain.InsectMonitor) error
	UpdateMonitor(ctx context.Context, q db.DBTX, m domain.InsectMonitor) error
	DeleteMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error)
	DeleteAllMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID) error
	NextMonitorSortOrder(ctx context.Context, q db.DBTX, reportID uuid.UUID) (int, error)

	GetFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID) (domain.Fumigation, error)
	ListEntries(ctx context.Context, q db.DBTX, kind repository.EntryKind, reportID uuid.UUID) ([]domain.FumigationEntry, error)
	InsertEntry(ctx context.Context, q db.DBTX, kind repository.EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error
	UpdateEntry(ctx context.Context, q db.DBTX, kind repository.EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error
	DeleteEntries(ctx context.Context, q db.DBTX, kind repository.EntryKind, reportID uuid.UUID, ids []uuid.UUID) error
	ReplaceFumigationChemicals(ctx context.Context, q db.DBTX, reportID uuid.UUID, chemicals []domain.ChemicalUsage) error
	DeleteAllFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID) error

	ListEquipment(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group) ([]domain.EquipmentItem, error)
	HasNewAdditions(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group) (bool, error)
	MarkNew(ctx context.Context, q db.DBTX, reportID uuid.UUID, g domain.Group, ids []uuid.UUID) error
}

// Assignments applies technician assignment side effects on the caller's
// transaction. Implemented by the assignments module's Manager.
type Assignments interface {
	RequireActive(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error
	ActivePco(ctx context.Context, q db.DBTX, clientID uuid.UUID) (*uuid.UUID, error)
	OnSubmit(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error
	OnDecline(ctx context.Context, q db.DBTX, clientID, originalPcoID, reviewerID uuid.UUID) (assignmentsdomain.DeclineOutcome, error)
	OnForceDecline(ctx context.Context, q db.DBTX, clientID, originalPcoID, reviewerID uuid.UUID) (assignmentsdomain.Assignment, error)
	OnClose(ctx context.Context, q db.DBTX, clientID, pcoID uuid.UUID) error
}

var _ Store = (*repository.Repository)(nil)
