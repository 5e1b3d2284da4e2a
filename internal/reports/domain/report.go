package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StationLocation is where a bait station is installed.
type StationLocation string

const (
	LocationInside  StationLocation = "inside"
	LocationOutside StationLocation = "outside"
)

// MonitorType distinguishes light traps from box monitors.
type MonitorType string

const (
	MonitorTypeLight MonitorType = "light"
	MonitorTypeBox   MonitorType = "box"
)

// Report is a single service visit.
type Report struct {
	ID                     uuid.UUID
	ClientID               uuid.UUID
	PcoID                  uuid.UUID
	ReportType             ReportType
	ServiceDate            time.Time
	NextServiceDate        *time.Time
	Status                 Status
	PcoSignature           *string
	ClientSignature        *string
	ClientSignatureName    *string
	GeneralRemarks         *string
	Recommendations        *string
	AdminNotes             *string
	ReviewedBy             *uuid.UUID
	ReviewedAt             *time.Time
	SubmittedAt            *time.Time
	NewBaitStationsCount   int
	NewInsectMonitorsCount int
	// PriorBaseline is the client baseline captured on the report's first
	// reconciliation, before the report ratcheted it.
	PriorBaseline *Baseline
	CreatedAt     time.Time
	UpdatedAt              time.Time
}

// ChemicalUsage records a chemical applied at a station or during fumigation.
type ChemicalUsage struct {
	ID          uuid.UUID
	ChemicalID  uuid.UUID
	Quantity    decimal.Decimal
	BatchNumber *string
}

// BaitStation is one inspected rodent bait station.
type BaitStation struct {
	ID                       uuid.UUID
	ReportID                 uuid.UUID
	StationNumber            string
	Location                 StationLocation
	IsAccessible             bool
	InaccessibleReason       *string
	ActivityDroppings        bool
	ActivityGnawing          bool
	ActivityTracks           bool
	ActivityOther            bool
	ActivityOtherDescription *string
	BaitStatus               string
	StationCondition         string
	ActionTaken              string
	WarningSignCondition     string
	RodentBoxReplaced        bool
	StationRemarks           *string
	IsNewAddition            bool
	SortOrder                int
	Chemicals                []ChemicalUsage
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// InsectMonitor is one inspected flying-insect monitor.
type InsectMonitor struct {
	ID                    uuid.UUID
	ReportID              uuid.UUID
	MonitorNumber         string
	Location              *string
	MonitorType           MonitorType
	MonitorCondition      string
	MonitorConditionOther *string
	WarningSignCondition  string
	LightCondition        string
	LightFaultyType       string
	LightFaultyOther      *string
	GlueBoardReplaced     bool
	TubesReplaced         bool
	MonitorServiced       bool
	IsNewAddition         bool
	SortOrder             int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FumigationEntry is a treated area or a target pest. IsOther entries carry
// the free-text name in OtherDescription.
type FumigationEntry struct {
	ID               uuid.UUID
	Name             string
	IsOther          bool
	OtherDescription *string
}

// Fumigation groups the fumigation sub-entities of a report.
type Fumigation struct {
	Areas       []FumigationEntry
	TargetPests []FumigationEntry
	Chemicals   []ChemicalUsage
}

// IsEmpty reports whether nothing was recorded.
func (f Fumigation) IsEmpty() bool {
	return len(f.Areas) == 0 && len(f.TargetPests) == 0 && len(f.Chemicals) == 0
}

// ReportDetail is a report together with every sub-entity.
type ReportDetail struct {
	Report
	ClientName     string
	BaitStations   []BaitStation
	Fumigation     Fumigation
	InsectMonitors []InsectMonitor
}

// StationItems projects stations onto classification items.
func StationItems(stations []BaitStation) []EquipmentItem {
	items := make([]EquipmentItem, 0, len(stations))
	for _, s := range stations {
		items = append(items, EquipmentItem{
			ID:            s.ID,
			Category:      StationCategory(s.Location),
			SortOrder:     s.SortOrder,
			CreatedAt:     s.CreatedAt,
			IsNewAddition: s.IsNewAddition,
		})
	}
	return items
}

// MonitorItems projects monitors onto classification items.
func MonitorItems(monitors []InsectMonitor) []EquipmentItem {
	items := make([]EquipmentItem, 0, len(monitors))
	for _, m := range monitors {
		items = append(items, EquipmentItem{
			ID:            m.ID,
			Category:      MonitorCategory(m.MonitorType),
			SortOrder:     m.SortOrder,
			CreatedAt:     m.CreatedAt,
			IsNewAddition: m.IsNewAddition,
		})
	}
	return items
}
