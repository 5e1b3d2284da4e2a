package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Sub-entity payloads
// =============================================================================

// ChemicalUsageRequest is a chemical applied at a station or during fumigation.
type ChemicalUsageRequest struct {
	ChemicalID  uuid.UUID       `json:"chemical_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	BatchNumber *string         `json:"batch_number,omitempty" validate:"omitempty,max=100"`
}

// BaitStationRequest describes one inspected bait station. ID is set when
// editing an existing station in an update payload.
type BaitStationRequest struct {
	ID                       *uuid.UUID             `json:"id,omitempty"`
	StationNumber            string                 `json:"station_number" validate:"required,max=50"`
	Location                 string                 `json:"location" validate:"required,oneof=inside outside"`
	IsAccessible             *bool                  `json:"is_accessible,omitempty"`
	InaccessibleReason       *string                `json:"inaccessible_reason,omitempty" validate:"omitempty,max=500"`
	ActivityDroppings        bool                   `json:"activity_droppings"`
	ActivityGnawing          bool                   `json:"activity_gnawing"`
	ActivityTracks           bool                   `json:"activity_tracks"`
	ActivityOther            bool                   `json:"activity_other"`
	ActivityOtherDescription *string                `json:"activity_other_description,omitempty" validate:"omitempty,max=500"`
	BaitStatus               string                 `json:"bait_status" validate:"omitempty,oneof=clean eaten wet old"`
	StationCondition         string                 `json:"station_condition" validate:"omitempty,oneof=good needs_repair damaged missing"`
	ActionTaken              string                 `json:"action_taken" validate:"omitempty,oneof=none repaired replaced"`
	WarningSignCondition     string                 `json:"warning_sign_condition" validate:"omitempty,oneof=good replaced repaired remounted"`
	RodentBoxReplaced        bool                   `json:"rodent_box_replaced"`
	StationRemarks           *string                `json:"station_remarks,omitempty" validate:"omitempty,max=2000"`
	IsNewAddition            *bool                  `json:"is_new_addition,omitempty"`
	Chemicals                []ChemicalUsageRequest `json:"chemicals" validate:"omitempty,dive"`
}

// InsectMonitorRequest describes one inspected insect monitor.
type InsectMonitorRequest struct {
	ID                    *uuid.UUID `json:"id,omitempty"`
	MonitorNumber         string     `json:"monitor_number" validate:"required,max=50"`
	Location              *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	MonitorType           string     `json:"monitor_type" validate:"required,oneof=light box"`
	MonitorCondition      string     `json:"monitor_condition" validate:"omitempty,oneof=good replaced repaired other"`
	MonitorConditionOther *string    `json:"monitor_condition_other,omitempty" validate:"omitempty,max=500"`
	WarningSignCondition  string     `json:"warning_sign_condition" validate:"omitempty,oneof=good replaced repaired remounted"`
	LightCondition        string     `json:"light_condition" validate:"omitempty,oneof=good faulty na"`
	LightFaultyType       string     `json:"light_faulty_type" validate:"omitempty,oneof=starter tube cable electricity other na"`
	LightFaultyOther      *string    `json:"light_faulty_other,omitempty" validate:"omitempty,max=500"`
	GlueBoardReplaced     bool       `json:"glue_board_replaced"`
	TubesReplaced         bool       `json:"tubes_replaced"`
	MonitorServiced       bool       `json:"monitor_serviced"`
	IsNewAddition         *bool      `json:"is_new_addition,omitempty"`
}

// FumigationEntryRequest is a treated area or a target pest.
type FumigationEntryRequest struct {
	ID               *uuid.UUID `json:"id,omitempty"`
	Name             string     `json:"name" validate:"required,max=200"`
	IsOther          bool       `json:"is_other"`
	OtherDescription *string    `json:"other_description,omitempty" validate:"omitempty,max=500"`
}

// FumigationRequest carries every fumigation sub-entity of a report.
type FumigationRequest struct {
	Areas       []FumigationEntryRequest `json:"areas" validate:"omitempty,dive"`
	TargetPests []FumigationEntryRequest `json:"target_pests" validate:"omitempty,dive"`
	Chemicals   []ChemicalUsageRequest   `json:"chemicals" validate:"omitempty,dive"`
}

// ExpectedCounts overrides the client's equipment baseline for a single
// reconciliation. Omitted fields use the stored baseline.
type ExpectedCounts struct {
	BaitStationsInside  *int `json:"expected_bait_stations_inside,omitempty" validate:"omitempty,min=0"`
	BaitStationsOutside *int `json:"expected_bait_stations_outside,omitempty" validate:"omitempty,min=0"`
	InsectMonitorsLight *int `json:"expected_insect_monitors_light,omitempty" validate:"omitempty,min=0"`
	InsectMonitorsBox   *int `json:"expected_insect_monitors_box,omitempty" validate:"omitempty,min=0"`
}

// =============================================================================
// Report requests
// =============================================================================

// ReportFields are the editable top-level fields shared by create and
// full-content requests.
type ReportFields struct {
	ReportType          string  `json:"report_type" validate:"required,oneof=bait_inspection fumigation both"`
	ServiceDate         Date    `json:"service_date"`
	NextServiceDate     *Date   `json:"next_service_date,omitempty"`
	PcoSignature        *string `json:"pco_signature,omitempty"`
	ClientSignature     *string `json:"client_signature,omitempty"`
	ClientSignatureName *string `json:"client_signature_name,omitempty" validate:"omitempty,max=200"`
	GeneralRemarks      *string `json:"general_remarks,omitempty" validate:"omitempty,max=5000"`
	Recommendations     *string `json:"recommendations,omitempty" validate:"omitempty,max=5000"`
}

// CreateReportRequest is the request body for opening a draft report.
type CreateReportRequest struct {
	ClientID uuid.UUID `json:"client_id" validate:"required"`
	ReportFields
}

// UpdateReportRequest is the request body for a technician edit. Nil fields
// are left unchanged; a present sub-entity list is diffed against storage.
type UpdateReportRequest struct {
	ReportType          *string                 `json:"report_type,omitempty" validate:"omitempty,oneof=bait_inspection fumigation both"`
	ServiceDate         *Date                   `json:"service_date,omitempty"`
	NextServiceDate     *Date                   `json:"next_service_date,omitempty"`
	PcoSignature        *string                 `json:"pco_signature,omitempty"`
	ClientSignature     *string                 `json:"client_signature,omitempty"`
	ClientSignatureName *string                 `json:"client_signature_name,omitempty" validate:"omitempty,max=200"`
	GeneralRemarks      *string                 `json:"general_remarks,omitempty" validate:"omitempty,max=5000"`
	Recommendations     *string                 `json:"recommendations,omitempty" validate:"omitempty,max=5000"`
	BaitStations        *[]BaitStationRequest   `json:"bait_stations,omitempty" validate:"omitempty,dive"`
	InsectMonitors      *[]InsectMonitorRequest `json:"insect_monitors,omitempty" validate:"omitempty,dive"`
	Fumigation          *FumigationRequest      `json:"fumigation,omitempty"`
}

// AdminUpdateReportRequest is an administrative edit. It diffs sub-entities
// like UpdateReportRequest and may also correct admin notes and override the
// expected equipment counts to force re-classification.
type AdminUpdateReportRequest struct {
	UpdateReportRequest
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=5000"`
	ExpectedCounts
}

// CompleteReportRequest creates a report already submitted for review,
// together with all of its sub-entities.
type CompleteReportRequest struct {
	ClientID uuid.UUID `json:"client_id" validate:"required"`
	ReportFields
	BaitStations   []BaitStationRequest   `json:"bait_stations" validate:"omitempty,dive"`
	InsectMonitors []InsectMonitorRequest `json:"insect_monitors" validate:"omitempty,dive"`
	Fumigation     FumigationRequest      `json:"fumigation"`
	ExpectedCounts
}

// ResubmitReportRequest replaces the full content of a declined report and
// puts it back into review.
type ResubmitReportRequest struct {
	ReportFields
	BaitStations   []BaitStationRequest   `json:"bait_stations" validate:"omitempty,dive"`
	InsectMonitors []InsectMonitorRequest `json:"insect_monitors" validate:"omitempty,dive"`
	Fumigation     FumigationRequest      `json:"fumigation"`
	ExpectedCounts
}

// ApproveReportRequest is the request body for approving a report.
type ApproveReportRequest struct {
	AdminNotes      *string `json:"admin_notes,omitempty" validate:"omitempty,max=5000"`
	NextServiceDate *Date   `json:"next_service_date,omitempty"`
}

// DeclineReportRequest is the request body for declining a report. The
// minimum note length is enforced by the service.
type DeclineReportRequest struct {
	AdminNotes string `json:"admin_notes" validate:"required,max=5000"`
}

// =============================================================================
// Responses
// =============================================================================

// ChemicalUsageResponse is a stored chemical usage.
type ChemicalUsageResponse struct {
	ID          uuid.UUID       `json:"id"`
	ChemicalID  uuid.UUID       `json:"chemical_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	BatchNumber *string         `json:"batch_number,omitempty"`
}

// BaitStationResponse is a stored bait station.
type BaitStationResponse struct {
	ID                       uuid.UUID               `json:"id"`
	StationNumber            string                  `json:"station_number"`
	Location                 string                  `json:"location"`
	IsAccessible             bool                    `json:"is_accessible"`
	InaccessibleReason       *string                 `json:"inaccessible_reason,omitempty"`
	ActivityDroppings        bool                    `json:"activity_droppings"`
	ActivityGnawing          bool                    `json:"activity_gnawing"`
	ActivityTracks           bool                    `json:"activity_tracks"`
	ActivityOther            bool                    `json:"activity_other"`
	ActivityOtherDescription *string                 `json:"activity_other_description,omitempty"`
	BaitStatus               string                  `json:"bait_status"`
	StationCondition         string                  `json:"station_condition"`
	ActionTaken              string                  `json:"action_taken"`
	WarningSignCondition     string                  `json:"warning_sign_condition"`
	RodentBoxReplaced        bool                    `json:"rodent_box_replaced"`
	StationRemarks           *string                 `json:"station_remarks,omitempty"`
	IsNewAddition            bool                    `json:"is_new_addition"`
	Chemicals                []ChemicalUsageResponse `json:"chemicals"`
}

// InsectMonitorResponse is a stored insect monitor.
type InsectMonitorResponse struct {
	ID                    uuid.UUID `json:"id"`
	MonitorNumber         string    `json:"monitor_number"`
	Location              *string   `json:"location,omitempty"`
	MonitorType           string    `json:"monitor_type"`
	MonitorCondition      string    `json:"monitor_condition"`
	MonitorConditionOther *string   `json:"monitor_condition_other,omitempty"`
	WarningSignCondition  string    `json:"warning_sign_condition"`
	LightCondition        string    `json:"light_condition"`
	LightFaultyType       string    `json:"light_faulty_type"`
	LightFaultyOther      *string   `json:"light_faulty_other,omitempty"`
	GlueBoardReplaced     bool      `json:"glue_board_replaced"`
	TubesReplaced         bool      `json:"tubes_replaced"`
	MonitorServiced       bool      `json:"monitor_serviced"`
	IsNewAddition         bool      `json:"is_new_addition"`
}

// FumigationEntryResponse is a stored area or target pest.
type FumigationEntryResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	IsOther          bool      `json:"is_other"`
	OtherDescription *string   `json:"other_description,omitempty"`
}

// FumigationResponse groups the stored fumigation sub-entities.
type FumigationResponse struct {
	Areas       []FumigationEntryResponse `json:"areas"`
	TargetPests []FumigationEntryResponse `json:"target_pests"`
	Chemicals   []ChemicalUsageResponse   `json:"chemicals"`
}

// ReportResponse is a report with all of its sub-entities.
type ReportResponse struct {
	ID                     uuid.UUID               `json:"id"`
	ClientID               uuid.UUID               `json:"client_id"`
	ClientName             string                  `json:"client_name,omitempty"`
	PcoID                  uuid.UUID               `json:"pco_id"`
	ReportType             string                  `json:"report_type"`
	Status                 string                  `json:"status"`
	ServiceDate            Date                    `json:"service_date"`
	NextServiceDate        *Date                   `json:"next_service_date,omitempty"`
	PcoSignature           *string                 `json:"pco_signature,omitempty"`
	ClientSignature        *string                 `json:"client_signature,omitempty"`
	ClientSignatureName    *string                 `json:"client_signature_name,omitempty"`
	GeneralRemarks         *string                 `json:"general_remarks,omitempty"`
	Recommendations        *string                 `json:"recommendations,omitempty"`
	AdminNotes             *string                 `json:"admin_notes,omitempty"`
	ReviewedBy             *uuid.UUID              `json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time              `json:"reviewed_at,omitempty"`
	SubmittedAt            *time.Time              `json:"submitted_at,omitempty"`
	NewBaitStationsCount   int                     `json:"new_bait_stations_count"`
	NewInsectMonitorsCount int                     `json:"new_insect_monitors_count"`
	BaitStations           []BaitStationResponse   `json:"bait_stations"`
	Fumigation             FumigationResponse      `json:"fumigation"`
	InsectMonitors         []InsectMonitorResponse `json:"insect_monitors"`
	CreatedAt              time.Time               `json:"created_at"`
	UpdatedAt              time.Time               `json:"updated_at"`
}

// SubmissionIncompleteDetails lists what blocks a submission.
type SubmissionIncompleteDetails struct {
	Missing []string `json:"missing"`
}

// AssignmentConflictDetails is returned when declining would silently take a
// client away from the technician it is now assigned to.
type AssignmentConflictDetails struct {
	CurrentPcoID         uuid.UUID `json:"current_pco_id"`
	OriginalPcoID        uuid.UUID `json:"original_pco_id"`
	RequiresReassignment bool      `json:"requires_reassignment"`
}

// DuplicateReportDetails points an offline client at the report that already
// covers its upload.
type DuplicateReportDetails struct {
	ExistingReportID uuid.UUID `json:"existing_report_id"`
	Status           string    `json:"status"`
}
