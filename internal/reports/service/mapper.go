package service

import (
	"time"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultBaitStatus       = "clean"
	defaultStationCondition = "good"
	defaultActionTaken      = "none"
	defaultWarningSign      = "good"
	defaultMonitorCondition = "good"
	defaultLightCondition   = "na"
	defaultLightFaultyType  = "na"

	msgNegativeQuantity = "chemical quantity must not be negative"
)

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func dateOrNil(d *transport.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// applyFields copies the full set of editable fields onto rep.
func applyFields(rep *domain.Report, f transport.ReportFields) error {
	if f.ServiceDate.IsZero() {
		return apperr.Validation(msgServiceDate)
	}
	rep.ReportType = domain.ReportType(f.ReportType)
	rep.ServiceDate = f.ServiceDate.Time
	rep.NextServiceDate = dateOrNil(f.NextServiceDate)
	rep.PcoSignature = f.PcoSignature
	rep.ClientSignature = f.ClientSignature
	rep.ClientSignatureName = sanitize.TextPtr(f.ClientSignatureName)
	rep.GeneralRemarks = sanitize.TextPtr(f.GeneralRemarks)
	rep.Recommendations = sanitize.TextPtr(f.Recommendations)
	return nil
}

// applyPatch copies the fields present in an edit onto rep.
func applyPatch(rep *domain.Report, req transport.UpdateReportRequest) error {
	if req.ReportType != nil {
		rep.ReportType = domain.ReportType(*req.ReportType)
	}
	if req.ServiceDate != nil {
		if req.ServiceDate.IsZero() {
			return apperr.Validation(msgServiceDate)
		}
		rep.ServiceDate = req.ServiceDate.Time
	}
	if req.NextServiceDate != nil {
		rep.NextServiceDate = dateOrNil(req.NextServiceDate)
	}
	if req.PcoSignature != nil {
		rep.PcoSignature = req.PcoSignature
	}
	if req.ClientSignature != nil {
		rep.ClientSignature = req.ClientSignature
	}
	if req.ClientSignatureName != nil {
		rep.ClientSignatureName = sanitize.TextPtr(req.ClientSignatureName)
	}
	if req.GeneralRemarks != nil {
		rep.GeneralRemarks = sanitize.TextPtr(req.GeneralRemarks)
	}
	if req.Recommendations != nil {
		rep.Recommendations = sanitize.TextPtr(req.Recommendations)
	}
	return nil
}

func toChemicals(in []transport.ChemicalUsageRequest) ([]domain.ChemicalUsage, error) {
	out := make([]domain.ChemicalUsage, 0, len(in))
	for _, c := range in {
		if c.Quantity.IsNegative() {
			return nil, apperr.Validation(msgNegativeQuantity)
		}
		out = append(out, domain.ChemicalUsage{
			ID:          uuid.New(),
			ChemicalID:  c.ChemicalID,
			Quantity:    c.Quantity,
			BatchNumber: sanitize.TextPtr(c.BatchNumber),
		})
	}
	return out, nil
}

// toStation builds a station from a request. The request carries no
// identity, position or new-addition flag decisions; callers set those.
func toStation(reportID uuid.UUID, req transport.BaitStationRequest, now time.Time) (domain.BaitStation, error) {
	chemicals, err := toChemicals(req.Chemicals)
	if err != nil {
		return domain.BaitStation{}, err
	}
	accessible := true
	if req.IsAccessible != nil {
		accessible = *req.IsAccessible
	}
	return domain.BaitStation{
		ReportID:                 reportID,
		StationNumber:            sanitize.Text(req.StationNumber),
		Location:                 domain.StationLocation(req.Location),
		IsAccessible:             accessible,
		InaccessibleReason:       sanitize.TextPtr(req.InaccessibleReason),
		ActivityDroppings:        req.ActivityDroppings,
		ActivityGnawing:          req.ActivityGnawing,
		ActivityTracks:           req.ActivityTracks,
		ActivityOther:            req.ActivityOther,
		ActivityOtherDescription: sanitize.TextPtr(req.ActivityOtherDescription),
		BaitStatus:               orDefault(req.BaitStatus, defaultBaitStatus),
		StationCondition:         orDefault(req.StationCondition, defaultStationCondition),
		ActionTaken:              orDefault(req.ActionTaken, defaultActionTaken),
		WarningSignCondition:     orDefault(req.WarningSignCondition, defaultWarningSign),
		RodentBoxReplaced:        req.RodentBoxReplaced,
		StationRemarks:           sanitize.TextPtr(req.StationRemarks),
		IsNewAddition:            req.IsNewAddition != nil && *req.IsNewAddition,
		Chemicals:                chemicals,
		CreatedAt:                now,
		UpdatedAt:                now,
	}, nil
}

func toMonitor(reportID uuid.UUID, req transport.InsectMonitorRequest, now time.Time) domain.InsectMonitor {
	return domain.InsectMonitor{
		ReportID:              reportID,
		MonitorNumber:         sanitize.Text(req.MonitorNumber),
		Location:              sanitize.TextPtr(req.Location),
		MonitorType:           domain.MonitorType(req.MonitorType),
		MonitorCondition:      orDefault(req.MonitorCondition, defaultMonitorCondition),
		MonitorConditionOther: sanitize.TextPtr(req.MonitorConditionOther),
		WarningSignCondition:  orDefault(req.WarningSignCondition, defaultWarningSign),
		LightCondition:        orDefault(req.LightCondition, defaultLightCondition),
		LightFaultyType:       orDefault(req.LightFaultyType, defaultLightFaultyType),
		LightFaultyOther:      sanitize.TextPtr(req.LightFaultyOther),
		GlueBoardReplaced:     req.GlueBoardReplaced,
		TubesReplaced:         req.TubesReplaced,
		MonitorServiced:       req.MonitorServiced,
		IsNewAddition:         req.IsNewAddition != nil && *req.IsNewAddition,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func toEntry(req transport.FumigationEntryRequest) domain.FumigationEntry {
	e := domain.FumigationEntry{
		Name:             sanitize.Text(req.Name),
		IsOther:          req.IsOther,
		OtherDescription: sanitize.TextPtr(req.OtherDescription),
	}
	if req.ID != nil {
		e.ID = *req.ID
	}
	return e
}

func toOverride(c transport.ExpectedCounts) domain.BaselineOverride {
	return domain.BaselineOverride{
		StationsInside:  c.BaitStationsInside,
		StationsOutside: c.BaitStationsOutside,
		MonitorsLight:   c.InsectMonitorsLight,
		MonitorsBox:     c.InsectMonitorsBox,
	}
}

func stationID(r transport.BaitStationRequest) *uuid.UUID { return r.ID }
func monitorID(r transport.InsectMonitorRequest) *uuid.UUID { return r.ID }
func entryID(r transport.FumigationEntryRequest) *uuid.UUID { return r.ID }

// =============================================================================
// Responses
// =============================================================================

func toChemicalResponses(in []domain.ChemicalUsage) []transport.ChemicalUsageResponse {
	out := make([]transport.ChemicalUsageResponse, 0, len(in))
	for _, c := range in {
		out = append(out, transport.ChemicalUsageResponse{
			ID:          c.ID,
			ChemicalID:  c.ChemicalID,
			Quantity:    c.Quantity,
			BatchNumber: c.BatchNumber,
		})
	}
	return out
}

func toStationResponse(s domain.BaitStation) transport.BaitStationResponse {
	return transport.BaitStationResponse{
		ID:                       s.ID,
		StationNumber:            s.StationNumber,
		Location:                 string(s.Location),
		IsAccessible:             s.IsAccessible,
		InaccessibleReason:       s.InaccessibleReason,
		ActivityDroppings:        s.ActivityDroppings,
		ActivityGnawing:          s.ActivityGnawing,
		ActivityTracks:           s.ActivityTracks,
		ActivityOther:            s.ActivityOther,
		ActivityOtherDescription: s.ActivityOtherDescription,
		BaitStatus:               s.BaitStatus,
		StationCondition:         s.StationCondition,
		ActionTaken:              s.ActionTaken,
		WarningSignCondition:     s.WarningSignCondition,
		RodentBoxReplaced:        s.RodentBoxReplaced,
		StationRemarks:           s.StationRemarks,
		IsNewAddition:            s.IsNewAddition,
		Chemicals:                toChemicalResponses(s.Chemicals),
	}
}

func toMonitorResponse(m domain.InsectMonitor) transport.InsectMonitorResponse {
	return transport.InsectMonitorResponse{
		ID:                    m.ID,
		MonitorNumber:         m.MonitorNumber,
		Location:              m.Location,
		MonitorType:           string(m.MonitorType),
		MonitorCondition:      m.MonitorCondition,
		MonitorConditionOther: m.MonitorConditionOther,
		WarningSignCondition:  m.WarningSignCondition,
		LightCondition:        m.LightCondition,
		LightFaultyType:       m.LightFaultyType,
		LightFaultyOther:      m.LightFaultyOther,
		GlueBoardReplaced:     m.GlueBoardReplaced,
		TubesReplaced:         m.TubesReplaced,
		MonitorServiced:       m.MonitorServiced,
		IsNewAddition:         m.IsNewAddition,
	}
}

func toEntryResponses(in []domain.FumigationEntry) []transport.FumigationEntryResponse {
	out := make([]transport.FumigationEntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, transport.FumigationEntryResponse{
			ID:               e.ID,
			Name:             e.Name,
			IsOther:          e.IsOther,
			OtherDescription: e.OtherDescription,
		})
	}
	return out
}

func toFumigationResponse(f domain.Fumigation) transport.FumigationResponse {
	return transport.FumigationResponse{
		Areas:       toEntryResponses(f.Areas),
		TargetPests: toEntryResponses(f.TargetPests),
		Chemicals:   toChemicalResponses(f.Chemicals),
	}
}

func toResponse(d domain.ReportDetail) *transport.ReportResponse {
	stations := make([]transport.BaitStationResponse, 0, len(d.BaitStations))
	for _, s := range d.BaitStations {
		stations = append(stations, toStationResponse(s))
	}
	monitors := make([]transport.InsectMonitorResponse, 0, len(d.InsectMonitors))
	for _, m := range d.InsectMonitors {
		monitors = append(monitors, toMonitorResponse(m))
	}

	return &transport.ReportResponse{
		ID:                     d.ID,
		ClientID:               d.ClientID,
		ClientName:             d.ClientName,
		PcoID:                  d.PcoID,
		ReportType:             string(d.ReportType),
		Status:                 string(d.Status),
		ServiceDate:            transport.NewDate(d.ServiceDate),
		NextServiceDate:        transport.DatePtr(d.NextServiceDate),
		PcoSignature:           d.PcoSignature,
		ClientSignature:        d.ClientSignature,
		ClientSignatureName:    d.ClientSignatureName,
		GeneralRemarks:         d.GeneralRemarks,
		Recommendations:        d.Recommendations,
		AdminNotes:             d.AdminNotes,
		ReviewedBy:             d.ReviewedBy,
		ReviewedAt:             d.ReviewedAt,
		SubmittedAt:            d.SubmittedAt,
		NewBaitStationsCount:   d.NewBaitStationsCount,
		NewInsectMonitorsCount: d.NewInsectMonitorsCount,
		BaitStations:           stations,
		Fumigation:             toFumigationResponse(d.Fumigation),
		InsectMonitors:         monitors,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}
