package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

const (
	msgStationNotFound = "bait station not found"
	msgMonitorNotFound = "insect monitor not found"
)

// positioned keeps an incoming item's index so diffed rows get the order
// the caller sent them in.
type positioned[T any] struct {
	pos int
	req T
}

func withPositions[T any](in []T) []positioned[T] {
	out := make([]positioned[T], len(in))
	for i, item := range in {
		out[i] = positioned[T]{pos: i, req: item}
	}
	return out
}

func planDiff[T any](existing []uuid.UUID, incoming []T, idOf func(T) *uuid.UUID, what string) (domain.DiffPlan[positioned[T]], error) {
	plan, err := domain.PlanDiff(existing, withPositions(incoming), func(p positioned[T]) *uuid.UUID { return idOf(p.req) })
	if err != nil {
		if errors.Is(err, domain.ErrUnknownID) {
			return plan, apperr.Validation(what + " does not belong to this report")
		}
		return plan, apperr.Validation(what + ": " + err.Error())
	}
	return plan, nil
}

// =============================================================================
// Full replace
// =============================================================================

func (s *Service) replaceStations(ctx context.Context, q db.DBTX, reportID uuid.UUID, reqs []transport.BaitStationRequest, now time.Time) error {
	if err := s.store.DeleteAllStations(ctx, q, reportID); err != nil {
		return err
	}
	for i, req := range reqs {
		station, err := toStation(reportID, req, now)
		if err != nil {
			return err
		}
		station.ID = uuid.New()
		station.SortOrder = i
		if err := s.store.InsertStation(ctx, q, station); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) replaceMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID, reqs []transport.InsectMonitorRequest, now time.Time) error {
	if err := s.store.DeleteAllMonitors(ctx, q, reportID); err != nil {
		return err
	}
	for i, req := range reqs {
		monitor := toMonitor(reportID, req, now)
		monitor.ID = uuid.New()
		monitor.SortOrder = i
		if err := s.store.InsertMonitor(ctx, q, monitor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) replaceFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID, req transport.FumigationRequest) error {
	chemicals, err := toChemicals(req.Chemicals)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAllFumigation(ctx, q, reportID); err != nil {
		return err
	}
	for _, group := range []struct {
		kind    repository.EntryKind
		entries []transport.FumigationEntryRequest
	}{
		{repository.EntryArea, req.Areas},
		{repository.EntryTargetPest, req.TargetPests},
	} {
		for i, in := range group.entries {
			entry := toEntry(in)
			entry.ID = uuid.New()
			if err := s.store.InsertEntry(ctx, q, group.kind, reportID, entry, i); err != nil {
				return err
			}
		}
	}
	return s.store.ReplaceFumigationChemicals(ctx, q, reportID, chemicals)
}

// =============================================================================
// Diff against storage
// =============================================================================

// diffStations makes the stored stations match reqs: items with a known id
// are updated in place (keeping their new-addition flag unless the request
// sets one), items without an id are inserted and the rest are deleted.
// Chemical usages of every kept station are replaced.
func (s *Service) diffStations(ctx context.Context, q db.DBTX, reportID uuid.UUID, reqs []transport.BaitStationRequest, now time.Time) error {
	stored, err := s.store.ListStations(ctx, q, reportID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]domain.BaitStation, len(stored))
	ids := make([]uuid.UUID, 0, len(stored))
	for _, st := range stored {
		byID[st.ID] = st
		ids = append(ids, st.ID)
	}

	plan, err := planDiff(ids, reqs, stationID, "bait station")
	if err != nil {
		return err
	}

	if _, err := s.store.DeleteStations(ctx, q, reportID, plan.Delete); err != nil {
		return err
	}
	for _, item := range plan.Update {
		current := byID[*item.req.ID]
		station, err := toStation(reportID, item.req, now)
		if err != nil {
			return err
		}
		station.ID = current.ID
		station.SortOrder = item.pos
		station.CreatedAt = current.CreatedAt
		if item.req.IsNewAddition == nil {
			station.IsNewAddition = current.IsNewAddition
		}
		if err := s.store.UpdateStation(ctx, q, station); err != nil {
			return err
		}
	}
	for _, item := range plan.Insert {
		station, err := toStation(reportID, item.req, now)
		if err != nil {
			return err
		}
		station.ID = uuid.New()
		station.SortOrder = item.pos
		if err := s.store.InsertStation(ctx, q, station); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) diffMonitors(ctx context.Context, q db.DBTX, reportID uuid.UUID, reqs []transport.InsectMonitorRequest, now time.Time) error {
	stored, err := s.store.ListMonitors(ctx, q, reportID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]domain.InsectMonitor, len(stored))
	ids := make([]uuid.UUID, 0, len(stored))
	for _, m := range stored {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	plan, err := planDiff(ids, reqs, monitorID, "insect monitor")
	if err != nil {
		return err
	}

	if _, err := s.store.DeleteMonitors(ctx, q, reportID, plan.Delete); err != nil {
		return err
	}
	for _, item := range plan.Update {
		current := byID[*item.req.ID]
		monitor := toMonitor(reportID, item.req, now)
		monitor.ID = current.ID
		monitor.SortOrder = item.pos
		monitor.CreatedAt = current.CreatedAt
		if item.req.IsNewAddition == nil {
			monitor.IsNewAddition = current.IsNewAddition
		}
		if err := s.store.UpdateMonitor(ctx, q, monitor); err != nil {
			return err
		}
	}
	for _, item := range plan.Insert {
		monitor := toMonitor(reportID, item.req, now)
		monitor.ID = uuid.New()
		monitor.SortOrder = item.pos
		if err := s.store.InsertMonitor(ctx, q, monitor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) diffEntries(ctx context.Context, q db.DBTX, kind repository.EntryKind, reportID uuid.UUID, reqs []transport.FumigationEntryRequest) error {
	stored, err := s.store.ListEntries(ctx, q, kind, reportID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(stored))
	for _, e := range stored {
		ids = append(ids, e.ID)
	}

	plan, err := planDiff(ids, reqs, entryID, "fumigation entry")
	if err != nil {
		return err
	}

	if err := s.store.DeleteEntries(ctx, q, kind, reportID, plan.Delete); err != nil {
		return err
	}
	for _, item := range plan.Update {
		if err := s.store.UpdateEntry(ctx, q, kind, reportID, toEntry(item.req), item.pos); err != nil {
			return err
		}
	}
	for _, item := range plan.Insert {
		entry := toEntry(item.req)
		entry.ID = uuid.New()
		if err := s.store.InsertEntry(ctx, q, kind, reportID, entry, item.pos); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) diffFumigation(ctx context.Context, q db.DBTX, reportID uuid.UUID, req transport.FumigationRequest) error {
	chemicals, err := toChemicals(req.Chemicals)
	if err != nil {
		return err
	}
	if err := s.diffEntries(ctx, q, repository.EntryArea, reportID, req.Areas); err != nil {
		return err
	}
	if err := s.diffEntries(ctx, q, repository.EntryTargetPest, reportID, req.TargetPests); err != nil {
		return err
	}
	return s.store.ReplaceFumigationChemicals(ctx, q, reportID, chemicals)
}

// applyDiffs runs diff mode for every collection present in the edit.
func (s *Service) applyDiffs(ctx context.Context, q db.DBTX, reportID uuid.UUID, req transport.UpdateReportRequest, now time.Time) error {
	if req.BaitStations != nil {
		if err := s.diffStations(ctx, q, reportID, *req.BaitStations, now); err != nil {
			return err
		}
	}
	if req.InsectMonitors != nil {
		if err := s.diffMonitors(ctx, q, reportID, *req.InsectMonitors, now); err != nil {
			return err
		}
	}
	if req.Fumigation != nil {
		if err := s.diffFumigation(ctx, q, reportID, *req.Fumigation); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Single sub-entity operations
// =============================================================================

// editableStatuses is where the actor may still change a report's content.
func editableStatuses(actor Actor) []domain.Status {
	if actor.IsAdmin {
		return domain.AllowedFrom(domain.ActionAdminEdit)
	}
	return domain.AllowedFrom(domain.ActionUpdate)
}

// withEditable runs fn in a unit of work after re-checking, with a write,
// that the report is still editable. The report's new-addition counts are
// recomputed before the unit of work commits.
func (s *Service) withEditable(ctx context.Context, actor Actor, reportID uuid.UUID, fn func(ctx context.Context, q db.DBTX, now time.Time) error) error {
	rep, err := s.loadOwned(ctx, s.pool, actor, reportID)
	if err != nil {
		return err
	}
	allowed := editableStatuses(actor)
	if !slices.Contains(allowed, rep.Status) {
		return apperr.Forbidden(msgStatusForbidden)
	}

	now := s.now()
	return s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.store.Touch(ctx, q, reportID, allowed, now); err != nil {
			return statusErr(err)
		}
		if err := fn(ctx, q, now); err != nil {
			return err
		}
		return s.refreshCounts(ctx, q, reportID)
	})
}

// AddStation appends a bait station to an editable report.
func (s *Service) AddStation(ctx context.Context, actor Actor, reportID uuid.UUID, req transport.BaitStationRequest) (*transport.BaitStationResponse, error) {
	var out domain.BaitStation
	err := s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, now time.Time) error {
		station, err := toStation(reportID, req, now)
		if err != nil {
			return err
		}
		order, err := s.store.NextStationSortOrder(ctx, q, reportID)
		if err != nil {
			return err
		}
		station.ID = uuid.New()
		station.SortOrder = order
		if err := s.store.InsertStation(ctx, q, station); err != nil {
			return err
		}
		out = station
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toStationResponse(out)
	return &resp, nil
}

// UpdateStation rewrites one bait station of an editable report.
func (s *Service) UpdateStation(ctx context.Context, actor Actor, reportID, stationID uuid.UUID, req transport.BaitStationRequest) (*transport.BaitStationResponse, error) {
	var out domain.BaitStation
	err := s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, now time.Time) error {
		stored, err := s.store.ListStations(ctx, q, reportID)
		if err != nil {
			return err
		}
		current, ok := findStation(stored, stationID)
		if !ok {
			return apperr.NotFound(msgStationNotFound)
		}
		station, err := toStation(reportID, req, now)
		if err != nil {
			return err
		}
		station.ID = current.ID
		station.SortOrder = current.SortOrder
		station.CreatedAt = current.CreatedAt
		if req.IsNewAddition == nil {
			station.IsNewAddition = current.IsNewAddition
		}
		if err := s.store.UpdateStation(ctx, q, station); err != nil {
			return err
		}
		out = station
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toStationResponse(out)
	return &resp, nil
}

// DeleteStation removes one bait station from an editable report.
func (s *Service) DeleteStation(ctx context.Context, actor Actor, reportID, stationID uuid.UUID) error {
	return s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, _ time.Time) error {
		n, err := s.store.DeleteStations(ctx, q, reportID, []uuid.UUID{stationID})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound(msgStationNotFound)
		}
		return nil
	})
}

// AddMonitor appends an insect monitor to an editable report.
func (s *Service) AddMonitor(ctx context.Context, actor Actor, reportID uuid.UUID, req transport.InsectMonitorRequest) (*transport.InsectMonitorResponse, error) {
	var out domain.InsectMonitor
	err := s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, now time.Time) error {
		order, err := s.store.NextMonitorSortOrder(ctx, q, reportID)
		if err != nil {
			return err
		}
		monitor := toMonitor(reportID, req, now)
		monitor.ID = uuid.New()
		monitor.SortOrder = order
		if err := s.store.InsertMonitor(ctx, q, monitor); err != nil {
			return err
		}
		out = monitor
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toMonitorResponse(out)
	return &resp, nil
}

// UpdateMonitor rewrites one insect monitor of an editable report.
func (s *Service) UpdateMonitor(ctx context.Context, actor Actor, reportID, monitorID uuid.UUID, req transport.InsectMonitorRequest) (*transport.InsectMonitorResponse, error) {
	var out domain.InsectMonitor
	err := s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, now time.Time) error {
		stored, err := s.store.ListMonitors(ctx, q, reportID)
		if err != nil {
			return err
		}
		current, ok := findMonitor(stored, monitorID)
		if !ok {
			return apperr.NotFound(msgMonitorNotFound)
		}
		monitor := toMonitor(reportID, req, now)
		monitor.ID = current.ID
		monitor.SortOrder = current.SortOrder
		monitor.CreatedAt = current.CreatedAt
		if req.IsNewAddition == nil {
			monitor.IsNewAddition = current.IsNewAddition
		}
		if err := s.store.UpdateMonitor(ctx, q, monitor); err != nil {
			return err
		}
		out = monitor
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toMonitorResponse(out)
	return &resp, nil
}

// DeleteMonitor removes one insect monitor from an editable report.
func (s *Service) DeleteMonitor(ctx context.Context, actor Actor, reportID, monitorID uuid.UUID) error {
	return s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, _ time.Time) error {
		n, err := s.store.DeleteMonitors(ctx, q, reportID, []uuid.UUID{monitorID})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound(msgMonitorNotFound)
		}
		return nil
	})
}

// ReplaceFumigation swaps every fumigation sub-entity of an editable report.
func (s *Service) ReplaceFumigation(ctx context.Context, actor Actor, reportID uuid.UUID, req transport.FumigationRequest) (*transport.FumigationResponse, error) {
	var out domain.Fumigation
	err := s.withEditable(ctx, actor, reportID, func(ctx context.Context, q db.DBTX, _ time.Time) error {
		if err := s.replaceFumigation(ctx, q, reportID, req); err != nil {
			return err
		}
		f, err := s.store.GetFumigation(ctx, q, reportID)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toFumigationResponse(out)
	return &resp, nil
}

func findStation(stations []domain.BaitStation, id uuid.UUID) (domain.BaitStation, bool) {
	for _, st := range stations {
		if st.ID == id {
			return st, true
		}
	}
	return domain.BaitStation{}, false
}

func findMonitor(monitors []domain.InsectMonitor, id uuid.UUID) (domain.InsectMonitor, bool) {
	for _, m := range monitors {
		if m.ID == id {
			return m, true
		}
	}
	return domain.InsectMonitor{}, false
}
