// Package reportstest provides an in-memory report store for service tests.
// It mirrors repository.Repository, including the status-conditional
// writes and the duplicate-report unique indexes.
package reportstest

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/repository"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"

	"github.com/google/uuid"
)

type entryRow struct {
	reportID  uuid.UUID
	entry     domain.FumigationEntry
	sortOrder int
}

type state struct {
	reports   map[uuid.UUID]domain.Report
	clients   map[uuid.UUID]repository.Client
	stations  map[uuid.UUID]domain.BaitStation
	monitors  map[uuid.UUID]domain.InsectMonitor
	entries   map[repository.EntryKind]map[uuid.UUID]entryRow
	chemicals map[uuid.UUID][]domain.ChemicalUsage
}

func (st state) clone() state {
	out := state{
		reports:   maps.Clone(st.reports),
		clients:   maps.Clone(st.clients),
		stations:  make(map[uuid.UUID]domain.BaitStation, len(st.stations)),
		monitors:  maps.Clone(st.monitors),
		entries:   make(map[repository.EntryKind]map[uuid.UUID]entryRow, len(st.entries)),
		chemicals: make(map[uuid.UUID][]domain.ChemicalUsage, len(st.chemicals)),
	}
	for id, s := range st.stations {
		s.Chemicals = slices.Clone(s.Chemicals)
		out.stations[id] = s
	}
	for kind, rows := range st.entries {
		out.entries[kind] = maps.Clone(rows)
	}
	for id, c := range st.chemicals {
		out.chemicals[id] = slices.Clone(c)
	}
	return out
}

// Store is an in-memory Store.
type Store struct {
	mu    sync.Mutex
	st    state
	fails map[string]error

	// MarkCalls counts MarkNew invocations.
	MarkCalls int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		st: state{
			reports:   make(map[uuid.UUID]domain.Report),
			clients:   make(map[uuid.UUID]repository.Client),
			stations:  make(map[uuid.UUID]domain.BaitStation),
			monitors:  make(map[uuid.UUID]domain.InsectMonitor),
			entries:   map[repository.EntryKind]map[uuid.UUID]entryRow{repository.EntryArea: {}, repository.EntryTargetPest: {}},
			chemicals: make(map[uuid.UUID][]domain.ChemicalUsage),
		},
		fails: make(map[string]error),
	}
}

// Snapshot implements dbtest.Snapshotter.
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	saved := s.st.clone()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.st = saved
		s.mu.Unlock()
	}
}

// FailOn makes the next call of the named method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[method] = err
}

func (s *Store) fail(method string) error {
	if err, ok := s.fails[method]; ok {
		delete(s.fails, method)
		return err
	}
	return nil
}

// SeedClient stores a client with the given baseline.
func (s *Store) SeedClient(name string, b domain.Baseline) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.clients[id] = repository.Client{ID: id, Name: name, Baseline: b}
	return id
}

// SeedReport stores a report as is.
func (s *Store) SeedReport(r domain.Report) domain.Report {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
		r.UpdatedAt = r.CreatedAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.reports[r.ID] = r
	return r
}

// SeedStation stores a station as is.
func (s *Store) SeedStation(st domain.BaitStation) domain.BaitStation {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stations[st.ID] = st
	return st
}

// Baseline returns the stored baseline of a client.
func (s *Store) Baseline(clientID uuid.UUID) domain.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clients[clientID].Baseline
}

// Report returns the stored report.
func (s *Store) Report(id uuid.UUID) domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.reports[id]
}

// ReportCount returns how many reports exist.
func (s *Store) ReportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.reports)
}

// =============================================================================
// Reports
// =============================================================================

func (s *Store) Insert(_ context.Context, _ db.DBTX, rep domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Insert"); err != nil {
		return err
	}
	if err := s.checkUnique(rep); err != nil {
		return err
	}
	s.st.reports[rep.ID] = rep
	return nil
}

func (s *Store) checkUnique(rep domain.Report) error {
	for _, other := range s.st.reports {
		if other.ID == rep.ID {
			continue
		}
		if rep.Status.IsOpen() && other.Status.IsOpen() && other.ClientID == rep.ClientID && other.PcoID == rep.PcoID {
			return apperr.Conflict("an open report already exists for this client")
		}
		if rep.Status != domain.StatusArchived && other.Status != domain.StatusArchived &&
			other.ClientID == rep.ClientID && other.ServiceDate.Equal(rep.ServiceDate) {
			return apperr.Conflict("a report already exists for this client on this service date")
		}
	}
	return nil
}

func (s *Store) Get(_ context.Context, _ db.DBTX, id uuid.UUID) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.st.reports[id]
	if !ok {
		return domain.Report{}, apperr.NotFound("report not found")
	}
	return rep, nil
}

func (s *Store) FindOpen(_ context.Context, _ db.DBTX, clientID, pcoID uuid.UUID) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.st.reports {
		if rep.ClientID == clientID && rep.PcoID == pcoID && rep.Status.IsOpen() {
			return &rep, nil
		}
	}
	return nil, nil
}

func (s *Store) FindOnServiceDate(_ context.Context, _ db.DBTX, clientID uuid.UUID, serviceDate time.Time) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.st.reports {
		if rep.ClientID == clientID && rep.ServiceDate.Equal(serviceDate) && rep.Status != domain.StatusArchived {
			return &rep, nil
		}
	}
	return nil, nil
}

func (s *Store) guarded(id uuid.UUID, allowed []domain.Status) (domain.Report, error) {
	rep, ok := s.st.reports[id]
	if !ok || !slices.Contains(allowed, rep.Status) {
		return domain.Report{}, repository.ErrStatusChanged
	}
	return rep, nil
}

func (s *Store) UpdateContent(_ context.Context, _ db.DBTX, rep domain.Report, allowed []domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateContent"); err != nil {
		return err
	}
	current, err := s.guarded(rep.ID, allowed)
	if err != nil {
		return err
	}
	current.ReportType = rep.ReportType
	current.ServiceDate = rep.ServiceDate
	current.NextServiceDate = rep.NextServiceDate
	current.PcoSignature = rep.PcoSignature
	current.ClientSignature = rep.ClientSignature
	current.ClientSignatureName = rep.ClientSignatureName
	current.GeneralRemarks = rep.GeneralRemarks
	current.Recommendations = rep.Recommendations
	current.AdminNotes = rep.AdminNotes
	current.UpdatedAt = rep.UpdatedAt
	if err := s.checkUnique(current); err != nil {
		return err
	}
	s.st.reports[rep.ID] = current
	return nil
}

func (s *Store) Transition(_ context.Context, _ db.DBTX, change repository.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Transition"); err != nil {
		return err
	}
	rep, err := s.guarded(change.ID, change.From)
	if err != nil {
		return err
	}
	rep.Status = change.To
	if change.ReviewedBy != nil {
		rep.ReviewedBy = change.ReviewedBy
	}
	if change.ReviewedAt != nil {
		rep.ReviewedAt = change.ReviewedAt
	}
	if change.SubmittedAt != nil {
		rep.SubmittedAt = change.SubmittedAt
	}
	if change.AdminNotes != nil {
		rep.AdminNotes = change.AdminNotes
	}
	if change.NextServiceDate != nil {
		rep.NextServiceDate = change.NextServiceDate
	}
	rep.UpdatedAt = change.At
	if err := s.checkUnique(rep); err != nil {
		return err
	}
	s.st.reports[rep.ID] = rep
	return nil
}

func (s *Store) Touch(_ context.Context, _ db.DBTX, id uuid.UUID, allowed []domain.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, err := s.guarded(id, allowed)
	if err != nil {
		return err
	}
	rep.UpdatedAt = at
	s.st.reports[id] = rep
	return nil
}

func (s *Store) SetNewCounts(_ context.Context, _ db.DBTX, id uuid.UUID, stations, monitors int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetNewCounts"); err != nil {
		return err
	}
	rep := s.st.reports[id]
	rep.NewBaitStationsCount = stations
	rep.NewInsectMonitorsCount = monitors
	s.st.reports[id] = rep
	return nil
}

func (s *Store) Delete(_ context.Context, _ db.DBTX, id, pcoID uuid.UUID, allowed []domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, err := s.guarded(id, allowed)
	if err != nil || rep.PcoID != pcoID {
		return repository.ErrStatusChanged
	}
	delete(s.st.reports, id)
	maps.DeleteFunc(s.st.stations, func(_ uuid.UUID, st domain.BaitStation) bool { return st.ReportID == id })
	maps.DeleteFunc(s.st.monitors, func(_ uuid.UUID, m domain.InsectMonitor) bool { return m.ReportID == id })
	for _, rows := range s.st.entries {
		maps.DeleteFunc(rows, func(_ uuid.UUID, e entryRow) bool { return e.reportID == id })
	}
	delete(s.st.chemicals, id)
	return nil
}

func (s *Store) Counts(_ context.Context, _ db.DBTX, reportID uuid.UUID) (repository.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c repository.Counts
	for _, st := range s.st.stations {
		if st.ReportID == reportID {
			c.BaitStations++
		}
	}
	for _, m := range s.st.monitors {
		if m.ReportID == reportID {
			c.InsectMonitors++
		}
	}
	for _, e := range s.st.entries[repository.EntryArea] {
		if e.reportID == reportID {
			c.FumigationAreas++
		}
	}
	for _, e := range s.st.entries[repository.EntryTargetPest] {
		if e.reportID == reportID {
			c.TargetPests++
		}
	}
	return c, nil
}

func (s *Store) GetClient(_ context.Context, _ db.DBTX, id uuid.UUID) (repository.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.clients[id]
	if !ok {
		return repository.Client{}, apperr.NotFound("client not found")
	}
	return c, nil
}

func (s *Store) SetPriorBaseline(_ context.Context, _ db.DBTX, id uuid.UUID, b domain.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetPriorBaseline"); err != nil {
		return err
	}
	rep, ok := s.st.reports[id]
	if !ok || rep.PriorBaseline != nil {
		return nil
	}
	rep.PriorBaseline = &b
	s.st.reports[id] = rep
	return nil
}

func (s *Store) UpdateBaseline(_ context.Context, _ db.DBTX, clientID uuid.UUID, b domain.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateBaseline"); err != nil {
		return err
	}
	c, ok := s.st.clients[clientID]
	if !ok {
		return apperr.NotFound("client not found")
	}
	c.Baseline = b
	s.st.clients[clientID] = c
	return nil
}

// =============================================================================
// Stations and monitors
// =============================================================================

func compareStations(a, b domain.BaitStation) int {
	return compareItems(a.SortOrder, b.SortOrder, a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func compareMonitors(a, b domain.InsectMonitor) int {
	return compareItems(a.SortOrder, b.SortOrder, a.CreatedAt, b.CreatedAt, a.ID, b.ID)
}

func compareItems(ao, bo int, at, bt time.Time, aid, bid uuid.UUID) int {
	if ao != bo {
		return ao - bo
	}
	if c := at.Compare(bt); c != 0 {
		return c
	}
	return strings.Compare(aid.String(), bid.String())
}

func (s *Store) ListStations(_ context.Context, _ db.DBTX, reportID uuid.UUID) ([]domain.BaitStation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BaitStation, 0)
	for _, st := range s.st.stations {
		if st.ReportID == reportID {
			st.Chemicals = slices.Clone(st.Chemicals)
			if st.Chemicals == nil {
				st.Chemicals = []domain.ChemicalUsage{}
			}
			out = append(out, st)
		}
	}
	slices.SortFunc(out, compareStations)
	return out, nil
}

func (s *Store) InsertStation(_ context.Context, _ db.DBTX, st domain.BaitStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertStation"); err != nil {
		return err
	}
	if _, ok := s.st.reports[st.ReportID]; !ok {
		return apperr.Validation("bait station references an unknown report")
	}
	st.Chemicals = slices.Clone(st.Chemicals)
	s.st.stations[st.ID] = st
	return nil
}

func (s *Store) UpdateStation(_ context.Context, _ db.DBTX, st domain.BaitStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.st.stations[st.ID]
	if !ok || current.ReportID != st.ReportID {
		return apperr.NotFound("bait station not found")
	}
	st.CreatedAt = current.CreatedAt
	st.Chemicals = slices.Clone(st.Chemicals)
	s.st.stations[st.ID] = st
	return nil
}

func (s *Store) DeleteStations(_ context.Context, _ db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if st, ok := s.st.stations[id]; ok && st.ReportID == reportID {
			delete(s.st.stations, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAllStations(_ context.Context, _ db.DBTX, reportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.st.stations, func(_ uuid.UUID, st domain.BaitStation) bool { return st.ReportID == reportID })
	return nil
}

func (s *Store) NextStationSortOrder(_ context.Context, _ db.DBTX, reportID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, st := range s.st.stations {
		if st.ReportID == reportID && st.SortOrder >= next {
			next = st.SortOrder + 1
		}
	}
	return next, nil
}

func (s *Store) ListMonitors(_ context.Context, _ db.DBTX, reportID uuid.UUID) ([]domain.InsectMonitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.InsectMonitor, 0)
	for _, m := range s.st.monitors {
		if m.ReportID == reportID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, compareMonitors)
	return out, nil
}

func (s *Store) InsertMonitor(_ context.Context, _ db.DBTX, m domain.InsectMonitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertMonitor"); err != nil {
		return err
	}
	if _, ok := s.st.reports[m.ReportID]; !ok {
		return apperr.Validation("insect monitor references an unknown report")
	}
	s.st.monitors[m.ID] = m
	return nil
}

func (s *Store) UpdateMonitor(_ context.Context, _ db.DBTX, m domain.InsectMonitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.st.monitors[m.ID]
	if !ok || current.ReportID != m.ReportID {
		return apperr.NotFound("insect monitor not found")
	}
	m.CreatedAt = current.CreatedAt
	s.st.monitors[m.ID] = m
	return nil
}

func (s *Store) DeleteMonitors(_ context.Context, _ db.DBTX, reportID uuid.UUID, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m, ok := s.st.monitors[id]; ok && m.ReportID == reportID {
			delete(s.st.monitors, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAllMonitors(_ context.Context, _ db.DBTX, reportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.st.monitors, func(_ uuid.UUID, m domain.InsectMonitor) bool { return m.ReportID == reportID })
	return nil
}

func (s *Store) NextMonitorSortOrder(_ context.Context, _ db.DBTX, reportID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	for _, m := range s.st.monitors {
		if m.ReportID == reportID && m.SortOrder >= next {
			next = m.SortOrder + 1
		}
	}
	return next, nil
}

// =============================================================================
// Fumigation
// =============================================================================

func (s *Store) listEntries(kind repository.EntryKind, reportID uuid.UUID) []domain.FumigationEntry {
	rows := make([]entryRow, 0)
	for _, e := range s.st.entries[kind] {
		if e.reportID == reportID {
			rows = append(rows, e)
		}
	}
	slices.SortFunc(rows, func(a, b entryRow) int {
		return compareItems(a.sortOrder, b.sortOrder, time.Time{}, time.Time{}, a.entry.ID, b.entry.ID)
	})
	out := make([]domain.FumigationEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry)
	}
	return out
}

func (s *Store) GetFumigation(_ context.Context, _ db.DBTX, reportID uuid.UUID) (domain.Fumigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chemicals := slices.Clone(s.st.chemicals[reportID])
	if chemicals == nil {
		chemicals = []domain.ChemicalUsage{}
	}
	return domain.Fumigation{
		Areas:       s.listEntries(repository.EntryArea, reportID),
		TargetPests: s.listEntries(repository.EntryTargetPest, reportID),
		Chemicals:   chemicals,
	}, nil
}

func (s *Store) ListEntries(_ context.Context, _ db.DBTX, kind repository.EntryKind, reportID uuid.UUID) ([]domain.FumigationEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listEntries(kind, reportID), nil
}

func (s *Store) InsertEntry(_ context.Context, _ db.DBTX, kind repository.EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.entries[kind][e.ID] = entryRow{reportID: reportID, entry: e, sortOrder: sortOrder}
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, _ db.DBTX, kind repository.EntryKind, reportID uuid.UUID, e domain.FumigationEntry, sortOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.st.entries[kind][e.ID]
	if !ok || current.reportID != reportID {
		return apperr.NotFound("fumigation entry not found")
	}
	s.st.entries[kind][e.ID] = entryRow{reportID: reportID, entry: e, sortOrder: sortOrder}
	return nil
}

func (s *Store) DeleteEntries(_ context.Context, _ db.DBTX, kind repository.EntryKind, reportID uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if e, ok := s.st.entries[kind][id]; ok && e.reportID == reportID {
			delete(s.st.entries[kind], id)
		}
	}
	return nil
}

func (s *Store) ReplaceFumigationChemicals(_ context.Context, _ db.DBTX, reportID uuid.UUID, chemicals []domain.ChemicalUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.chemicals[reportID] = slices.Clone(chemicals)
	return nil
}

func (s *Store) DeleteAllFumigation(_ context.Context, _ db.DBTX, reportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rows := range s.st.entries {
		maps.DeleteFunc(rows, func(_ uuid.UUID, e entryRow) bool { return e.reportID == reportID })
	}
	delete(s.st.chemicals, reportID)
	return nil
}

// =============================================================================
// Equipment
// =============================================================================

func (s *Store) equipment(reportID uuid.UUID, g domain.Group) []domain.EquipmentItem {
	var items []domain.EquipmentItem
	if g == domain.GroupBaitStations {
		stations := make([]domain.BaitStation, 0)
		for _, st := range s.st.stations {
			if st.ReportID == reportID {
				stations = append(stations, st)
			}
		}
		items = domain.StationItems(stations)
	} else {
		monitors := make([]domain.InsectMonitor, 0)
		for _, m := range s.st.monitors {
			if m.ReportID == reportID {
				monitors = append(monitors, m)
			}
		}
		items = domain.MonitorItems(monitors)
	}
	domain.SortEquipment(items)
	return items
}

func (s *Store) ListEquipment(_ context.Context, _ db.DBTX, reportID uuid.UUID, g domain.Group) ([]domain.EquipmentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment(reportID, g), nil
}

func (s *Store) HasNewAdditions(_ context.Context, _ db.DBTX, reportID uuid.UUID, g domain.Group) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.HasFlags(s.equipment(reportID, g)), nil
}

func (s *Store) MarkNew(_ context.Context, _ db.DBTX, reportID uuid.UUID, g domain.Group, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkNew"); err != nil {
		return err
	}
	s.MarkCalls++
	if g == domain.GroupBaitStations {
		for id, st := range s.st.stations {
			if st.ReportID == reportID {
				st.IsNewAddition = slices.Contains(ids, id)
				s.st.stations[id] = st
			}
		}
		return nil
	}
	for id, m := range s.st.monitors {
		if m.ReportID == reportID {
			m.IsNewAddition = slices.Contains(ids, id)
			s.st.monitors[id] = m
		}
	}
	return nil
}
