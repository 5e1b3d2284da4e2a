package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pestcontrol_backend/internal/assignments/assignmentstest"
	assignmentsdomain "pestcontrol_backend/internal/assignments/domain"
	assignmentsservice "pestcontrol_backend/internal/assignments/service"
	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/reportstest"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/internal/scheduler"
	"pestcontrol_backend/platform/apperr"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/db/dbtest"
	"pestcontrol_backend/platform/locker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var _ Store = (*reportstest.Store)(nil)

type reportConfig struct{}

func (reportConfig) GetDeclineMinNotes() int                   { return 10 }
func (reportConfig) GetSubmitLockTTL() time.Duration           { return 30 * time.Second }
func (reportConfig) GetServiceReminderLeadTime() time.Duration { return 24 * time.Hour }

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type scheduledReminder struct {
	payload scheduler.NextServiceReminderPayload
	runAt   time.Time
}

type fakeReminders struct {
	scheduled []scheduledReminder
}

func (f *fakeReminders) ScheduleNextServiceReminder(_ context.Context, p scheduler.NextServiceReminderPayload, runAt time.Time) error {
	f.scheduled = append(f.scheduled, scheduledReminder{payload: p, runAt: runAt})
	return nil
}

type fixture struct {
	svc       *Service
	store     *reportstest.Store
	assign    *assignmentstest.Store
	manager   *assignmentsservice.Manager
	tx        *dbtest.Transactor
	bus       *recordingBus
	reminders *fakeReminders
	locks     *locker.LocalLocker

	clientID   uuid.UUID
	assignment assignmentsdomain.Assignment
	pco        Actor
	admin      Actor
}

func newFixture(t *testing.T, baseline domain.Baseline) *fixture {
	t.Helper()
	store := reportstest.NewStore()
	assign := assignmentstest.NewStore()
	tx := dbtest.NewTransactor(store, assign)
	manager := assignmentsservice.New(assign, tx, nil, nil)

	f := &fixture{
		store:     store,
		assign:    assign,
		manager:   manager,
		tx:        tx,
		bus:       &recordingBus{},
		reminders: &fakeReminders{},
		locks:     locker.NewLocalLocker(),
		pco:       Actor{UserID: uuid.New()},
		admin:     Actor{UserID: uuid.New(), IsAdmin: true},
	}
	f.svc = New(Deps{
		Store:       store,
		Tx:          tx,
		Assignments: manager,
		Bus:         f.bus,
		Reminders:   f.reminders,
		Locker:      f.locks,
		Config:      reportConfig{},
	})
	clock := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	f.clientID = store.SeedClient("Acme Foods", baseline)
	f.assignment = assign.Seed(assignmentsdomain.Assignment{ClientID: f.clientID, PcoID: f.pco.UserID, Status: assignmentsdomain.StatusActive})
	return f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

var serviceDay = transport.NewDate(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC))

func signedFields(reportType domain.ReportType) transport.ReportFields {
	return transport.ReportFields{
		ReportType:          string(reportType),
		ServiceDate:         serviceDay,
		PcoSignature:        strPtr("data:image/png;base64,pco"),
		ClientSignature:     strPtr("data:image/png;base64,client"),
		ClientSignatureName: strPtr("J. Smit"),
	}
}

func station(number string, loc domain.StationLocation) transport.BaitStationRequest {
	return transport.BaitStationRequest{StationNumber: number, Location: string(loc)}
}

func stations(inside, outside int) []transport.BaitStationRequest {
	out := make([]transport.BaitStationRequest, 0, inside+outside)
	for i := range inside {
		out = append(out, station("I"+string(rune('1'+i)), domain.LocationInside))
	}
	for i := range outside {
		out = append(out, station("O"+string(rune('1'+i)), domain.LocationOutside))
	}
	return out
}

func (f *fixture) complete(t *testing.T, req transport.CompleteReportRequest) *transport.ReportResponse {
	t.Helper()
	req.ClientID = f.clientID
	if req.ReportType == "" {
		req.ReportFields = signedFields(domain.ReportTypeBaitInspection)
	}
	resp, err := f.svc.Complete(context.Background(), f.pco, req)
	require.NoError(t, err)
	return resp
}

func flagsByLocation(resp *transport.ReportResponse) map[string][]bool {
	out := make(map[string][]bool)
	for _, st := range resp.BaitStations {
		out[st.Location] = append(out[st.Location], st.IsNewAddition)
	}
	return out
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}

func TestCompleteMarksStationsBeyondBaseline(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2, StationsOutside: 1})

	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 2)})

	require.Equal(t, string(domain.StatusPending), resp.Status)
	require.Equal(t, map[string][]bool{
		"inside":  {false, false, true},
		"outside": {false, true},
	}, flagsByLocation(resp))
	require.Equal(t, 2, resp.NewBaitStationsCount)
	require.Equal(t, 0, resp.NewInsectMonitorsCount)
	require.Equal(t, domain.Baseline{StationsInside: 3, StationsOutside: 2}, f.store.Baseline(f.clientID))

	require.Equal(t, 0, f.assign.ActiveCount(f.clientID), "submitting releases the technician")
	require.Equal(t, []string{"reports.report.submitted"}, f.bus.names())
	submitted := f.bus.events[0].(events.ReportSubmitted)
	require.Equal(t, 2, submitted.NewBaitStations)
	require.Equal(t, "Acme Foods", submitted.ClientName)
}

func TestCompleteWithoutBaselineMarksEverything(t *testing.T) {
	f := newFixture(t, domain.Baseline{})

	resp := f.complete(t, transport.CompleteReportRequest{
		BaitStations: stations(2, 1),
		InsectMonitors: []transport.InsectMonitorRequest{
			{MonitorNumber: "M1", MonitorType: "light"},
			{MonitorNumber: "M2", MonitorType: "box"},
		},
	})

	for _, st := range resp.BaitStations {
		require.True(t, st.IsNewAddition, st.StationNumber)
	}
	for _, m := range resp.InsectMonitors {
		require.True(t, m.IsNewAddition, m.MonitorNumber)
	}
	require.Equal(t, 3, resp.NewBaitStationsCount)
	require.Equal(t, 2, resp.NewInsectMonitorsCount)
	require.Equal(t, domain.Baseline{StationsInside: 2, StationsOutside: 1, MonitorsLight: 1, MonitorsBox: 1}, f.store.Baseline(f.clientID))
}

func TestReconcileTwiceDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2, StationsOutside: 1})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 2)})
	marks := f.store.MarkCalls
	before := flagsByLocation(resp)

	var second Reconciliation
	err := f.tx.WithinTx(context.Background(), func(ctx context.Context, q db.DBTX) error {
		var err error
		second, err = f.svc.reconcile(ctx, q, f.store.Report(resp.ID), ReconcileOptions{})
		return err
	})
	require.NoError(t, err)

	require.Equal(t, marks, f.store.MarkCalls, "marked groups are not marked again")
	require.Equal(t, 2, second.NewBaitStations)
	require.False(t, second.BaselineChanged)
	require.Equal(t, 2, f.store.Report(resp.ID).NewBaitStationsCount)

	again, err := f.svc.Get(context.Background(), f.admin, resp.ID)
	require.NoError(t, err)
	require.Equal(t, before, flagsByLocation(again))
}

func TestCompleteKeepsClientSideMarkings(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	in := stations(3, 0)
	in[1].IsNewAddition = boolPtr(true)

	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: in})

	require.Equal(t, map[string][]bool{"inside": {false, true, false}}, flagsByLocation(resp))
	require.Equal(t, 1, resp.NewBaitStationsCount)
	require.Zero(t, f.store.MarkCalls)
	require.Equal(t, domain.Baseline{StationsInside: 3}, f.store.Baseline(f.clientID))
}

func TestDeclineRejectsShortNotesBeforeWriting(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})
	commits := f.tx.Commits

	_, err := f.svc.Decline(context.Background(), f.admin, resp.ID, transport.DeclineReportRequest{AdminNotes: "   too short  "}, false)
	requireKind(t, err, apperr.KindValidation)

	require.Equal(t, commits, f.tx.Commits)
	require.Zero(t, f.tx.Rollbacks)
	require.Equal(t, domain.StatusPending, f.store.Report(resp.ID).Status)
}

func TestDeclineByTechnicianIsForbiddenWhateverTheNotes(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})

	for _, force := range []bool{false, true} {
		_, err := f.svc.Decline(context.Background(), f.pco, resp.ID, transport.DeclineReportRequest{AdminNotes: "short"}, force)
		requireKind(t, err, apperr.KindForbidden)
	}
	require.Equal(t, domain.StatusPending, f.store.Report(resp.ID).Status)
}

func TestDeclineReactivatesOriginalAssignment(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})
	require.Equal(t, 0, f.assign.ActiveCount(f.clientID))

	declined, err := f.svc.Decline(context.Background(), f.admin, resp.ID, transport.DeclineReportRequest{
		AdminNotes: "Station I1 photo missing, please redo",
	}, false)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDeclined), declined.Status)
	require.Equal(t, &f.admin.UserID, declined.ReviewedBy)

	rows := f.assign.Rows(f.clientID)
	require.Len(t, rows, 1)
	require.Equal(t, f.assignment.ID, rows[0].ID, "the existing row is reactivated, not replaced")
	require.True(t, rows[0].IsActive())
	require.Contains(t, f.bus.names(), "reports.report.declined")
}

func TestDeclineConflictsWhenClientWasReassigned(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})

	t2 := uuid.New()
	_, err := f.manager.Assign(context.Background(), f.clientID, t2, f.admin.UserID)
	require.NoError(t, err)
	rollbacks := f.tx.Rollbacks

	_, err = f.svc.Decline(context.Background(), f.admin, resp.ID, transport.DeclineReportRequest{
		AdminNotes: "Fumigation area list is incomplete",
	}, false)
	appErr := requireKind(t, err, apperr.KindConflict)
	require.Equal(t, transport.AssignmentConflictDetails{
		CurrentPcoID:         t2,
		OriginalPcoID:        f.pco.UserID,
		RequiresReassignment: true,
	}, appErr.Details)

	require.Equal(t, rollbacks+1, f.tx.Rollbacks)
	require.Equal(t, domain.StatusPending, f.store.Report(resp.ID).Status, "status change is rolled back")
	active, err := f.manager.ActivePco(context.Background(), nil, f.clientID)
	require.NoError(t, err)
	require.Equal(t, t2, *active)
	require.NotContains(t, f.bus.names(), "reports.report.declined")
}

func TestForceDeclineReplacesOtherAssignment(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})
	_, err := f.manager.Assign(context.Background(), f.clientID, uuid.New(), f.admin.UserID)
	require.NoError(t, err)

	_, err = f.svc.Decline(context.Background(), f.admin, resp.ID, transport.DeclineReportRequest{
		AdminNotes: "Wrong client signature, redo visit",
	}, true)
	require.NoError(t, err)

	rows := f.assign.Rows(f.clientID)
	require.Len(t, rows, 1)
	require.Equal(t, f.pco.UserID, rows[0].PcoID)
	require.True(t, rows[0].IsActive())
	declined := f.bus.events[len(f.bus.events)-1].(events.ReportDeclined)
	require.True(t, declined.Forced)
}

func TestApprovedAndArchivedReportsAreNotEditable(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})

	next := transport.NewDate(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	approved, err := f.svc.Approve(ctx, f.admin, resp.ID, transport.ApproveReportRequest{NextServiceDate: &next})
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusApproved), approved.Status)
	require.Empty(t, f.assign.Rows(f.clientID), "approval ends the assignment")

	require.Len(t, f.reminders.scheduled, 1)
	require.Equal(t, "2026-06-01", f.reminders.scheduled[0].payload.NextServiceDate)
	require.Equal(t, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), f.reminders.scheduled[0].runAt)

	_, err = f.svc.Update(ctx, f.pco, resp.ID, transport.UpdateReportRequest{GeneralRemarks: strPtr("late edit")})
	requireKind(t, err, apperr.KindForbidden)
	_, err = f.svc.AddStation(ctx, f.pco, resp.ID, station("I9", domain.LocationInside))
	requireKind(t, err, apperr.KindForbidden)
	_, err = f.svc.AdminEdit(ctx, f.admin, resp.ID, transport.AdminUpdateReportRequest{})
	requireKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Decline(ctx, f.admin, resp.ID, transport.DeclineReportRequest{AdminNotes: "reopen this report please"}, true)
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.svc.Archive(ctx, f.admin, resp.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.pco, resp.ID)
	requireKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Archive(ctx, f.admin, resp.ID)
	requireKind(t, err, apperr.KindForbidden)
	require.Equal(t, domain.StatusArchived, f.store.Report(resp.ID).Status)
}

func TestDraftRoundTripThenSubmit(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 1})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.pco, transport.CreateReportRequest{ClientID: f.clientID, ReportFields: signedFields(domain.ReportTypeBaitInspection)})
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDraft), created.Status)

	chemical := uuid.New()
	first := transport.BaitStationRequest{
		StationNumber:     "1",
		Location:          "inside",
		ActivityDroppings: true,
		BaitStatus:        "eaten",
		StationRemarks:    strPtr("near loading bay"),
		Chemicals: []transport.ChemicalUsageRequest{
			{ChemicalID: chemical, Quantity: decimal.RequireFromString("12.5"), BatchNumber: strPtr("B-77")},
		},
	}
	second := transport.BaitStationRequest{
		StationNumber:      "2",
		Location:           "inside",
		IsAccessible:       boolPtr(false),
		InaccessibleReason: strPtr("blocked by pallets"),
	}
	a, err := f.svc.AddStation(ctx, f.pco, created.ID, first)
	require.NoError(t, err)
	b, err := f.svc.AddStation(ctx, f.pco, created.ID, second)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.pco, created.ID)
	require.NoError(t, err)
	require.Equal(t, []transport.BaitStationResponse{*a, *b}, got.BaitStations)
	require.Equal(t, "eaten", got.BaitStations[0].BaitStatus)
	require.Equal(t, "good", got.BaitStations[1].StationCondition)
	require.False(t, got.BaitStations[1].IsAccessible)
	require.True(t, got.BaitStations[0].Chemicals[0].Quantity.Equal(decimal.RequireFromString("12.5")))
	require.False(t, got.BaitStations[0].IsNewAddition)
	require.False(t, got.BaitStations[1].IsNewAddition)

	submitted, err := f.svc.Submit(ctx, f.pco, created.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPending), submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.False(t, submitted.BaitStations[0].IsNewAddition)
	require.True(t, submitted.BaitStations[1].IsNewAddition)
	require.Equal(t, 1, submitted.NewBaitStationsCount)
	require.Equal(t, []string{"reports.report.created", "reports.report.submitted"}, f.bus.names())
}

func TestSubEntityEditsOnDraft(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.pco, transport.CreateReportRequest{ClientID: f.clientID, ReportFields: signedFields(domain.ReportTypeBoth)})
	require.NoError(t, err)

	st, err := f.svc.AddStation(ctx, f.pco, created.ID, station("1", domain.LocationInside))
	require.NoError(t, err)
	renamed, err := f.svc.UpdateStation(ctx, f.pco, created.ID, st.ID, station("1A", domain.LocationInside))
	require.NoError(t, err)
	require.Equal(t, st.ID, renamed.ID)
	require.Equal(t, "1A", renamed.StationNumber)

	mon, err := f.svc.AddMonitor(ctx, f.pco, created.ID, transport.InsectMonitorRequest{MonitorNumber: "M1", MonitorType: "light"})
	require.NoError(t, err)
	require.Equal(t, "na", mon.LightCondition)
	serviced, err := f.svc.UpdateMonitor(ctx, f.pco, created.ID, mon.ID, transport.InsectMonitorRequest{MonitorNumber: "M1", MonitorType: "light", MonitorServiced: true})
	require.NoError(t, err)
	require.Equal(t, mon.ID, serviced.ID)
	require.True(t, serviced.MonitorServiced)

	_, err = f.svc.UpdateMonitor(ctx, f.pco, created.ID, uuid.New(), transport.InsectMonitorRequest{MonitorNumber: "M2", MonitorType: "box"})
	requireKind(t, err, apperr.KindNotFound)

	fum, err := f.svc.ReplaceFumigation(ctx, f.pco, created.ID, transport.FumigationRequest{
		Areas:       []transport.FumigationEntryRequest{{Name: "Kitchen"}},
		TargetPests: []transport.FumigationEntryRequest{{Name: "Cockroaches"}},
		Chemicals:   []transport.ChemicalUsageRequest{{ChemicalID: uuid.New(), Quantity: decimal.RequireFromString("2")}},
	})
	require.NoError(t, err)
	require.Len(t, fum.Areas, 1)
	require.Len(t, fum.Chemicals, 1)

	fum, err = f.svc.ReplaceFumigation(ctx, f.pco, created.ID, transport.FumigationRequest{
		Areas:       []transport.FumigationEntryRequest{{Name: "Store room"}},
		TargetPests: []transport.FumigationEntryRequest{{Name: "Ants"}},
	})
	require.NoError(t, err)
	require.Len(t, fum.Areas, 1)
	require.Equal(t, "Store room", fum.Areas[0].Name)
	require.Empty(t, fum.Chemicals)

	requireKind(t, f.svc.DeleteStation(ctx, f.pco, created.ID, uuid.New()), apperr.KindNotFound)
	require.NoError(t, f.svc.DeleteStation(ctx, f.pco, created.ID, st.ID))
	require.NoError(t, f.svc.DeleteMonitor(ctx, f.pco, created.ID, mon.ID))

	other := Actor{UserID: uuid.New()}
	_, err = f.svc.AddStation(ctx, other, created.ID, station("2", domain.LocationOutside))
	requireKind(t, err, apperr.KindForbidden)

	got, err := f.svc.Get(ctx, f.pco, created.ID)
	require.NoError(t, err)
	require.Empty(t, got.BaitStations)
	require.Empty(t, got.InsectMonitors)
	require.Equal(t, "Ants", got.Fumigation.TargetPests[0].Name)
}

func TestSubmitListsEveryMissingRequirement(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.pco, transport.CreateReportRequest{
		ClientID:     f.clientID,
		ReportFields: transport.ReportFields{ReportType: string(domain.ReportTypeBoth), ServiceDate: serviceDay},
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.pco, created.ID)
	appErr := requireKind(t, err, apperr.KindValidation)
	details := appErr.Details.(transport.SubmissionIncompleteDetails)
	require.Len(t, details.Missing, 6)
	require.Equal(t, domain.StatusDraft, f.store.Report(created.ID).Status)
	require.Equal(t, 1, f.assign.ActiveCount(f.clientID))
}

func TestCreateRequiresAssignmentAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	req := transport.CreateReportRequest{ClientID: f.clientID, ReportFields: signedFields(domain.ReportTypeBaitInspection)}

	_, err := f.svc.Create(ctx, Actor{UserID: uuid.New()}, req)
	requireKind(t, err, apperr.KindForbidden)

	first, err := f.svc.Create(ctx, f.pco, req)
	require.NoError(t, err)

	req.ServiceDate = transport.NewDate(serviceDay.AddDate(0, 0, 1))
	_, err = f.svc.Create(ctx, f.pco, req)
	appErr := requireKind(t, err, apperr.KindConflict)
	require.Equal(t, first.ID, appErr.Details.(transport.DuplicateReportDetails).ExistingReportID)
	require.Equal(t, 1, f.store.ReportCount())
}

func TestCompleteConflictsWhileUploadIsLocked(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	key := "reports:complete:" + f.clientID.String() + ":" + f.pco.UserID.String() + ":2026-05-04"
	lock, err := f.locks.Obtain(context.Background(), key, time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), f.pco, transport.CompleteReportRequest{
		ClientID:     f.clientID,
		ReportFields: signedFields(domain.ReportTypeBaitInspection),
		BaitStations: stations(1, 0),
	})
	requireKind(t, err, apperr.KindConflict)
	require.Zero(t, f.store.ReportCount())

	require.NoError(t, lock.Release(context.Background()))
	f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})

	// A second upload of the same visit points at the stored report.
	f.assign.Seed(assignmentsdomain.Assignment{ClientID: f.clientID, PcoID: f.pco.UserID, Status: assignmentsdomain.StatusActive})
	_, err = f.svc.Complete(context.Background(), f.pco, transport.CompleteReportRequest{
		ClientID:     f.clientID,
		ReportFields: signedFields(domain.ReportTypeBaitInspection),
		BaitStations: stations(1, 0),
	})
	appErr := requireKind(t, err, apperr.KindConflict)
	require.Equal(t, string(domain.StatusPending), appErr.Details.(transport.DuplicateReportDetails).Status)
}

func TestCompleteRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 1})
	f.store.FailOn("UpdateBaseline", errors.New("connection reset"))

	_, err := f.svc.Complete(context.Background(), f.pco, transport.CompleteReportRequest{
		ClientID:     f.clientID,
		ReportFields: signedFields(domain.ReportTypeBaitInspection),
		BaitStations: stations(3, 0),
	})
	require.Error(t, err)

	require.Equal(t, 1, f.tx.Rollbacks)
	require.Zero(t, f.store.ReportCount())
	require.Equal(t, domain.Baseline{StationsInside: 1}, f.store.Baseline(f.clientID))
	require.Equal(t, 1, f.assign.ActiveCount(f.clientID))
	require.Empty(t, f.bus.names())
}

func TestAdminEditDiffsStations(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 0)})
	keep, drop, flagged := resp.BaitStations[0], resp.BaitStations[1], resp.BaitStations[2]
	require.True(t, flagged.IsNewAddition)

	edited := station("I1-renamed", domain.LocationInside)
	edited.ID = &keep.ID
	flaggedReq := station(flagged.StationNumber, domain.LocationInside)
	flaggedReq.ID = &flagged.ID
	list := []transport.BaitStationRequest{edited, flaggedReq, station("I4", domain.LocationInside)}

	out, err := f.svc.AdminEdit(ctx, f.admin, resp.ID, transport.AdminUpdateReportRequest{
		UpdateReportRequest: transport.UpdateReportRequest{BaitStations: &list},
		AdminNotes:          strPtr("renumbered on site"),
	})
	require.NoError(t, err)

	require.Len(t, out.BaitStations, 3)
	require.Equal(t, keep.ID, out.BaitStations[0].ID)
	require.Equal(t, "I1-renamed", out.BaitStations[0].StationNumber)
	require.Equal(t, flagged.ID, out.BaitStations[1].ID)
	require.True(t, out.BaitStations[1].IsNewAddition, "flag survives an edit that does not set it")
	require.NotEqual(t, drop.ID, out.BaitStations[2].ID)
	require.False(t, out.BaitStations[2].IsNewAddition)
	require.Equal(t, 1, out.NewBaitStationsCount)
	require.Equal(t, "renumbered on site", *out.AdminNotes)
}

func TestAdminEditOverrideForcesReclassification(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 0)})
	require.Equal(t, 1, resp.NewBaitStationsCount)

	out, err := f.svc.AdminEdit(ctx, f.admin, resp.ID, transport.AdminUpdateReportRequest{
		ExpectedCounts: transport.ExpectedCounts{BaitStationsInside: intPtr(0)},
	})
	require.NoError(t, err)
	require.Equal(t, 3, out.NewBaitStationsCount)
	for _, st := range out.BaitStations {
		require.True(t, st.IsNewAddition)
	}
}

func TestAdminEditRollsBackOnForeignStationID(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})

	foreign := uuid.New()
	bad := station("X", domain.LocationInside)
	bad.ID = &foreign
	list := []transport.BaitStationRequest{bad}

	_, err := f.svc.AdminEdit(ctx, f.admin, resp.ID, transport.AdminUpdateReportRequest{
		UpdateReportRequest: transport.UpdateReportRequest{
			GeneralRemarks: strPtr("should not stick"),
			BaitStations:   &list,
		},
	})
	requireKind(t, err, apperr.KindValidation)

	got, err := f.svc.Get(ctx, f.admin, resp.ID)
	require.NoError(t, err)
	require.Nil(t, got.GeneralRemarks)
	require.Len(t, got.BaitStations, 1)
	require.Equal(t, resp.BaitStations[0].ID, got.BaitStations[0].ID)
}

func TestResubmitReplacesContent(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(2, 0)})
	_, err := f.svc.Decline(ctx, f.admin, resp.ID, transport.DeclineReportRequest{AdminNotes: "stations were miscounted"}, false)
	require.NoError(t, err)

	out, err := f.svc.Resubmit(ctx, f.admin, resp.ID, transport.ResubmitReportRequest{
		ReportFields:   signedFields(domain.ReportTypeBaitInspection),
		BaitStations:   stations(3, 0),
		ExpectedCounts: transport.ExpectedCounts{BaitStationsInside: intPtr(2)},
	})
	require.NoError(t, err)

	require.Equal(t, string(domain.StatusPending), out.Status)
	require.Len(t, out.BaitStations, 3)
	for _, st := range out.BaitStations {
		require.NotEqual(t, resp.BaitStations[0].ID, st.ID)
	}
	require.Equal(t, 1, out.NewBaitStationsCount)
	require.Equal(t, domain.Baseline{StationsInside: 3}, f.store.Baseline(f.clientID))
	require.Equal(t, 0, f.assign.ActiveCount(f.clientID))

	last := f.bus.events[len(f.bus.events)-1].(events.ReportSubmitted)
	require.True(t, last.Resubmission)
}

func TestResubmitMeasuresAgainstBaselineBeforeReport(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2, StationsOutside: 1})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 2)})
	require.Equal(t, 2, resp.NewBaitStationsCount)
	require.Equal(t, domain.Baseline{StationsInside: 3, StationsOutside: 2}, f.store.Baseline(f.clientID))

	_, err := f.svc.Decline(ctx, f.admin, resp.ID, transport.DeclineReportRequest{AdminNotes: "client signature is missing"}, false)
	require.NoError(t, err)

	out, err := f.svc.Resubmit(ctx, f.admin, resp.ID, transport.ResubmitReportRequest{
		ReportFields: signedFields(domain.ReportTypeBaitInspection),
		BaitStations: stations(3, 2),
	})
	require.NoError(t, err)

	require.Equal(t, 2, out.NewBaitStationsCount)
	require.Equal(t, map[string][]bool{
		string(domain.LocationInside):  {false, false, true},
		string(domain.LocationOutside): {false, true},
	}, flagsByLocation(out))
	require.Equal(t, domain.Baseline{StationsInside: 3, StationsOutside: 2}, f.store.Baseline(f.clientID))
	require.Equal(t, &domain.Baseline{StationsInside: 2, StationsOutside: 1}, f.store.Report(resp.ID).PriorBaseline)
}

func TestDeletingFlaggedStationRefreshesCount(t *testing.T) {
	f := newFixture(t, domain.Baseline{StationsInside: 2})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(3, 0)})
	require.Equal(t, 1, resp.NewBaitStationsCount)

	var flagged uuid.UUID
	for _, st := range resp.BaitStations {
		if st.IsNewAddition {
			flagged = st.ID
		}
	}
	require.NotEqual(t, uuid.Nil, flagged)

	require.NoError(t, f.svc.DeleteStation(ctx, f.admin, resp.ID, flagged))
	require.Equal(t, 0, f.store.Report(resp.ID).NewBaitStationsCount)

	got, err := f.svc.Get(ctx, f.admin, resp.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.NewBaitStationsCount)
	require.Len(t, got.BaitStations, 2)
}

func TestDeleteOnlyOwnDrafts(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.pco, transport.CreateReportRequest{ClientID: f.clientID, ReportFields: signedFields(domain.ReportTypeBaitInspection)})
	require.NoError(t, err)

	requireKind(t, f.svc.Delete(ctx, Actor{UserID: uuid.New()}, created.ID), apperr.KindForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.pco, created.ID))
	requireKind(t, f.svc.Delete(ctx, f.pco, created.ID), apperr.KindNotFound)

	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})
	requireKind(t, f.svc.Delete(ctx, f.pco, resp.ID), apperr.KindForbidden)
}

func TestReminderTargetUsesActiveTechnician(t *testing.T) {
	f := newFixture(t, domain.Baseline{})
	ctx := context.Background()
	resp := f.complete(t, transport.CompleteReportRequest{BaitStations: stations(1, 0)})
	next := transport.NewDate(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	_, err := f.svc.Approve(ctx, f.admin, resp.ID, transport.ApproveReportRequest{NextServiceDate: &next})
	require.NoError(t, err)

	t2 := uuid.New()
	_, err = f.manager.Assign(ctx, f.clientID, t2, f.admin.UserID)
	require.NoError(t, err)

	target, err := f.svc.ReminderTarget(ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Foods", target.ClientName)
	require.Equal(t, f.pco.UserID, target.ReportPcoID)
	require.Equal(t, t2, *target.ActivePcoID)
	require.True(t, next.Equal(*target.NextServiceDate))
}
