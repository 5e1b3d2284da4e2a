package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/internal/notification/inapp"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type sent struct {
	toAdmins bool
	params   inapp.SendParams
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *recordingSender) Send(_ context.Context, p inapp.SendParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{params: p})
	return s.err
}

func (s *recordingSender) SendToAdmins(_ context.Context, p inapp.SendParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{toAdmins: true, params: p})
	return s.err
}

func newTestModule(sender Sender) (*Module, *events.InMemoryBus) {
	m := &Module{sender: sender, log: logger.Nop()}
	bus := events.NewInMemoryBus(logger.Nop())
	m.RegisterHandlers(bus)
	return m, bus
}

func TestSubmittedReportNotifiesAdmins(t *testing.T) {
	sender := &recordingSender{}
	_, bus := newTestModule(sender)
	reportID := uuid.New()

	err := bus.PublishSync(context.Background(), events.ReportSubmitted{
		BaseEvent:       events.NewBaseEvent(),
		ReportID:        reportID,
		ClientName:      "Acme Foods",
		PcoID:           uuid.New(),
		ServiceDate:     time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		NewBaitStations: 2,
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	require.True(t, got.toAdmins)
	require.Equal(t, TypeReportSubmitted, got.params.Type)
	require.Equal(t, reportID, *got.params.ResourceID)
	require.Equal(t, resourceReport, got.params.ResourceType)
	require.Contains(t, got.params.Content, "Acme Foods (2026-05-04)")
	require.Contains(t, got.params.Content, "2 new bait station(s)")
}

func TestResubmissionUsesItsOwnType(t *testing.T) {
	sender := &recordingSender{}
	_, bus := newTestModule(sender)

	require.NoError(t, bus.PublishSync(context.Background(), events.ReportSubmitted{
		ReportID:     uuid.New(),
		ClientName:   "Acme Foods",
		Resubmission: true,
	}))

	require.Len(t, sender.sent, 1)
	require.Equal(t, TypeReportResubmitted, sender.sent[0].params.Type)
	require.NotContains(t, sender.sent[0].params.Content, "new bait station")
}

func TestReviewOutcomesNotifyTheTechnician(t *testing.T) {
	pco := uuid.New()
	next := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		event    events.Event
		kind     string
		contains string
	}{
		{"approved", events.ReportApproved{ReportID: uuid.New(), ClientName: "Acme Foods", PcoID: pco, NextServiceDate: &next}, TypeReportApproved, "2026-06-01"},
		{"declined", events.ReportDeclined{ReportID: uuid.New(), ClientName: "Acme Foods", PcoID: pco, AdminNotes: "station 4 photo missing"}, TypeReportDeclined, "station 4 photo missing"},
		{"force declined", events.ReportDeclined{ReportID: uuid.New(), ClientName: "Acme Foods", PcoID: pco, AdminNotes: "redo", Forced: true}, TypeReportDeclined, "reassigned to you"},
		{"archived", events.ReportArchived{ReportID: uuid.New(), ClientName: "Acme Foods", PcoID: pco}, TypeReportArchived, "archived"},
		{"reminder", events.ServiceReminderDue{ReportID: uuid.New(), ClientName: "Acme Foods", PcoID: pco, NextServiceDate: next}, TypeServiceReminder, "2026-06-01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &recordingSender{}
			_, bus := newTestModule(sender)

			require.NoError(t, bus.PublishSync(context.Background(), tc.event))

			require.Len(t, sender.sent, 1)
			got := sender.sent[0]
			require.False(t, got.toAdmins)
			require.Equal(t, pco, got.params.UserID)
			require.Equal(t, tc.kind, got.params.Type)
			require.Contains(t, got.params.Content, tc.contains)
		})
	}
}

func TestSenderFailureSurfacesToSyncPublisher(t *testing.T) {
	sender := &recordingSender{err: errors.New("insert failed")}
	_, bus := newTestModule(sender)

	err := bus.PublishSync(context.Background(), events.ReportArchived{ReportID: uuid.New(), PcoID: uuid.New()})
	require.Error(t, err)
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	sender := &recordingSender{}
	m, _ := newTestModule(sender)

	require.NoError(t, m.Handle(context.Background(), events.ReportCreated{ReportID: uuid.New()}))
	require.Empty(t, sender.sent)
}
