package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type lookupFunc func(ctx context.Context, reportID uuid.UUID) (ReminderTarget, error)

func (f lookupFunc) ReminderTarget(ctx context.Context, reportID uuid.UUID) (ReminderTarget, error) {
	return f(ctx, reportID)
}

func reminderTask(t *testing.T, reportID uuid.UUID, date string) *asynq.Task {
	t.Helper()
	task, err := NewNextServiceReminderTask(NextServiceReminderPayload{ReportID: reportID.String(), NextServiceDate: date})
	require.NoError(t, err)
	return task
}

func TestReminderPrefersActiveTechnician(t *testing.T) {
	reportID, clientID, original, current := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	bus := &recordingBus{}
	h := &reminderHandler{
		lookup: lookupFunc(func(context.Context, uuid.UUID) (ReminderTarget, error) {
			return ReminderTarget{ReportID: reportID, ClientID: clientID, ClientName: "Acme Foods", ReportPcoID: original, ActivePcoID: &current, NextServiceDate: &date}, nil
		}),
		bus: bus,
		log: logger.Nop(),
	}

	require.NoError(t, h.handle(context.Background(), reminderTask(t, reportID, "2026-06-01")))
	require.Len(t, bus.published, 1)
	due := bus.published[0].(events.ServiceReminderDue)
	require.Equal(t, current, due.PcoID)
	require.Equal(t, "Acme Foods", due.ClientName)
}

func TestReminderDroppedWhenDateChanged(t *testing.T) {
	reportID := uuid.New()
	moved := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bus := &recordingBus{}
	h := &reminderHandler{
		lookup: lookupFunc(func(context.Context, uuid.UUID) (ReminderTarget, error) {
			return ReminderTarget{ReportID: reportID, ReportPcoID: uuid.New(), NextServiceDate: &moved}, nil
		}),
		bus: bus,
		log: logger.Nop(),
	}

	require.NoError(t, h.handle(context.Background(), reminderTask(t, reportID, "2026-06-01")))
	require.Empty(t, bus.published)
}

func TestReminderRejectsGarbagePayloadWithoutRetry(t *testing.T) {
	h := &reminderHandler{log: logger.Nop()}
	err := h.handle(context.Background(), asynq.NewTask(TaskNextServiceReminder, []byte("{")))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestScheduleNextServiceReminder(t *testing.T) {
	mr := miniredis.RunT(t)
	c := newClient(asynq.RedisClientOpt{Addr: mr.Addr()}, "reports")
	t.Cleanup(func() { _ = c.Close() })

	payload := NextServiceReminderPayload{ReportID: uuid.NewString(), ClientID: uuid.NewString(), NextServiceDate: "2026-06-01"}
	runAt := time.Now().Add(48 * time.Hour)

	require.NoError(t, c.ScheduleNextServiceReminder(context.Background(), payload, runAt))
	require.NoError(t, c.ScheduleNextServiceReminder(context.Background(), payload, runAt), "duplicate schedule must be ignored")
}
