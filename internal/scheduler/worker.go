package scheduler

import (
	"context"
	"fmt"
	"time"

	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/platform/config"
	"pestcontrol_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReminderTarget is what the worker needs to know about the report behind a
// reminder at the time it fires.
type ReminderTarget struct {
	ReportID        uuid.UUID
	ClientID        uuid.UUID
	ClientName      string
	ReportPcoID     uuid.UUID
	ActivePcoID     *uuid.UUID
	NextServiceDate *time.Time
}

// ReminderLookup resolves a reminder's report and the client's current technician.
type ReminderLookup interface {
	ReminderTarget(ctx context.Context, reportID uuid.UUID) (ReminderTarget, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	reminders *reminderHandler
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, lookup ReminderLookup, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		reminders: &reminderHandler{lookup: lookup, bus: bus, log: log},
		log:       log,
	}
	w.mux.HandleFunc(TaskNextServiceReminder, w.reminders.handle)

	return w, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

type reminderHandler struct {
	lookup ReminderLookup
	bus    events.Bus
	log    *logger.Logger
}

func (h *reminderHandler) handle(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNextServiceReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	reportID, err := uuid.Parse(payload.ReportID)
	if err != nil {
		return fmt.Errorf("%w: invalid report id %q", asynq.SkipRetry, payload.ReportID)
	}

	target, err := h.lookup.ReminderTarget(ctx, reportID)
	if err != nil {
		return err
	}

	if target.NextServiceDate == nil || target.NextServiceDate.Format("2006-01-02") != payload.NextServiceDate {
		h.log.Info("dropping stale next service reminder", "report_id", reportID, "scheduled_for", payload.NextServiceDate)
		return nil
	}

	pcoID := target.ReportPcoID
	if target.ActivePcoID != nil {
		pcoID = *target.ActivePcoID
	}

	if h.bus == nil {
		return nil
	}

	h.bus.Publish(ctx, events.ServiceReminderDue{
		BaseEvent:       events.NewBaseEvent(),
		ReportID:        target.ReportID,
		ClientID:        target.ClientID,
		ClientName:      target.ClientName,
		PcoID:           pcoID,
		NextServiceDate: *target.NextServiceDate,
	})
	return nil
}
