package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	assignmentsrepo "pestcontrol_backend/internal/assignments/repository"
	assignmentsservice "pestcontrol_backend/internal/assignments/service"
	"pestcontrol_backend/internal/events"
	"pestcontrol_backend/internal/notification"
	"pestcontrol_backend/internal/reports/repository"
	reportsservice "pestcontrol_backend/internal/reports/service"
	"pestcontrol_backend/internal/scheduler"
	"pestcontrol_backend/platform/config"
	"pestcontrol_backend/platform/db"
	"pestcontrol_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)

	// Worker-side report lookups (no HTTP handlers required).
	tx := db.NewTransactor(pool)
	reportsSvc := reportsservice.New(reportsservice.Deps{
		Store:       repository.New(),
		Tx:          tx,
		Pool:        pool,
		Assignments: assignmentsservice.New(assignmentsrepo.New(), tx, pool, log),
		Bus:         eventBus,
		Config:      cfg,
		Logger:      log,
	})

	worker, err := scheduler.NewWorker(cfg, reportsSvc, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker error", "error", err)
	}
	eventBus.Wait()
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
