package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/taskway/taskway/internal/app"
	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/notifications"
	"github.com/taskway/taskway/internal/observability"
	"github.com/taskway/taskway/internal/platform/db"
	"github.com/taskway/taskway/internal/shared"
	"github.com/taskway/taskway/jobs"
)

// noTenants satisfies the visibility builder's dependency; the worker
// never lists on behalf of a principal.
type noTenants struct{}

func (noTenants) CurrentTenant(ctx context.Context, subjectID string) (string, error) {
	return "", nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	inbox := notifications.NewService(notifications.NewRepository(pool), guard.NewVisibility(noTenants{}))
	fanout := jobs.NewFanout(logger, inbox, metrics)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	purger := jobs.NewPurger(logger, pool, idempotencyStore, cfg.PurgeRetention, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotificationFanout, Handler: fanout.Handle},
			{Type: jobs.TaskRetentionPurge, Handler: purger.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewRetentionPurgeTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
