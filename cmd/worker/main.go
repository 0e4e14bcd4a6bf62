package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/app"
	jobmetrics "github.com/ibrahim-bhat/Billflow-updated-sub002/internal/jobs"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/cache"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/lock"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/jobs"
)

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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services := app.NewServices(cfg, pool, redisClient, nil, logger)
	jobMetrics := jobmetrics.NewMetrics(nil)

	reconcileJob := jobs.NewLedgerReconcileJob(services.Ledger, lock.New(redisClient, "billflow:"), cfg.ReconcileConcurrency, logger, jobMetrics)
	ingestJob := jobs.NewInvoiceIngestJob(services.Invoicing, logger, jobMetrics)
	cleanupJob := &jobs.IdempotencyCleanupJob{Store: services.Idempotency, Logger: logger, Metrics: jobMetrics}

	reconcileTask, err := jobs.NewLedgerReconcileTask()
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	retentionHours := int(cfg.IdempotencyRetention / time.Hour)
	if retentionHours < 1 {
		retentionHours = 1
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(retentionHours)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskLedgerReconcileParty, Handler: reconcileJob.HandleParty},
			{Type: jobs.TaskInvoiceIngest, Handler: ingestJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "15 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	// Every balance change bumps the party's ledger version; check that party soon after.
	err = services.Ledger.Watch(ctx, func(party ledger.Party, id int64) {
		if err := client.EnqueueReconcileParty(ctx, party, id); err != nil {
			logger.Warn("enqueue party reconcile",
				slog.String("party", string(party)),
				slog.Int64("party_id", id),
				slog.Any("error", err),
			)
		}
	})
	if err != nil {
		logger.Warn("ledger watch unavailable", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
