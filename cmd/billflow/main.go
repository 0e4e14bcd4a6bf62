package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/cmd/billflow/cli"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/app"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/payments"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/cache"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/purchases"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/settlement"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.SchemaAutoMigrate {
		if err := db.EnsureSchema(ctx, dbpool); err != nil {
			logger.Error("apply schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr}); err != nil {
		logger.Warn("redis unavailable, ledger cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, dbpool, redisClient, metrics.Registerer(), logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		CatalogHandler:    catalog.NewHandler(logger, services.Catalog),
		InventoryHandler:  inventory.NewHandler(logger, services.Inventory),
		InvoicingHandler:  invoicing.NewHandler(logger, services.Invoicing),
		SettlementHandler: settlement.NewHandler(logger, services.Settlement),
		LedgerHandler:     ledger.NewHandler(logger, services.Ledger),
		PaymentsHandler:   payments.NewHandler(logger, services.Payments),
		PurchasesHandler:  purchases.NewHandler(logger, services.Purchases),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
		Ready: func(r *http.Request) error {
			return dbpool.Ping(r.Context())
		},
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles "jobs trigger <name>" and "jobs stats".
func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetention)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	switch {
	case len(args) == 2 && args[0] == "trigger":
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s\n", info.Type, info.ID)
	case len(args) == 1 && args[0] == "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		failed, err := jobsCLI.ListArchived(ctx, 10)
		if err != nil {
			return err
		}
		for _, task := range failed {
			fmt.Printf("failed %s %s: %s\n", task.Type, task.ID, task.LastErr)
		}
	default:
		return errors.New("usage: billflow jobs trigger <ledger:reconcile|idempotency:cleanup> | billflow jobs stats")
	}
	return nil
}
