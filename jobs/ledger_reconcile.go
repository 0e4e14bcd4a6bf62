package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/ibrahim-bhat/Billflow-updated-sub002/internal/jobs"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/lock"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

const reconcileLockKey = "ledger:reconcile"

// Reconciler is the ledger behaviour the job drives.
type Reconciler interface {
	PartyIDs(ctx context.Context, party ledger.Party) ([]int64, error)
	ReconcileCustomer(ctx context.Context, customerID int64) error
	ReconcileVendor(ctx context.Context, vendorID int64) error
}

// Locker serialises runs across worker processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// LedgerReconcileJob verifies every party's history against its stored
// balance. Mismatches are reported and fail the run; nothing is repaired.
type LedgerReconcileJob struct {
	Ledger      Reconciler
	Locker      Locker
	Concurrency int
	LockTTL     time.Duration
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewLedgerReconcileJob constructs the job handler.
func NewLedgerReconcileJob(reconciler Reconciler, locker Locker, concurrency int, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerReconcileJob {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &LedgerReconcileJob{
		Ledger:      reconciler,
		Locker:      locker,
		Concurrency: concurrency,
		LockTTL:     15 * time.Minute,
		Logger:      logger,
		Metrics:     metrics,
	}
}

type reconcileCounts struct {
	ok, mismatched, failed atomic.Int64
}

// Handle runs a full reconciliation under the cluster-wide lock.
func (j *LedgerReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.metrics().Track(TaskLedgerReconcile)
	logger := j.logger(TaskLedgerReconcile)
	start := time.Now()

	var counts reconcileCounts
	run := func(ctx context.Context) error {
		parties := []ledger.Party{ledger.PartyCustomer, ledger.PartyVendor}
		if payload.Party != "" {
			parties = []ledger.Party{payload.Party}
		}
		for _, party := range parties {
			if err := j.reconcileAll(ctx, party, &counts); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if j.Locker != nil {
		err = j.Locker.WithLock(ctx, reconcileLockKey, j.LockTTL, run)
	} else {
		err = run(ctx)
	}
	if errors.Is(err, lock.ErrBusy) {
		logger.Info("reconciliation already running elsewhere")
		return tracker.End(nil)
	}
	j.record(TaskLedgerReconcile, &counts)
	if err == nil && counts.mismatched.Load() > 0 {
		err = fmt.Errorf("%d parties do not reconcile: %w", counts.mismatched.Load(), asynq.SkipRetry)
	}
	logger.Info("ledger reconciliation finished",
		slog.Int64("reconciled", counts.ok.Load()),
		slog.Int64("mismatched", counts.mismatched.Load()),
		slog.Int64("failed", counts.failed.Load()),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(err)
}

func (j *LedgerReconcileJob) reconcileAll(ctx context.Context, party ledger.Party, counts *reconcileCounts) error {
	ids, err := j.Ledger.PartyIDs(ctx, party)
	if err != nil {
		return fmt.Errorf("list %s ids: %w", party, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			j.reconcileOne(gctx, party, id, counts)
			return gctx.Err()
		})
	}
	return g.Wait()
}

func (j *LedgerReconcileJob) reconcileOne(ctx context.Context, party ledger.Party, id int64, counts *reconcileCounts) {
	var err error
	if party == ledger.PartyVendor {
		err = j.Ledger.ReconcileVendor(ctx, id)
	} else {
		err = j.Ledger.ReconcileCustomer(ctx, id)
	}
	switch {
	case err == nil:
		counts.ok.Add(1)
	case errors.Is(err, shared.ErrLedgerMismatch):
		counts.mismatched.Add(1)
	default:
		counts.failed.Add(1)
		j.logger(TaskLedgerReconcile).Warn("reconcile party",
			slog.String("party", string(party)),
			slog.Int64("party_id", id),
			slog.Any("error", err),
		)
	}
}

// HandleParty reconciles the single party named in the payload.
func (j *LedgerReconcileJob) HandleParty(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.PartyID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskLedgerReconcileParty)
	var counts reconcileCounts
	j.reconcileOne(ctx, payload.Party, payload.PartyID, &counts)
	j.record(TaskLedgerReconcileParty, &counts)
	var err error
	switch {
	case counts.mismatched.Load() > 0:
		err = fmt.Errorf("%s %d does not reconcile: %w", payload.Party, payload.PartyID, asynq.SkipRetry)
	case counts.failed.Load() > 0:
		err = fmt.Errorf("%s %d could not be reconciled", payload.Party, payload.PartyID)
	}
	return tracker.End(err)
}

func (j *LedgerReconcileJob) record(job string, counts *reconcileCounts) {
	m := j.metrics()
	m.AddProcessed(job, "reconciled", int(counts.ok.Load()))
	m.AddProcessed(job, "mismatch", int(counts.mismatched.Load()))
	m.AddProcessed(job, "error", int(counts.failed.Load()))
}

func (j *LedgerReconcileJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *LedgerReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
