package inventory

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// Allocator picks one lot FIFO by receipt date and decrements it.
type Allocator struct {
	metrics *observability.BillingMetrics
	logger  *slog.Logger
}

// NewAllocator constructs an Allocator. Both arguments may be nil.
func NewAllocator(metrics *observability.BillingMetrics, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{metrics: metrics, logger: logger}
}

// Allocate removes in.Deduction() from the oldest matching lot within the
// caller's transaction. A lost decrement race fails the allocation; it never
// moves on to the next lot.
func (a *Allocator) Allocate(ctx context.Context, store LotStore, in AllocateInput) (Allocation, error) {
	d := in.Deduction()
	if !d.IsPositive() {
		return Allocation{}, shared.ErrInvalidLine.With("quantity or weight must be positive")
	}
	lot, found, err := store.SelectLot(ctx, in.VendorID, in.ItemID, in.TargetDate)
	if err != nil {
		a.metrics.ObserveAllocation(observability.OutcomeError)
		return Allocation{}, err
	}
	if !found {
		a.metrics.ObserveAllocation(observability.OutcomeOutOfStock)
		if in.TargetDate != nil {
			return Allocation{}, shared.ErrOutOfStock.With("vendor %d item %d on %s", in.VendorID, in.ItemID, in.TargetDate.Format("2006-01-02"))
		}
		return Allocation{}, shared.ErrOutOfStock.With("vendor %d item %d", in.VendorID, in.ItemID)
	}
	ok, err := store.DecrementLot(ctx, lot.ID, d)
	if err != nil {
		a.metrics.ObserveAllocation(observability.OutcomeError)
		return Allocation{}, err
	}
	if !ok {
		a.metrics.ObserveAllocation(observability.OutcomeInsufficientStock)
		a.logger.Debug("lot decrement lost",
			slog.Int64("lot_id", lot.ID),
			slog.String("requested", d.String()),
			slog.String("remaining_seen", lot.RemainingStock.String()),
		)
		return Allocation{}, shared.ErrInsufficientStock.With("lot %d cannot cover %s", lot.ID, d.String())
	}
	a.metrics.ObserveAllocation(observability.OutcomeSuccess)
	return Allocation{LotID: lot.ID, Deducted: d, DateReceived: lot.DateReceived}, nil
}

// Release returns a previous deduction to its lot.
func (a *Allocator) Release(ctx context.Context, store LotStore, lotID int64, d decimal.Decimal) error {
	ok, err := store.IncrementLot(ctx, lotID, d)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrLotOverflow.With("lot %d cannot take back %s", lotID, d.String())
	}
	return nil
}
