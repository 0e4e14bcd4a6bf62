package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, LotStore) error) error
	ListLots(ctx context.Context, vendorID, itemID int64) ([]Lot, error)
}

// Service coordinates goods receipt and standalone allocation.
type Service struct {
	repo      RepositoryPort
	allocator *Allocator
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, allocator *Allocator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if allocator == nil {
		allocator = NewAllocator(nil, logger)
	}
	return &Service{repo: repo, allocator: allocator, logger: logger}
}

// AllocateLot allocates in its own transaction and returns the lot used.
func (s *Service) AllocateLot(ctx context.Context, in AllocateInput) (int64, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return 0, err
	}
	if in.Quantity.IsNegative() || in.Weight.IsNegative() {
		return 0, shared.ErrInvalidInput.With("quantity and weight must not be negative")
	}
	if !shared.FitsScale(in.Quantity, shared.StockPlaces) || !shared.FitsScale(in.Weight, shared.StockPlaces) {
		return 0, shared.ErrInvalidInput.With("quantity and weight allow at most %d decimal places", shared.StockPlaces)
	}
	var alloc Allocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, store LotStore) error {
		var err error
		alloc, err = s.allocator.Allocate(ctx, store, in)
		return err
	})
	if err != nil {
		return 0, err
	}
	return alloc.LotID, nil
}

// ReceiveGoods records a goods receipt and its lots.
func (s *Service) ReceiveGoods(ctx context.Context, in ReceiptInput) (Receipt, error) {
	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, store LotStore) error {
		var err error
		receipt, err = Receive(ctx, store, in)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.logger.Info("goods received",
		slog.Int64("receipt_id", receipt.ID),
		slog.Int64("vendor_id", receipt.VendorID),
		slog.Int("lots", len(receipt.Lots)),
	)
	return receipt, nil
}

// ListLots returns lots for vendor/item in allocation order.
func (s *Service) ListLots(ctx context.Context, vendorID, itemID int64) ([]Lot, error) {
	if vendorID <= 0 || itemID <= 0 {
		return nil, shared.ErrInvalidInput.With("vendor_id and item_id required")
	}
	return s.repo.ListLots(ctx, vendorID, itemID)
}

// ValidateReceipt checks a receipt before any write.
func ValidateReceipt(in ReceiptInput) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	for i, line := range in.Lines {
		if !line.Quantity.IsPositive() {
			return shared.ErrInvalidLine.With("line %d: quantity must be positive", i+1)
		}
		if line.Rate.IsNegative() {
			return shared.ErrInvalidLine.With("line %d: rate must not be negative", i+1)
		}
		if !shared.FitsScale(line.Quantity, shared.StockPlaces) || !shared.FitsScale(line.Rate, shared.MoneyPlaces) {
			return shared.ErrInvalidLine.With("line %d: quantity allows %d and rate %d decimal places", i+1, shared.StockPlaces, shared.MoneyPlaces)
		}
	}
	return nil
}

// Receive writes a receipt through store, inside the caller's transaction.
func Receive(ctx context.Context, store LotStore, in ReceiptInput) (Receipt, error) {
	if err := ValidateReceipt(in); err != nil {
		return Receipt{}, err
	}
	date := shared.DateOf(in.DateReceived)
	receiptID, err := store.InsertReceipt(ctx, in.VendorID, date)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{ID: receiptID, VendorID: in.VendorID, DateReceived: date, Lots: make([]Lot, 0, len(in.Lines))}
	for i, line := range in.Lines {
		lot := Lot{
			ReceiptID:        receiptID,
			VendorID:         in.VendorID,
			ItemID:           line.ItemID,
			DateReceived:     date,
			QuantityReceived: line.Quantity,
			RemainingStock:   line.Quantity,
			Rate:             line.Rate,
		}
		id, err := store.InsertLot(ctx, lot)
		if err != nil {
			return Receipt{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		lot.ID = id
		receipt.Lots = append(receipt.Lots, lot)
	}
	return receipt, nil
}
