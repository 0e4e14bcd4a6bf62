package purchases

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// LedgerInvalidator drops cached statements after a balance change.
type LedgerInvalidator interface {
	InvalidateVendor(ctx context.Context, vendorID int64)
}

// Service records purchase invoices.
type Service struct {
	repo        RepositoryPort
	invalidator LedgerInvalidator
	numberWidth int
	logger      *slog.Logger
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, invalidator LedgerInvalidator, numberWidth int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, numberWidth: numberWidth, logger: logger}
}

// LineAmount is weight × rate, or quantity × rate without weight, at two places.
func LineAmount(in LineInput) decimal.Decimal {
	return inventory.Deduction(in.Quantity, in.Weight).Mul(in.Rate).Round(2)
}

// CreatePurchaseInvoice receives the goods into new lots, records the
// invoice and raises the vendor balance by its total in one transaction.
func (s *Service) CreatePurchaseInvoice(ctx context.Context, in CreateInput) (Invoice, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Invoice{}, err
	}
	receipt := inventory.ReceiptInput{VendorID: in.VendorID, DateReceived: in.Date}
	total := decimal.Zero
	for i, l := range in.Lines {
		if l.Quantity.IsNegative() || l.Weight.IsNegative() || !l.Rate.IsPositive() {
			return Invoice{}, shared.ErrInvalidLine.With("line %d: quantities must not be negative and rate must be positive", i+1)
		}
		if !shared.FitsScale(l.Quantity, shared.StockPlaces) || !shared.FitsScale(l.Weight, shared.StockPlaces) || !shared.FitsScale(l.Rate, shared.MoneyPlaces) {
			return Invoice{}, shared.ErrInvalidLine.With("line %d: quantity and weight allow %d and rate %d decimal places", i+1, shared.StockPlaces, shared.MoneyPlaces)
		}
		receipt.Lines = append(receipt.Lines, inventory.ReceiptLine{
			ItemID:   l.ItemID,
			Quantity: inventory.Deduction(l.Quantity, l.Weight),
			Rate:     l.Rate,
		})
		total = total.Add(LineAmount(l))
	}
	if err := inventory.ValidateReceipt(receipt); err != nil {
		return Invoice{}, err
	}

	inv := Invoice{VendorID: in.VendorID, Date: shared.DateOf(in.Date), Total: total}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		category, err := tx.VendorCategory(ctx, in.VendorID)
		if err != nil {
			return err
		}
		if category != catalog.CategoryPurchase {
			return shared.ErrInvalidInput.With("vendor %d is not purchase-based", in.VendorID)
		}
		rec, err := inventory.Receive(ctx, tx, receipt)
		if err != nil {
			return err
		}
		seq, err := tx.NextPurchaseNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = db.FormatNumber(seq, s.numberWidth)
		inv.ReceiptID = rec.ID
		inv.Lines = make([]Line, len(in.Lines))
		for i, l := range in.Lines {
			inv.Lines[i] = Line{
				ItemID:   l.ItemID,
				LotID:    rec.Lots[i].ID,
				Quantity: l.Quantity,
				Weight:   l.Weight,
				Rate:     l.Rate,
				Amount:   LineAmount(l),
			}
		}
		if inv.ID, err = tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inv.ID, inv.Lines); err != nil {
			return err
		}
		if err := tx.AdjustVendorBalance(ctx, in.VendorID, total); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "purchase.create",
			Entity:   "purchase_invoice",
			EntityID: inv.ID,
			Party:    "vendor",
			PartyID:  in.VendorID,
			Delta:    total,
		})
	})
	if err != nil {
		s.logger.Warn("purchase invoice rejected", slog.Int64("vendor_id", in.VendorID), slog.Any("error", err))
		return Invoice{}, err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateVendor(ctx, in.VendorID)
	}
	s.logger.Info("purchase invoice created",
		slog.Int64("purchase_id", inv.ID),
		slog.String("invoice_number", inv.Number),
		slog.Int64("vendor_id", in.VendorID),
		slog.String("total", total.String()),
	)
	return inv, nil
}
