package payments

import (
	"context"
	"log/slog"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// LedgerInvalidator drops cached statements after a balance change.
type LedgerInvalidator interface {
	InvalidateCustomer(ctx context.Context, customerID int64)
	InvalidateVendor(ctx context.Context, vendorID int64)
}

// Service records payments.
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

// RecordCustomerPayment records money received from a customer.
func (s *Service) RecordCustomerPayment(ctx context.Context, in RecordInput) (Payment, error) {
	return s.record(ctx, ledger.PartyCustomer, in)
}

// RecordVendorPayment records money paid to a vendor.
func (s *Service) RecordVendorPayment(ctx context.Context, in RecordInput) (Payment, error) {
	return s.record(ctx, ledger.PartyVendor, in)
}

func (s *Service) record(ctx context.Context, party ledger.Party, in RecordInput) (Payment, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	if !in.Amount.IsPositive() {
		return Payment{}, shared.ErrInvalidInput.With("amount must be positive")
	}
	if in.Discount.IsNegative() {
		return Payment{}, shared.ErrInvalidInput.With("discount must not be negative")
	}
	if !shared.FitsScale(in.Amount, shared.MoneyPlaces) || !shared.FitsScale(in.Discount, shared.MoneyPlaces) {
		return Payment{}, shared.ErrInvalidInput.With("amount and discount allow at most %d decimal places", shared.MoneyPlaces)
	}
	p := Payment{
		Party:    party,
		PartyID:  in.PartyID,
		Date:     shared.DateOf(in.Date),
		Amount:   in.Amount,
		Discount: in.Discount,
		Mode:     in.Mode,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextReceiptNumber(ctx)
		if err != nil {
			return err
		}
		p.ReceiptNumber = db.FormatNumber(seq, s.numberWidth)
		if p.ID, err = tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, party, in.PartyID, p.Credit().Neg()); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "payment.record",
			Entity:   string(party) + "_payment",
			EntityID: p.ID,
			Party:    string(party),
			PartyID:  in.PartyID,
			Delta:    p.Credit().Neg(),
			Meta:     map[string]any{"mode": string(p.Mode), "receipt": p.ReceiptNumber},
		})
	})
	if err != nil {
		s.logger.Warn("payment rejected", slog.String("party", string(party)), slog.Int64("party_id", in.PartyID), slog.Any("error", err))
		return Payment{}, err
	}
	if s.invalidator != nil {
		if party == ledger.PartyVendor {
			s.invalidator.InvalidateVendor(ctx, in.PartyID)
		} else {
			s.invalidator.InvalidateCustomer(ctx, in.PartyID)
		}
	}
	s.logger.Info("payment recorded",
		slog.String("party", string(party)),
		slog.Int64("party_id", in.PartyID),
		slog.String("receipt_number", p.ReceiptNumber),
		slog.String("credit", p.Credit().String()),
	)
	return p, nil
}
