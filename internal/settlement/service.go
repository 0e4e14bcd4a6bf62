package settlement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetWatak(ctx context.Context, id int64) (Watak, error)
	ListWataks(ctx context.Context, vendorID int64) ([]Watak, error)
}

// LedgerInvalidator drops cached statements after a balance change.
type LedgerInvalidator interface {
	InvalidateVendor(ctx context.Context, vendorID int64)
}

// Config carries the commission defaults and number format.
type Config struct {
	LocalCommission   decimal.Decimal
	DefaultCommission decimal.Decimal
	NumberWidth       int
}

// Service creates and reverses wataks.
type Service struct {
	repo        RepositoryPort
	cfg         Config
	invalidator LedgerInvalidator
	metrics     *observability.BillingMetrics
	logger      *slog.Logger
}

// NewService builds Service. invalidator and metrics may be nil.
func NewService(repo RepositoryPort, cfg Config, invalidator LedgerInvalidator, metrics *observability.BillingMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, invalidator: invalidator, metrics: metrics, logger: logger}
}

// CreateWatak prices the settlement, persists it with its items and credits
// the vendor with the net payable, all in one transaction.
func (s *Service) CreateWatak(ctx context.Context, in CreateWatakInput) (Created, error) {
	created, err := s.createWatak(ctx, in)
	if err != nil {
		s.metrics.ObserveWatak("create", outcomeOf(err))
		s.logger.Warn("watak rejected",
			slog.Int64("vendor_id", in.VendorID),
			slog.String("code", string(shared.CodeOf(err))),
			slog.Any("error", err),
		)
		return Created{}, err
	}
	s.metrics.ObserveWatak("create", observability.OutcomeSuccess)
	s.invalidate(ctx, in.VendorID)
	s.logger.Info("watak created",
		slog.Int64("watak_id", created.ID),
		slog.String("watak_number", created.Number),
		slog.Int64("vendor_id", in.VendorID),
		slog.String("net_payable", created.NetPayable.String()),
	)
	return created, nil
}

func (s *Service) createWatak(ctx context.Context, in CreateWatakInput) (Created, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Created{}, err
	}
	charges := Charges{
		LaborRate:      in.LaborRate,
		VehicleCharges: in.VehicleCharges,
		Bardan:         in.Bardan,
		OtherCharges:   in.OtherCharges,
	}
	if in.CommissionPercent != nil {
		charges.CommissionPercent = *in.CommissionPercent
		// Known commission: reject before opening a transaction.
		if _, err := Calculate(in.Lines, charges); err != nil {
			return Created{}, err
		}
	}

	var created Created
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.CommissionPercent == nil {
			vt, err := tx.VendorType(ctx, in.VendorID)
			if err != nil {
				return err
			}
			charges.CommissionPercent = DefaultCommission(vt, s.cfg.LocalCommission, s.cfg.DefaultCommission)
		}
		res, err := Calculate(in.Lines, charges)
		if err != nil {
			return err
		}
		seq, err := tx.NextWatakNumber(ctx)
		if err != nil {
			return err
		}
		w := Watak{
			VendorID:          in.VendorID,
			Number:            db.FormatNumber(seq, s.cfg.NumberWidth),
			Date:              shared.DateOf(in.Date),
			VehicleCharges:    res.VehicleCharges,
			Bardan:            res.Bardan,
			OtherCharges:      res.OtherCharges,
			CommissionPercent: charges.CommissionPercent,
			LaborRate:         charges.LaborRate,
			TotalAmount:       res.GoodsSaleProceeds,
			TotalCommission:   res.TotalCommission,
			TotalLabor:        res.TotalLabor,
			NetPayable:        res.NetPayable,
		}
		if in.InventoryDate != nil {
			d := shared.DateOf(*in.InventoryDate)
			w.InventoryDate = &d
		}
		id, err := tx.InsertWatak(ctx, w)
		if err != nil {
			return err
		}
		if err := tx.InsertWatakItems(ctx, id, res.Lines); err != nil {
			return err
		}
		if err := tx.AdjustVendorBalance(ctx, in.VendorID, res.NetPayable); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "watak.create",
			Entity:   "vendor_watak",
			EntityID: id,
			Party:    "vendor",
			PartyID:  in.VendorID,
			Delta:    res.NetPayable,
			Meta:     map[string]any{"number": w.Number, "commission": res.TotalCommission.String()},
		}); err != nil {
			return err
		}
		created = Created{ID: id, Number: w.Number, NetPayable: res.NetPayable}
		return nil
	})
	return created, err
}

// DeleteWatak removes a watak and reverses the stored net payable from the
// vendor balance.
func (s *Service) DeleteWatak(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidInput.With("watak id required")
	}
	var vendorID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		w, err := tx.GetWatakForUpdate(ctx, id)
		if err != nil {
			return err
		}
		vendorID = w.VendorID
		if err := tx.DeleteWatak(ctx, id); err != nil {
			return err
		}
		if err := tx.AdjustVendorBalance(ctx, w.VendorID, w.NetPayable.Neg()); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			Action:   "watak.delete",
			Entity:   "vendor_watak",
			EntityID: id,
			Party:    "vendor",
			PartyID:  w.VendorID,
			Delta:    w.NetPayable.Neg(),
			Meta:     map[string]any{"number": w.Number},
		})
	})
	if err != nil {
		s.metrics.ObserveWatak("delete", outcomeOf(err))
		return err
	}
	s.metrics.ObserveWatak("delete", observability.OutcomeSuccess)
	s.invalidate(ctx, vendorID)
	s.logger.Info("watak deleted", slog.Int64("watak_id", id), slog.Int64("vendor_id", vendorID))
	return nil
}

// GetWatak returns a watak with its items.
func (s *Service) GetWatak(ctx context.Context, id int64) (Watak, error) {
	if id <= 0 {
		return Watak{}, shared.ErrInvalidInput.With("watak id required")
	}
	return s.repo.GetWatak(ctx, id)
}

// ListWataks returns a vendor's wataks newest first.
func (s *Service) ListWataks(ctx context.Context, vendorID int64) ([]Watak, error) {
	if vendorID <= 0 {
		return nil, shared.ErrInvalidInput.With("vendor_id required")
	}
	return s.repo.ListWataks(ctx, vendorID)
}

func (s *Service) invalidate(ctx context.Context, vendorID int64) {
	if s.invalidator != nil {
		s.invalidator.InvalidateVendor(ctx, vendorID)
	}
}

func outcomeOf(err error) string {
	var e *shared.Error
	if errors.As(err, &e) && e.Kind != shared.KindConsistency {
		return observability.OutcomeRejected
	}
	return observability.OutcomeError
}
