package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	CustomerSnapshot(ctx context.Context, customerID int64) (Snapshot, error)
	VendorSnapshot(ctx context.Context, vendorID int64) (Snapshot, error)
	CustomerIDs(ctx context.Context) ([]int64, error)
	VendorIDs(ctx context.Context) ([]int64, error)
}

// Service renders and reconciles party ledgers.
type Service struct {
	repo    RepositoryPort
	cache   *Cache
	metrics *observability.BillingMetrics
	logger  *slog.Logger
	group   singleflight.Group

	// unbumped holds parties whose cache bump failed after a write.
	unbumped sync.Map
}

type partyRef struct {
	party Party
	id    int64
}

// NewService builds Service. cache and metrics may be nil.
func NewService(repo RepositoryPort, cache *Cache, metrics *observability.BillingMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// GetCustomerLedger returns the customer's running-balance statement.
func (s *Service) GetCustomerLedger(ctx context.Context, customerID int64) (Statement, error) {
	return s.statement(ctx, PartyCustomer, customerID)
}

// GetVendorLedger returns the vendor's running-balance statement.
func (s *Service) GetVendorLedger(ctx context.Context, vendorID int64) (Statement, error) {
	return s.statement(ctx, PartyVendor, vendorID)
}

func (s *Service) statement(ctx context.Context, party Party, id int64) (Statement, error) {
	if id <= 0 {
		return Statement{}, shared.ErrInvalidInput.With("%s id required", party)
	}
	if !s.retryBump(ctx, party, id) {
		return s.build(ctx, party, id)
	}
	key, err := s.cache.BuildKey(ctx, party, id)
	if err != nil {
		s.logger.Warn("ledger cache unavailable", slog.String("party", string(party)), slog.Any("error", err))
		return s.build(ctx, party, id)
	}

	res := s.group.DoChan(key, func() (any, error) {
		var stmt Statement
		err := s.cache.FetchJSON(ctx, key, &stmt, func(ctx context.Context) (any, error) {
			return s.build(ctx, party, id)
		})
		return stmt, err
	})
	select {
	case <-ctx.Done():
		return Statement{}, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return Statement{}, r.Err
		}
		return r.Val.(Statement), nil
	}
}

func (s *Service) build(ctx context.Context, party Party, id int64) (Statement, error) {
	snap, err := s.snapshot(ctx, party, id)
	if err != nil {
		return Statement{}, err
	}
	stmt, err := Reconstruct(snap)
	if err != nil {
		s.reportMismatch(party, id, err)
		return Statement{}, err
	}
	return stmt, nil
}

func (s *Service) snapshot(ctx context.Context, party Party, id int64) (Snapshot, error) {
	if party == PartyVendor {
		return s.repo.VendorSnapshot(ctx, id)
	}
	return s.repo.CustomerSnapshot(ctx, id)
}

// ReconcileCustomer verifies the customer's history against the stored
// opening balance. Mismatches are reported, never repaired.
func (s *Service) ReconcileCustomer(ctx context.Context, customerID int64) error {
	return s.reconcile(ctx, PartyCustomer, customerID)
}

// ReconcileVendor verifies the vendor's history against the stored opening balance.
func (s *Service) ReconcileVendor(ctx context.Context, vendorID int64) error {
	return s.reconcile(ctx, PartyVendor, vendorID)
}

func (s *Service) reconcile(ctx context.Context, party Party, id int64) error {
	snap, err := s.snapshot(ctx, party, id)
	if err != nil {
		return err
	}
	if _, err := Reconcile(snap); err != nil {
		s.reportMismatch(party, id, err)
		return err
	}
	return nil
}

// PartyIDs lists the ids the reconciliation job walks.
func (s *Service) PartyIDs(ctx context.Context, party Party) ([]int64, error) {
	if party == PartyVendor {
		return s.repo.VendorIDs(ctx)
	}
	return s.repo.CustomerIDs(ctx)
}

func (s *Service) reportMismatch(party Party, id int64, err error) {
	if !errors.Is(err, shared.ErrLedgerMismatch) {
		return
	}
	s.metrics.ObserveLedgerMismatch(string(party))
	attrs := []any{
		slog.String("party", string(party)),
		slog.Int64("party_id", id),
		slog.Any("error", err),
	}
	var e *shared.Error
	if errors.As(err, &e) {
		for k, v := range e.Fields {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	s.logger.Error("ledger does not reconcile", attrs...)
}

// InvalidateCustomer drops cached statements for the customer.
func (s *Service) InvalidateCustomer(ctx context.Context, customerID int64) {
	s.invalidate(ctx, PartyCustomer, customerID)
}

// InvalidateVendor drops cached statements for the vendor.
func (s *Service) InvalidateVendor(ctx context.Context, vendorID int64) {
	s.invalidate(ctx, PartyVendor, vendorID)
}

// invalidate bumps the party's cache version. A failed bump is remembered and
// retried by the next read, which skips the cache until the bump lands.
func (s *Service) invalidate(ctx context.Context, party Party, id int64) {
	if err := s.cache.Bump(ctx, party, id); err != nil {
		s.unbumped.Store(partyRef{party, id}, struct{}{})
		s.logger.Warn("ledger cache bump failed",
			slog.String("party", string(party)),
			slog.Int64("party_id", id),
			slog.Any("error", err),
		)
	}
}

// retryBump reports whether cached statements for the party may be served.
func (s *Service) retryBump(ctx context.Context, party Party, id int64) bool {
	ref := partyRef{party, id}
	if _, pending := s.unbumped.Load(ref); !pending {
		return true
	}
	if err := s.cache.Bump(ctx, party, id); err != nil {
		return false
	}
	s.unbumped.Delete(ref)
	s.logger.Info("ledger cache bump recovered", slog.String("party", string(party)), slog.Int64("party_id", id))
	return true
}

// Watch calls fn for every party whose balance changed on any instance.
func (s *Service) Watch(ctx context.Context, fn func(Party, int64)) error {
	return s.cache.ListenForInvalidation(ctx, fn)
}
