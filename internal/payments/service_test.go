package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

type memoryRepo struct {
	seq      int64
	payments []Payment
	balances map[ledger.Party]map[int64]decimal.Decimal
	failOn   string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{balances: map[ledger.Party]map[int64]decimal.Decimal{
		ledger.PartyCustomer: {1: decimal.NewFromInt(500)},
		ledger.PartyVendor:   {1: decimal.NewFromInt(800)},
	}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	seq, payments := m.seq, append([]Payment(nil), m.payments...)
	saved := map[ledger.Party]map[int64]decimal.Decimal{}
	for party, byID := range m.balances {
		saved[party] = map[int64]decimal.Decimal{}
		for id, b := range byID {
			saved[party][id] = b
		}
	}
	if err := fn(ctx, m); err != nil {
		m.seq, m.payments, m.balances = seq, payments, saved
		return err
	}
	return nil
}

func (m *memoryRepo) NextReceiptNumber(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p Payment) (int64, error) {
	p.ID = int64(len(m.payments) + 1)
	m.payments = append(m.payments, p)
	return p.ID, nil
}

func (m *memoryRepo) AdjustBalance(_ context.Context, party ledger.Party, id int64, delta decimal.Decimal) error {
	b, ok := m.balances[party][id]
	if !ok {
		return shared.ErrNotFound
	}
	m.balances[party][id] = b.Add(delta)
	return nil
}

func (m *memoryRepo) RecordAudit(context.Context, shared.AuditLog) error {
	if m.failOn == "audit" {
		return errors.New("audit unavailable")
	}
	return nil
}

type invalidations struct {
	customers, vendors []int64
}

func (i *invalidations) InvalidateCustomer(_ context.Context, id int64) {
	i.customers = append(i.customers, id)
}

func (i *invalidations) InvalidateVendor(_ context.Context, id int64) {
	i.vendors = append(i.vendors, id)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCustomerPaymentCreditsAmountPlusDiscount(t *testing.T) {
	repo := newMemoryRepo()
	inv := &invalidations{}
	svc := NewService(repo, inv, 4, nil)

	p, err := svc.RecordCustomerPayment(context.Background(), RecordInput{
		PartyID: 1, Date: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), Amount: d("180"), Discount: d("20"), Mode: ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, "0001", p.ReceiptNumber)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.Date)
	require.True(t, d("300").Equal(repo.balances[ledger.PartyCustomer][1]))
	require.Equal(t, []int64{1}, inv.customers)
	require.Empty(t, inv.vendors)
}

func TestVendorPayment(t *testing.T) {
	repo := newMemoryRepo()
	inv := &invalidations{}
	svc := NewService(repo, inv, 4, nil)

	_, err := svc.RecordVendorPayment(context.Background(), RecordInput{PartyID: 1, Date: time.Now(), Amount: d("800"), Mode: ModeBank})
	require.NoError(t, err)
	require.True(t, repo.balances[ledger.PartyVendor][1].IsZero())
	require.Equal(t, []int64{1}, inv.vendors)
}

func TestPaymentValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, 4, nil)
	ctx := context.Background()
	now := time.Now()

	_, err := svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 1, Date: now, Amount: d("0"), Mode: ModeCash})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 1, Date: now, Amount: d("5"), Discount: d("-1"), Mode: ModeCash})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 1, Date: now, Amount: d("5"), Mode: "Cheque"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 1, Date: now, Amount: d("5.005"), Mode: ModeCash})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 1, Date: now, Amount: d("5"), Discount: d("0.001"), Mode: ModeCash})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.RecordCustomerPayment(ctx, RecordInput{PartyID: 9, Date: now, Amount: d("5"), Mode: ModeCash})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.failOn = "audit"
	svc := NewService(repo, nil, 4, nil)

	_, err := svc.RecordCustomerPayment(context.Background(), RecordInput{PartyID: 1, Date: time.Now(), Amount: d("5"), Mode: ModeCash})
	require.Error(t, err)
	require.Empty(t, repo.payments)
	require.Zero(t, repo.seq)
	require.True(t, d("500").Equal(repo.balances[ledger.PartyCustomer][1]))
}
