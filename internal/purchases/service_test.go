package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory/inventorytest"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

type memoryRepo struct {
	lots       *inventorytest.Lots
	categories map[int64]catalog.VendorCategory
	balances   map[int64]decimal.Decimal
	invoices   []Invoice
	seq        int64
	failLines  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		lots:       inventorytest.New(),
		categories: map[int64]catalog.VendorCategory{1: catalog.CategoryPurchase, 2: catalog.CategoryCommission},
		balances:   map[int64]decimal.Decimal{1: decimal.Zero, 2: decimal.Zero},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	seq, invoices := m.seq, append([]Invoice(nil), m.invoices...)
	balances := map[int64]decimal.Decimal{}
	for k, v := range m.balances {
		balances[k] = v
	}
	tx := &memoryTx{Tx: m.lots.Begin(), repo: m}
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		m.seq, m.invoices, m.balances = seq, invoices, balances
		return err
	}
	return nil
}

type memoryTx struct {
	*inventorytest.Tx
	repo *memoryRepo
}

func (t *memoryTx) VendorCategory(_ context.Context, id int64) (catalog.VendorCategory, error) {
	c, ok := t.repo.categories[id]
	if !ok {
		return "", shared.ErrVendorUnresolved
	}
	return c, nil
}

func (t *memoryTx) NextPurchaseNumber(context.Context) (int64, error) {
	t.repo.seq++
	return t.repo.seq, nil
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	inv.ID = int64(len(t.repo.invoices) + 1)
	t.repo.invoices = append(t.repo.invoices, inv)
	return inv.ID, nil
}

func (t *memoryTx) InsertLines(context.Context, int64, []Line) error {
	if t.repo.failLines {
		return shared.ErrDuplicate
	}
	return nil
}

func (t *memoryTx) AdjustVendorBalance(_ context.Context, id int64, delta decimal.Decimal) error {
	t.repo.balances[id] = t.repo.balances[id].Add(delta)
	return nil
}

func (t *memoryTx) RecordAudit(context.Context, shared.AuditLog) error { return nil }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func purchase(vendorID int64) CreateInput {
	return CreateInput{
		VendorID: vendorID,
		Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{ItemID: 1, Quantity: d("10"), Rate: d("40")},
			{ItemID: 2, Quantity: d("3"), Weight: d("25.5"), Rate: d("12")},
		},
	}
}

func TestCreatePurchaseInvoiceStocksLotsAndCreditsVendor(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, 4, nil)

	inv, err := svc.CreatePurchaseInvoice(context.Background(), purchase(1))
	require.NoError(t, err)
	require.Equal(t, "0001", inv.Number)
	// 400 + 25.5 * 12 = 706.
	require.True(t, d("706").Equal(inv.Total))
	require.True(t, d("706").Equal(repo.balances[1]))
	require.Equal(t, 2, repo.lots.Count())
	require.True(t, d("10").Equal(repo.lots.Remaining(inv.Lines[0].LotID)))
	require.True(t, d("25.5").Equal(repo.lots.Remaining(inv.Lines[1].LotID)))
}

func TestCreatePurchaseInvoiceRequiresPurchaseVendor(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, 4, nil)

	_, err := svc.CreatePurchaseInvoice(context.Background(), purchase(2))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.Zero(t, repo.lots.Count())

	_, err = svc.CreatePurchaseInvoice(context.Background(), purchase(7))
	require.ErrorIs(t, err, shared.ErrVendorUnresolved)
}

func TestCreatePurchaseInvoiceRollsBackLots(t *testing.T) {
	repo := newMemoryRepo()
	repo.failLines = true
	svc := NewService(repo, nil, 4, nil)

	_, err := svc.CreatePurchaseInvoice(context.Background(), purchase(1))
	require.Error(t, err)
	require.Zero(t, repo.lots.Count())
	require.Empty(t, repo.invoices)
	require.True(t, repo.balances[1].IsZero())
}

func TestCreatePurchaseInvoiceRejectsBadLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, 4, nil)
	in := purchase(1)
	in.Lines[0].Rate = decimal.Zero
	_, err := svc.CreatePurchaseInvoice(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestCreatePurchaseInvoiceRejectsUnstorableScale(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, 4, nil)

	in := purchase(1)
	in.Lines[1].Weight = d("25.5005")
	_, err := svc.CreatePurchaseInvoice(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidLine)

	in = purchase(1)
	in.Lines[0].Rate = d("40.001")
	_, err = svc.CreatePurchaseInvoice(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidLine)
	require.Zero(t, repo.lots.Count())
	require.True(t, repo.balances[1].IsZero())
}
