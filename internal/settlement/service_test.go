package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

type memoryState struct {
	vendors  map[int64]catalog.VendorType
	balances map[int64]decimal.Decimal
	wataks   map[int64]Watak
	seq      int64
	nextID   int64
	audits   []shared.AuditLog
}

func (s memoryState) clone() memoryState {
	c := s
	c.balances = make(map[int64]decimal.Decimal, len(s.balances))
	for k, v := range s.balances {
		c.balances[k] = v
	}
	c.wataks = make(map[int64]Watak, len(s.wataks))
	for k, v := range s.wataks {
		c.wataks[k] = v
	}
	c.audits = append([]shared.AuditLog(nil), s.audits...)
	return c
}

// memoryRepo snapshots state on begin and restores it when fn fails.
type memoryRepo struct {
	state    memoryState
	failItem bool
	txCount  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		vendors:  map[int64]catalog.VendorType{1: catalog.VendorLocal, 2: catalog.VendorOutstation},
		balances: map[int64]decimal.Decimal{1: decimal.Zero, 2: decimal.Zero},
		wataks:   map[int64]Watak{},
	}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txCount++
	saved := m.state.clone()
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.state = saved
		return err
	}
	return nil
}

func (m *memoryRepo) GetWatak(_ context.Context, id int64) (Watak, error) {
	w, ok := m.state.wataks[id]
	if !ok {
		return Watak{}, shared.ErrNotFound
	}
	return w, nil
}

func (m *memoryRepo) ListWataks(_ context.Context, vendorID int64) ([]Watak, error) {
	var out []Watak
	for _, w := range m.state.wataks {
		if w.VendorID == vendorID {
			out = append(out, w)
		}
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) VendorType(_ context.Context, vendorID int64) (catalog.VendorType, error) {
	vt, ok := t.repo.state.vendors[vendorID]
	if !ok {
		return "", shared.ErrVendorUnresolved
	}
	return vt, nil
}

func (t *memoryTx) NextWatakNumber(context.Context) (int64, error) {
	t.repo.state.seq++
	return t.repo.state.seq, nil
}

func (t *memoryTx) InsertWatak(_ context.Context, w Watak) (int64, error) {
	t.repo.state.nextID++
	w.ID = t.repo.state.nextID
	t.repo.state.wataks[w.ID] = w
	return w.ID, nil
}

func (t *memoryTx) InsertWatakItems(_ context.Context, watakID int64, items []LineResult) error {
	if t.repo.failItem {
		return errors.New("disk full")
	}
	w := t.repo.state.wataks[watakID]
	w.Items = append([]LineResult(nil), items...)
	t.repo.state.wataks[watakID] = w
	return nil
}

func (t *memoryTx) AdjustVendorBalance(_ context.Context, vendorID int64, delta decimal.Decimal) error {
	b, ok := t.repo.state.balances[vendorID]
	if !ok {
		return shared.ErrVendorUnresolved
	}
	t.repo.state.balances[vendorID] = b.Add(delta)
	return nil
}

func (t *memoryTx) GetWatakForUpdate(ctx context.Context, id int64) (Watak, error) {
	return t.repo.GetWatak(ctx, id)
}

func (t *memoryTx) DeleteWatak(_ context.Context, id int64) error {
	delete(t.repo.state.wataks, id)
	return nil
}

func (t *memoryTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	t.repo.state.audits = append(t.repo.state.audits, log)
	return nil
}

type recordingInvalidator struct {
	vendors []int64
}

func (r *recordingInvalidator) InvalidateVendor(_ context.Context, vendorID int64) {
	r.vendors = append(r.vendors, vendorID)
}

func testConfig() Config {
	return Config{LocalCommission: d("10"), DefaultCommission: d("6"), NumberWidth: 4}
}

func appleInput(vendorID int64) CreateWatakInput {
	return CreateWatakInput{
		VendorID:  vendorID,
		Date:      time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		LaborRate: d("2"),
		Lines: []Line{
			{ItemName: "Apple", Quantity: d("10"), Rate: d("12.3")},
			{ItemName: "krade", Quantity: d("5"), Rate: d("1")},
		},
	}
}

func TestCreateWatakCreditsVendor(t *testing.T) {
	repo := newMemoryRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, testConfig(), inv, nil, nil)

	created, err := svc.CreateWatak(context.Background(), appleInput(1))
	require.NoError(t, err)
	require.Equal(t, "0001", created.Number)
	// Proceeds 128, local commission floor(12.8)=12, labor 20 (krade exempt).
	requireDec(t, "96", created.NetPayable)
	requireDec(t, "96", repo.state.balances[1])

	w := repo.state.wataks[created.ID]
	requireDec(t, "128", w.TotalAmount)
	requireDec(t, "10", w.CommissionPercent)
	require.Len(t, w.Items, 2)
	require.Equal(t, []int64{1}, inv.vendors)
	require.Len(t, repo.state.audits, 1)
}

func TestCreateWatakOutstationDefault(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testConfig(), nil, nil, nil)

	created, err := svc.CreateWatak(context.Background(), appleInput(2))
	require.NoError(t, err)
	requireDec(t, "6", repo.state.wataks[created.ID].CommissionPercent)
	// floor(128 * 6 / 100) = 7; 128 - 7 - 20 = 101.
	requireDec(t, "101", created.NetPayable)
}

func TestCreateWatakExplicitCommission(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testConfig(), nil, nil, nil)
	in := appleInput(1)
	pct := d("0")
	in.CommissionPercent = &pct

	created, err := svc.CreateWatak(context.Background(), in)
	require.NoError(t, err)
	requireDec(t, "108", created.NetPayable)
}

func TestCreateWatakZeroSettlementWritesNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testConfig(), nil, nil, nil)
	in := appleInput(1)
	in.Lines = []Line{{ItemName: "Apple", Quantity: d("10")}}

	_, err := svc.CreateWatak(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrZeroSettlement)
	require.Empty(t, repo.state.wataks)
	require.Zero(t, repo.state.seq)
	requireDec(t, "0", repo.state.balances[1])
}

func TestCreateWatakExplicitCommissionRejectsWithoutTransaction(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testConfig(), nil, nil, nil)
	in := appleInput(1)
	pct := d("5")
	in.CommissionPercent = &pct
	in.Lines = []Line{{ItemName: "Apple", Quantity: d("1"), Rate: d("0.2")}}

	_, err := svc.CreateWatak(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrZeroSettlement)
	require.Zero(t, repo.txCount)
}

func TestCreateWatakRollsBackOnItemFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failItem = true
	svc := NewService(repo, testConfig(), nil, nil, nil)

	_, err := svc.CreateWatak(context.Background(), appleInput(1))
	require.Error(t, err)
	require.Empty(t, repo.state.wataks)
	require.Zero(t, repo.state.seq)
	requireDec(t, "0", repo.state.balances[1])
}

func TestCreateWatakUnknownVendor(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig(), nil, nil, nil)
	_, err := svc.CreateWatak(context.Background(), appleInput(9))
	require.ErrorIs(t, err, shared.ErrVendorUnresolved)
}

func TestCreateWatakValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig(), nil, nil, nil)
	_, err := svc.CreateWatak(context.Background(), CreateWatakInput{VendorID: 1})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDeleteWatakReversesBalance(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.balances[1] = d("40")
	inv := &recordingInvalidator{}
	svc := NewService(repo, testConfig(), inv, nil, nil)

	created, err := svc.CreateWatak(context.Background(), appleInput(1))
	require.NoError(t, err)
	requireDec(t, "136", repo.state.balances[1])

	require.NoError(t, svc.DeleteWatak(context.Background(), created.ID))
	requireDec(t, "40", repo.state.balances[1])
	require.Empty(t, repo.state.wataks)
	require.Equal(t, []int64{1, 1}, inv.vendors)

	err = svc.DeleteWatak(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	requireDec(t, "40", repo.state.balances[1])
}
