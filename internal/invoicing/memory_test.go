package invoicing

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory/inventorytest"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// memoryRepo keeps invoices beside an inventorytest lot table. The invoice
// counter is held by a transaction from first use until it ends, like the
// counter row in PostgreSQL.
type memoryRepo struct {
	lots *inventorytest.Lots

	mu       sync.Mutex
	invoices map[int64]Invoice
	balances map[int64]decimal.Decimal
	audits   int
	nextID   int64

	seqLock sync.Mutex
	seq     int64
}

func newMemoryRepo(customers ...int64) *memoryRepo {
	m := &memoryRepo{
		lots:     inventorytest.New(),
		invoices: map[int64]Invoice{},
		balances: map[int64]decimal.Decimal{},
	}
	for _, id := range customers {
		m.balances[id] = decimal.Zero
	}
	return m
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{Tx: m.lots.Begin(), repo: m}
	err := fn(ctx, tx)
	if err != nil {
		tx.rollback()
	}
	if tx.holdsSeq {
		m.seqLock.Unlock()
	}
	return err
}

func (m *memoryRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, nil
}

func (m *memoryRepo) invoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

func (m *memoryRepo) balance(customerID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[customerID]
}

type memoryTx struct {
	*inventorytest.Tx
	repo     *memoryRepo
	undo     []func()
	holdsSeq bool
}

func (t *memoryTx) rollback() {
	t.Tx.Rollback()
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) NextInvoiceNumber(context.Context) (int64, error) {
	if !t.holdsSeq {
		t.repo.seqLock.Lock()
		t.holdsSeq = true
	}
	t.repo.seq++
	t.undo = append(t.undo, func() { t.repo.seq-- })
	return t.repo.seq, nil
}

func (t *memoryTx) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if _, ok := t.repo.balances[inv.CustomerID]; !ok {
		return 0, shared.ErrNotFound.With("customer %d", inv.CustomerID)
	}
	for _, existing := range t.repo.invoices {
		if existing.Number == inv.Number {
			return 0, shared.ErrDuplicate
		}
	}
	t.repo.nextID++
	inv.ID = t.repo.nextID
	t.repo.invoices[inv.ID] = inv
	t.undo = append(t.undo, func() { delete(t.repo.invoices, inv.ID) })
	return inv.ID, nil
}

func (t *memoryTx) InsertLines(_ context.Context, invoiceID int64, lines []Line) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	inv := t.repo.invoices[invoiceID]
	inv.Lines = append([]Line(nil), lines...)
	t.repo.invoices[invoiceID] = inv
	return nil
}

func (t *memoryTx) AdjustCustomerBalance(_ context.Context, customerID int64, delta decimal.Decimal) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	b, ok := t.repo.balances[customerID]
	if !ok {
		return shared.ErrNotFound
	}
	t.repo.balances[customerID] = b.Add(delta)
	t.undo = append(t.undo, func() { t.repo.balances[customerID] = t.repo.balances[customerID].Sub(delta) })
	return nil
}

func (t *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return t.repo.GetInvoice(ctx, id)
}

func (t *memoryTx) DeleteInvoice(_ context.Context, id int64) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	inv, ok := t.repo.invoices[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(t.repo.invoices, id)
	t.undo = append(t.undo, func() { t.repo.invoices[id] = inv })
	return nil
}

func (t *memoryTx) RecordAudit(context.Context, shared.AuditLog) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.audits++
	t.undo = append(t.undo, func() { t.repo.audits-- })
	return nil
}

type itemTable map[string]catalog.Item

func (t itemTable) ResolveItem(_ context.Context, name string) (catalog.Item, error) {
	if it, ok := t[strings.ToLower(strings.TrimSpace(name))]; ok {
		return it, nil
	}
	return catalog.Item{}, shared.ErrItemNotFound.With("%q", name)
}

type shortcutTable map[string]int64

func (t shortcutTable) VendorIDByShortcut(_ context.Context, shortcut string) (int64, error) {
	if id, ok := t[strings.ToLower(shortcut)]; ok {
		return id, nil
	}
	return 0, shared.ErrVendorUnresolved.With("shortcut %q", shortcut)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) Claim(_ context.Context, _, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Release(_ context.Context, _, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type recordingLedger struct {
	mu        sync.Mutex
	customers []int64
}

func (r *recordingLedger) InvalidateCustomer(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers = append(r.customers, id)
}
