// Package inventorytest provides an in-memory lot store for tests.
package inventorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
)

// Lots is a concurrency-safe lot table. Each conditional update is atomic,
// matching a single-row UPDATE in PostgreSQL.
type Lots struct {
	mu          sync.Mutex
	lots        map[int64]*inventory.Lot
	receipts    map[int64]int64
	nextLot     int64
	nextReceipt int64

	// AfterSelect, when set, runs after SelectLot has chosen a lot and before
	// it returns. Tests use it to line racers up between select and decrement.
	AfterSelect func()
}

// New returns an empty table.
func New() *Lots {
	return &Lots{lots: map[int64]*inventory.Lot{}, receipts: map[int64]int64{}}
}

// AddLot seeds a lot and returns its id.
func (m *Lots) AddLot(vendorID, itemID int64, date time.Time, qty decimal.Decimal) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReceipt++
	m.receipts[m.nextReceipt] = vendorID
	m.nextLot++
	m.lots[m.nextLot] = &inventory.Lot{
		ID:               m.nextLot,
		ReceiptID:        m.nextReceipt,
		VendorID:         vendorID,
		ItemID:           itemID,
		DateReceived:     date,
		QuantityReceived: qty,
		RemainingStock:   qty,
	}
	return m.nextLot
}

// Remaining reports a lot's remaining stock.
func (m *Lots) Remaining(lotID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lot, ok := m.lots[lotID]; ok {
		return lot.RemainingStock
	}
	return decimal.Zero
}

// Count reports how many lots exist.
func (m *Lots) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lots)
}

// Begin opens a journaled view whose writes can be undone.
func (m *Lots) Begin() *Tx {
	return &Tx{m: m}
}

// WithTx runs fn in a journaled view and undoes its writes when fn fails.
func (m *Lots) WithTx(ctx context.Context, fn func(context.Context, inventory.LotStore) error) error {
	tx := m.Begin()
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

// ListLots returns lots for vendor/item in allocation order.
func (m *Lots) ListLots(_ context.Context, vendorID, itemID int64) ([]inventory.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.Lot
	for _, lot := range m.lots {
		if lot.VendorID == vendorID && lot.ItemID == itemID {
			out = append(out, *lot)
		}
	}
	sortFIFO(out)
	return out, nil
}

func sortFIFO(lots []inventory.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].DateReceived.Equal(lots[j].DateReceived) {
			return lots[i].DateReceived.Before(lots[j].DateReceived)
		}
		return lots[i].ID < lots[j].ID
	})
}

// Tx implements inventory.LotStore over Lots with an undo journal.
type Tx struct {
	m    *Lots
	undo []func()
}

// Rollback reverts every write made through tx, newest first.
func (t *Tx) Rollback() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *Tx) SelectLot(_ context.Context, vendorID, itemID int64, target *time.Time) (inventory.Lot, bool, error) {
	t.m.mu.Lock()
	var candidates []inventory.Lot
	for _, lot := range t.m.lots {
		if lot.VendorID != vendorID || lot.ItemID != itemID || !lot.RemainingStock.IsPositive() {
			continue
		}
		if target != nil && !lot.DateReceived.Equal(*target) {
			continue
		}
		candidates = append(candidates, *lot)
	}
	t.m.mu.Unlock()

	sortFIFO(candidates)
	if t.m.AfterSelect != nil {
		t.m.AfterSelect()
	}
	if len(candidates) == 0 {
		return inventory.Lot{}, false, nil
	}
	return candidates[0], true, nil
}

func (t *Tx) DecrementLot(_ context.Context, lotID int64, d decimal.Decimal) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	lot, ok := t.m.lots[lotID]
	if !ok || lot.RemainingStock.LessThan(d) {
		return false, nil
	}
	lot.RemainingStock = lot.RemainingStock.Sub(d)
	t.undo = append(t.undo, func() { lot.RemainingStock = lot.RemainingStock.Add(d) })
	return true, nil
}

func (t *Tx) IncrementLot(_ context.Context, lotID int64, d decimal.Decimal) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	lot, ok := t.m.lots[lotID]
	if !ok || lot.RemainingStock.Add(d).GreaterThan(lot.QuantityReceived) {
		return false, nil
	}
	lot.RemainingStock = lot.RemainingStock.Add(d)
	t.undo = append(t.undo, func() { lot.RemainingStock = lot.RemainingStock.Sub(d) })
	return true, nil
}

func (t *Tx) InsertReceipt(_ context.Context, vendorID int64, _ time.Time) (int64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.nextReceipt++
	id := t.m.nextReceipt
	t.m.receipts[id] = vendorID
	t.undo = append(t.undo, func() { delete(t.m.receipts, id) })
	return id, nil
}

func (t *Tx) InsertLot(_ context.Context, lot inventory.Lot) (int64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.nextLot++
	lot.ID = t.m.nextLot
	lot.RemainingStock = lot.QuantityReceived
	stored := lot
	t.m.lots[lot.ID] = &stored
	t.undo = append(t.undo, func() { delete(t.m.lots, stored.ID) })
	return lot.ID, nil
}
