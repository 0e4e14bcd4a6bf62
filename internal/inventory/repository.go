package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// LotStore is the transactional lot API. Other packages embed it in their
// own transactional repositories so allocation joins their unit of work.
type LotStore interface {
	// SelectLot returns the oldest lot with stock, or found=false.
	SelectLot(ctx context.Context, vendorID, itemID int64, target *time.Time) (lot Lot, found bool, err error)
	// DecrementLot subtracts d only if the lot still holds at least d.
	DecrementLot(ctx context.Context, lotID int64, d decimal.Decimal) (bool, error)
	// IncrementLot adds d back only if the lot stays within quantity received.
	IncrementLot(ctx context.Context, lotID int64, d decimal.Decimal) (bool, error)
	InsertReceipt(ctx context.Context, vendorID int64, date time.Time) (int64, error)
	InsertLot(ctx context.Context, lot Lot) (int64, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, LotStore) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, NewLotStore(tx))
	})
}

// ListLots returns lots for vendor/item in allocation order.
func (r *Repository) ListLots(ctx context.Context, vendorID, itemID int64) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM inventory_items
WHERE vendor_id = $1 AND item_id = $2
ORDER BY date_received ASC, id ASC`, vendorID, itemID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list lots: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Lot, error) {
		return scanLot(row)
	})
}

// NewLotStore binds the lot queries to q, usually a pgx.Tx.
func NewLotStore(q db.Querier) LotStore {
	return &lotStore{q: q}
}

type lotStore struct {
	q db.Querier
}

const lotColumns = `id, inventory_id, vendor_id, item_id, date_received, quantity_received, remaining_stock, rate`

func scanLot(row pgx.Row) (Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.ReceiptID, &l.VendorID, &l.ItemID, &l.DateReceived, &l.QuantityReceived, &l.RemainingStock, &l.Rate)
	return l, err
}

func (s *lotStore) SelectLot(ctx context.Context, vendorID, itemID int64, target *time.Time) (Lot, bool, error) {
	lot, err := scanLot(s.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM inventory_items
WHERE vendor_id = $1 AND item_id = $2 AND remaining_stock > 0
  AND ($3::date IS NULL OR date_received = $3::date)
ORDER BY date_received ASC, id ASC
LIMIT 1`, vendorID, itemID, target))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lot{}, false, nil
	}
	if err != nil {
		return Lot{}, false, fmt.Errorf("inventory: select lot: %w", err)
	}
	return lot, true, nil
}

func (s *lotStore) DecrementLot(ctx context.Context, lotID int64, d decimal.Decimal) (bool, error) {
	tag, err := s.q.Exec(ctx, `UPDATE inventory_items SET remaining_stock = remaining_stock - $2
WHERE id = $1 AND remaining_stock >= $2`, lotID, d)
	if err != nil {
		if db.IsCheckViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("inventory: decrement lot %d: %w", lotID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *lotStore) IncrementLot(ctx context.Context, lotID int64, d decimal.Decimal) (bool, error) {
	tag, err := s.q.Exec(ctx, `UPDATE inventory_items SET remaining_stock = remaining_stock + $2
WHERE id = $1 AND remaining_stock + $2 <= quantity_received`, lotID, d)
	if err != nil {
		return false, fmt.Errorf("inventory: release lot %d: %w", lotID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *lotStore) InsertReceipt(ctx context.Context, vendorID int64, date time.Time) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO inventory (vendor_id, date_received) VALUES ($1, $2) RETURNING id`, vendorID, date).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, shared.ErrNotFound.With("vendor %d", vendorID)
		}
		return 0, fmt.Errorf("inventory: insert receipt: %w", err)
	}
	return id, nil
}

func (s *lotStore) InsertLot(ctx context.Context, lot Lot) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `INSERT INTO inventory_items (inventory_id, vendor_id, item_id, date_received, quantity_received, remaining_stock, rate)
VALUES ($1, $2, $3, $4, $5, $5, $6) RETURNING id`,
		lot.ReceiptID, lot.VendorID, lot.ItemID, lot.DateReceived, lot.QuantityReceived, lot.Rate).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, shared.ErrNotFound.With("item %d", lot.ItemID)
		}
		return 0, fmt.Errorf("inventory: insert lot: %w", err)
	}
	return id, nil
}
