package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// TxRepository is the transactional watak API.
type TxRepository interface {
	VendorType(ctx context.Context, vendorID int64) (catalog.VendorType, error)
	NextWatakNumber(ctx context.Context) (int64, error)
	InsertWatak(ctx context.Context, w Watak) (int64, error)
	InsertWatakItems(ctx context.Context, watakID int64, items []LineResult) error
	AdjustVendorBalance(ctx context.Context, vendorID int64, delta decimal.Decimal) error
	// GetWatakForUpdate locks the watak row until the transaction ends.
	GetWatakForUpdate(ctx context.Context, id int64) (Watak, error)
	DeleteWatak(ctx context.Context, id int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository persists wataks in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// GetWatak loads a watak with its items.
func (r *Repository) GetWatak(ctx context.Context, id int64) (Watak, error) {
	var w Watak
	err := db.WithTx(ctx, r.pool, db.Snapshot, func(tx pgx.Tx) error {
		var err error
		w, err = scanWatak(tx.QueryRow(ctx, `SELECT `+watakColumns+` FROM vendor_wataks WHERE id = $1`, id))
		if err != nil {
			return err
		}
		w.Items, err = loadItems(ctx, tx, id)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Watak{}, shared.ErrNotFound.With("watak %d", id)
	}
	if err != nil {
		return Watak{}, fmt.Errorf("settlement: get watak: %w", err)
	}
	return w, nil
}

// ListWataks returns a vendor's wataks newest first, without items.
func (r *Repository) ListWataks(ctx context.Context, vendorID int64) ([]Watak, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+watakColumns+` FROM vendor_wataks
WHERE vendor_id = $1 ORDER BY watak_date DESC, id DESC`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("settlement: list wataks: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Watak, error) {
		return scanWatak(row)
	})
}

const watakColumns = `id, vendor_id, watak_number, watak_date, inventory_date, vehicle_charges, bardan, other_charges,
commission_percent, labor_rate, total_amount, total_commission, total_labor, net_payable`

func scanWatak(row pgx.Row) (Watak, error) {
	var w Watak
	err := row.Scan(&w.ID, &w.VendorID, &w.Number, &w.Date, &w.InventoryDate, &w.VehicleCharges, &w.Bardan, &w.OtherCharges,
		&w.CommissionPercent, &w.LaborRate, &w.TotalAmount, &w.TotalCommission, &w.TotalLabor, &w.NetPayable)
	return w, err
}

func loadItems(ctx context.Context, q db.Querier, watakID int64) ([]LineResult, error) {
	rows, err := q.Query(ctx, `SELECT item_name, quantity, weight, rate, commission_percent, labor, amount
FROM watak_items WHERE watak_id = $1 ORDER BY id`, watakID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineResult, error) {
		var l LineResult
		err := row.Scan(&l.ItemName, &l.Quantity, &l.Weight, &l.Rate, &l.CommissionPercent, &l.Labor, &l.Amount)
		return l, err
	})
}

type txRepo struct {
	q db.Querier
}

func (t *txRepo) VendorType(ctx context.Context, vendorID int64) (catalog.VendorType, error) {
	var vt string
	err := t.q.QueryRow(ctx, `SELECT vendor_type FROM vendors WHERE id = $1`, vendorID).Scan(&vt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrVendorUnresolved.With("vendor %d", vendorID)
	}
	if err != nil {
		return "", fmt.Errorf("settlement: vendor type: %w", err)
	}
	return catalog.VendorType(vt), nil
}

func (t *txRepo) NextWatakNumber(ctx context.Context) (int64, error) {
	return db.NextSequence(ctx, t.q, db.SequenceWatak)
}

func (t *txRepo) InsertWatak(ctx context.Context, w Watak) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO vendor_wataks (vendor_id, watak_number, watak_date, inventory_date, vehicle_charges, bardan,
other_charges, commission_percent, labor_rate, total_amount, total_commission, total_labor, net_payable)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		w.VendorID, w.Number, w.Date, w.InventoryDate, w.VehicleCharges, w.Bardan, w.OtherCharges,
		w.CommissionPercent, w.LaborRate, w.TotalAmount, w.TotalCommission, w.TotalLabor, w.NetPayable).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.ErrDuplicate.With("watak number %s", w.Number)
		}
		return 0, fmt.Errorf("settlement: insert watak: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertWatakItems(ctx context.Context, watakID int64, items []LineResult) error {
	for _, it := range items {
		_, err := t.q.Exec(ctx, `INSERT INTO watak_items (watak_id, item_name, quantity, weight, rate, commission_percent, labor, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, watakID, it.ItemName, it.Quantity, it.Weight, it.Rate, it.CommissionPercent, it.Labor, it.Amount)
		if err != nil {
			return fmt.Errorf("settlement: insert watak item: %w", err)
		}
	}
	return nil
}

func (t *txRepo) AdjustVendorBalance(ctx context.Context, vendorID int64, delta decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE vendors SET balance = balance + $2 WHERE id = $1`, vendorID, delta)
	if err != nil {
		return fmt.Errorf("settlement: adjust vendor balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrVendorUnresolved.With("vendor %d", vendorID)
	}
	return nil
}

func (t *txRepo) GetWatakForUpdate(ctx context.Context, id int64) (Watak, error) {
	w, err := scanWatak(t.q.QueryRow(ctx, `SELECT `+watakColumns+` FROM vendor_wataks WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Watak{}, shared.ErrNotFound.With("watak %d", id)
	}
	if err != nil {
		return Watak{}, fmt.Errorf("settlement: lock watak: %w", err)
	}
	return w, nil
}

func (t *txRepo) DeleteWatak(ctx context.Context, id int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM watak_items WHERE watak_id = $1`, id); err != nil {
		return fmt.Errorf("settlement: delete watak items: %w", err)
	}
	tag, err := t.q.Exec(ctx, `DELETE FROM vendor_wataks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("settlement: delete watak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound.With("watak %d", id)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.NewAuditLogger(t.q).Record(ctx, log)
}
