package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// TxRepository is the transactional invoice API. It embeds the lot store so
// allocations share the invoice's transaction.
type TxRepository interface {
	inventory.LotStore
	// NextInvoiceNumber locks the invoice counter until the transaction ends.
	NextInvoiceNumber(ctx context.Context) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLines(ctx context.Context, invoiceID int64, lines []Line) error
	AdjustCustomerBalance(ctx context.Context, customerID int64, delta decimal.Decimal) error
	// GetInvoiceForUpdate loads and locks an invoice with its lines.
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a read-committed transaction so the lot
// decrement re-checks remaining stock against the latest committed row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{LotStore: inventory.NewLotStore(tx), q: tx})
	})
}

// GetInvoice loads an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := db.WithTx(ctx, r.pool, db.Snapshot, func(tx pgx.Tx) error {
		var err error
		inv, err = loadInvoice(ctx, tx, id, false)
		return err
	})
	return inv, err
}

const invoiceColumns = `id, invoice_number, customer_id, source, system_date, display_date, total_amount`

func loadInvoice(ctx context.Context, q db.Querier, id int64, lock bool) (Invoice, error) {
	sql := `SELECT ` + invoiceColumns + ` FROM customer_invoices WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var inv Invoice
	var source string
	err := q.QueryRow(ctx, sql, id).Scan(&inv.ID, &inv.Number, &inv.CustomerID, &source, &inv.SystemDate, &inv.DisplayDate, &inv.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound.With("invoice %d", id)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: load invoice: %w", err)
	}
	inv.Source = Source(source)

	rows, err := q.Query(ctx, `SELECT id, item_id, vendor_id, inventory_item_id, quantity, weight, rate, amount, amount_overridden
FROM customer_invoice_lines WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: load lines: %w", err)
	}
	inv.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.ItemID, &l.VendorID, &l.LotID, &l.Quantity, &l.Weight, &l.Rate, &l.Amount, &l.AmountOverridden)
		return l, err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: scan lines: %w", err)
	}
	return inv, nil
}

type txRepo struct {
	inventory.LotStore
	q db.Querier
}

func (t *txRepo) NextInvoiceNumber(ctx context.Context) (int64, error) {
	return db.NextSequence(ctx, t.q, db.SequenceInvoice)
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO customer_invoices (invoice_number, customer_id, source, system_date, display_date, total_amount)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		inv.Number, inv.CustomerID, string(inv.Source), inv.SystemDate, inv.DisplayDate, inv.Total).Scan(&id)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return 0, shared.ErrDuplicate.With("invoice number %s", inv.Number)
		case db.IsForeignKeyViolation(err):
			return 0, shared.ErrNotFound.With("customer %d", inv.CustomerID)
		}
		return 0, fmt.Errorf("invoicing: insert invoice: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLines(ctx context.Context, invoiceID int64, lines []Line) error {
	for i, l := range lines {
		_, err := t.q.Exec(ctx, `INSERT INTO customer_invoice_lines (invoice_id, item_id, vendor_id, inventory_item_id, quantity, weight, rate, amount, amount_overridden)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			invoiceID, l.ItemID, l.VendorID, l.LotID, l.Quantity, l.Weight, l.Rate, l.Amount, l.AmountOverridden)
		if err != nil {
			return fmt.Errorf("invoicing: insert line %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *txRepo) AdjustCustomerBalance(ctx context.Context, customerID int64, delta decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE customers SET balance = balance + $2 WHERE id = $1`, customerID, delta)
	if err != nil {
		return fmt.Errorf("invoicing: adjust customer balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound.With("customer %d", customerID)
	}
	return nil
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return loadInvoice(ctx, t.q, id, true)
}

func (t *txRepo) DeleteInvoice(ctx context.Context, id int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM customer_invoice_lines WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("invoicing: delete lines: %w", err)
	}
	tag, err := t.q.Exec(ctx, `DELETE FROM customer_invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoicing: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound.With("invoice %d", id)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.NewAuditLogger(t.q).Record(ctx, log)
}
