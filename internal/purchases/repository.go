package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// TxRepository is the transactional purchase API. Goods are received
// through the embedded lot store.
type TxRepository interface {
	inventory.LotStore
	VendorCategory(ctx context.Context, vendorID int64) (catalog.VendorCategory, error)
	NextPurchaseNumber(ctx context.Context) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLines(ctx context.Context, invoiceID int64, lines []Line) error
	AdjustVendorBalance(ctx context.Context, vendorID int64, delta decimal.Decimal) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository persists purchase invoices in PostgreSQL.
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
		return fn(ctx, &txRepo{LotStore: inventory.NewLotStore(tx), q: tx})
	})
}

type txRepo struct {
	inventory.LotStore
	q db.Querier
}

func (t *txRepo) VendorCategory(ctx context.Context, vendorID int64) (catalog.VendorCategory, error) {
	var category string
	err := t.q.QueryRow(ctx, `SELECT category FROM vendors WHERE id = $1 FOR UPDATE`, vendorID).Scan(&category)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrVendorUnresolved.With("vendor %d", vendorID)
	}
	if err != nil {
		return "", fmt.Errorf("purchases: vendor category: %w", err)
	}
	return catalog.VendorCategory(category), nil
}

func (t *txRepo) NextPurchaseNumber(ctx context.Context) (int64, error) {
	return db.NextSequence(ctx, t.q, db.SequencePurchase)
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO purchase_invoices (vendor_id, invoice_number, invoice_date, inventory_id, total_amount)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, inv.VendorID, inv.Number, inv.Date, inv.ReceiptID, inv.Total).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.ErrDuplicate.With("purchase number %s", inv.Number)
		}
		return 0, fmt.Errorf("purchases: insert invoice: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertLines(ctx context.Context, invoiceID int64, lines []Line) error {
	for i, l := range lines {
		_, err := t.q.Exec(ctx, `INSERT INTO purchase_invoice_lines (purchase_invoice_id, item_id, inventory_item_id, quantity, weight, rate, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, invoiceID, l.ItemID, l.LotID, l.Quantity, l.Weight, l.Rate, l.Amount)
		if err != nil {
			return fmt.Errorf("purchases: insert line %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *txRepo) AdjustVendorBalance(ctx context.Context, vendorID int64, delta decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE vendors SET balance = balance + $2 WHERE id = $1`, vendorID, delta)
	if err != nil {
		return fmt.Errorf("purchases: adjust vendor balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrVendorUnresolved.With("vendor %d", vendorID)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.NewAuditLogger(t.q).Record(ctx, log)
}
