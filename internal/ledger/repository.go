package ledger

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

// Repository reads ledger snapshots from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerTxnsSQL = `
SELECT 'invoice' AS kind, id, invoice_number AS number, display_date AS txn_date, total_amount AS amount, 0::numeric AS discount, '' AS mode
FROM customer_invoices WHERE customer_id = $1
UNION ALL
SELECT 'payment', id, receipt_number, payment_date, amount, discount, mode
FROM customer_payments WHERE customer_id = $1`

const vendorTxnsSQL = `
SELECT 'watak' AS kind, id, watak_number AS number, watak_date AS txn_date, net_payable AS amount, 0::numeric AS discount, '' AS mode
FROM vendor_wataks WHERE vendor_id = $1
UNION ALL
SELECT 'purchase_invoice', id, invoice_number, invoice_date, total_amount, 0::numeric, ''
FROM purchase_invoices WHERE vendor_id = $1
UNION ALL
SELECT 'payment', id, receipt_number, payment_date, amount, discount, mode
FROM vendor_payments WHERE vendor_id = $1`

// CustomerSnapshot reads the customer's balance and history in one snapshot.
func (r *Repository) CustomerSnapshot(ctx context.Context, customerID int64) (Snapshot, error) {
	return r.snapshot(ctx, PartyCustomer, customerID,
		`SELECT name, balance, opening_balance FROM customers WHERE id = $1`, customerTxnsSQL)
}

// VendorSnapshot reads the vendor's balance and history in one snapshot.
func (r *Repository) VendorSnapshot(ctx context.Context, vendorID int64) (Snapshot, error) {
	return r.snapshot(ctx, PartyVendor, vendorID,
		`SELECT name, balance, opening_balance FROM vendors WHERE id = $1`, vendorTxnsSQL)
}

func (r *Repository) snapshot(ctx context.Context, party Party, id int64, partySQL, txnSQL string) (Snapshot, error) {
	snap := Snapshot{Party: party, PartyID: id}
	err := db.WithTx(ctx, r.pool, db.Snapshot, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, partySQL, id).Scan(&snap.Name, &snap.Balance, &snap.OpeningBalance); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, txnSQL, id)
		if err != nil {
			return err
		}
		snap.Transactions, err = pgx.CollectRows(rows, scanTransaction)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, shared.ErrNotFound.With("%s %d", party, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("ledger: %s snapshot: %w", party, err)
	}
	return snap, nil
}

func scanTransaction(row pgx.CollectableRow) (Transaction, error) {
	var (
		kind, number, mode string
		id                 int64
		date               time.Time
		amount, discount   decimal.Decimal
	)
	if err := row.Scan(&kind, &id, &number, &date, &amount, &discount, &mode); err != nil {
		return nil, err
	}
	switch kind {
	case "invoice":
		return InvoiceTxn{ID: id, Number: number, Date: date, Total: amount}, nil
	case "watak":
		return WatakTxn{ID: id, Number: number, Date: date, NetPayable: amount}, nil
	case "purchase_invoice":
		return PurchaseTxn{ID: id, Number: number, Date: date, Total: amount}, nil
	case "payment":
		return PaymentTxn{ID: id, Receipt: number, Date: date, Amount: amount, Discount: discount, Mode: mode}, nil
	default:
		return nil, fmt.Errorf("ledger: unknown transaction kind %q", kind)
	}
}

// CustomerIDs lists every customer id.
func (r *Repository) CustomerIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM customers ORDER BY id`)
}

// VendorIDs lists every vendor id.
func (r *Repository) VendorIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM vendors ORDER BY id`)
}

func (r *Repository) ids(ctx context.Context, sql string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("ledger: list ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
