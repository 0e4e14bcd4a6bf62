package payments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// TxRepository is the transactional payment API.
type TxRepository interface {
	NextReceiptNumber(ctx context.Context) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	AdjustBalance(ctx context.Context, party ledger.Party, partyID int64, delta decimal.Decimal) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository persists payments in PostgreSQL.
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

type txRepo struct {
	q db.Querier
}

func paymentTable(party ledger.Party) (table, column string) {
	if party == ledger.PartyVendor {
		return "vendor_payments", "vendor_id"
	}
	return "customer_payments", "customer_id"
}

func partyTable(party ledger.Party) string {
	if party == ledger.PartyVendor {
		return "vendors"
	}
	return "customers"
}

func (t *txRepo) NextReceiptNumber(ctx context.Context) (int64, error) {
	return db.NextSequence(ctx, t.q, db.SequenceReceipt)
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	table, column := paymentTable(p.Party)
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO `+table+` (`+column+`, payment_date, amount, discount, mode, receipt_number)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.PartyID, p.Date, p.Amount, p.Discount, string(p.Mode), p.ReceiptNumber).Scan(&id)
	if err != nil {
		switch {
		case db.IsForeignKeyViolation(err):
			return 0, shared.ErrNotFound.With("%s %d", p.Party, p.PartyID)
		case db.IsUniqueViolation(err):
			return 0, shared.ErrDuplicate.With("receipt %s", p.ReceiptNumber)
		case db.IsCheckViolation(err):
			return 0, shared.ErrInvalidInput.With("payment amounts out of range")
		}
		return 0, fmt.Errorf("payments: insert %s payment: %w", p.Party, err)
	}
	return id, nil
}

func (t *txRepo) AdjustBalance(ctx context.Context, party ledger.Party, partyID int64, delta decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE `+partyTable(party)+` SET balance = balance + $2 WHERE id = $1`, partyID, delta)
	if err != nil {
		return fmt.Errorf("payments: adjust %s balance: %w", party, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound.With("%s %d", party, partyID)
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.NewAuditLogger(t.q).Record(ctx, log)
}
