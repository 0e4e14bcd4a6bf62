package db

import (
	"context"
	"fmt"
)

// Document sequence names.
const (
	SequenceInvoice  = "invoice"
	SequenceWatak    = "watak"
	SequenceReceipt  = "receipt"
	SequencePurchase = "purchase"
)

// NextSequence increments the named counter row and returns the new value.
// The row stays locked until the surrounding transaction ends, so concurrent
// callers serialize and a rollback returns the number.
func NextSequence(ctx context.Context, q Querier, name string) (int64, error) {
	var next int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (name, last_value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, name).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("platform/db: next %s sequence: %w", name, err)
	}
	return next, nil
}

// FormatNumber zero-pads n to width digits.
func FormatNumber(n int64, width int) string {
	if width <= 0 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%0*d", width, n)
}
