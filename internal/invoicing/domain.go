package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// Source records where an invoice's lines came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceAI     Source = "ai"
)

// State is the lifecycle of one invoice transaction.
type State int

const (
	StateDraft State = iota
	StateAllocating
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateAllocating:
		return "allocating"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// LineInput is one sale line as submitted. The vendor is named either by
// VendorID or by VendorCode; BatchMarker applies to either. Amount is only
// honoured for AI-sourced invoices.
type LineInput struct {
	ItemName    string           `json:"item_name"`
	VendorID    int64            `json:"vendor_id,omitempty"`
	VendorCode  string           `json:"vendor_code,omitempty"`
	BatchMarker string           `json:"batch_marker,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Weight      decimal.Decimal  `json:"weight"`
	Rate        decimal.Decimal  `json:"rate"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// CreateInvoiceInput is the request to bill a customer.
type CreateInvoiceInput struct {
	CustomerID     int64       `json:"customer_id" validate:"required,gt=0"`
	DisplayDate    time.Time   `json:"display_date" validate:"required"`
	Source         Source      `json:"source,omitempty" validate:"omitempty,oneof=manual ai"`
	IdempotencyKey string      `json:"idempotency_key,omitempty" validate:"omitempty,max=200"`
	Lines          []LineInput `json:"lines" validate:"required,min=1"`
}

// Line is a persisted, allocated invoice line.
type Line struct {
	ID               int64           `json:"id,omitempty"`
	ItemID           int64           `json:"item_id"`
	VendorID         int64           `json:"vendor_id"`
	LotID            int64           `json:"lot_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Weight           decimal.Decimal `json:"weight"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	AmountOverridden bool            `json:"amount_overridden"`
}

// Invoice is a committed customer invoice.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"invoice_number"`
	CustomerID  int64           `json:"customer_id"`
	Source      Source          `json:"source"`
	SystemDate  time.Time       `json:"system_date"`
	DisplayDate time.Time       `json:"display_date"`
	Total       decimal.Decimal `json:"total_amount"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Created is returned by CreateInvoice.
type Created struct {
	ID     int64           `json:"id"`
	Number string          `json:"invoice_number"`
	Total  decimal.Decimal `json:"total_amount"`
}

// LineError reports which line aborted an invoice.
type LineError struct {
	Line     int
	ItemName string
	Err      error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.ItemName, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// BatchFailure describes one invoice of a batch that did not commit.
type BatchFailure struct {
	Index  int         `json:"index"`
	Line   int         `json:"line,omitempty"`
	Code   shared.Code `json:"code,omitempty"`
	Reason string      `json:"reason"`
}

// BatchResult summarises a batch. Duplicates are invoices skipped because
// their idempotency key was already processed.
type BatchResult struct {
	Succeeded  int            `json:"succeeded"`
	Duplicates int            `json:"duplicates"`
	Created    []Created      `json:"created"`
	Failures   []BatchFailure `json:"failures"`
}
