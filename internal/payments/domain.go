package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
)

// Mode is how a payment was made.
type Mode string

const (
	ModeCash Mode = "Cash"
	ModeBank Mode = "Bank"
)

// Payment is an immutable settlement against a party balance.
type Payment struct {
	ID            int64           `json:"id"`
	Party         ledger.Party    `json:"party"`
	PartyID       int64           `json:"party_id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Discount      decimal.Decimal `json:"discount"`
	Mode          Mode            `json:"mode"`
	ReceiptNumber string          `json:"receipt_number"`
}

// Credit is the amount removed from the party balance.
func (p Payment) Credit() decimal.Decimal {
	return p.Amount.Add(p.Discount)
}

// RecordInput is a payment received from a customer or made to a vendor.
type RecordInput struct {
	PartyID  int64           `json:"party_id" validate:"required,gt=0"`
	Date     time.Time       `json:"date" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Discount decimal.Decimal `json:"discount"`
	Mode     Mode            `json:"mode" validate:"required,oneof=Cash Bank"`
}
