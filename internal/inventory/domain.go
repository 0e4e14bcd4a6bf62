package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one receipt line with its own depletable stock counter.
type Lot struct {
	ID               int64           `json:"id"`
	ReceiptID        int64           `json:"receipt_id"`
	VendorID         int64           `json:"vendor_id"`
	ItemID           int64           `json:"item_id"`
	DateReceived     time.Time       `json:"date_received"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	RemainingStock   decimal.Decimal `json:"remaining_stock"`
	Rate             decimal.Decimal `json:"rate"`
}

// AllocateInput asks for stock of one item from one vendor. TargetDate, when
// set, restricts candidates to lots received on that date.
type AllocateInput struct {
	VendorID   int64           `json:"vendor_id" validate:"required,gt=0"`
	ItemID     int64           `json:"item_id" validate:"required,gt=0"`
	TargetDate *time.Time      `json:"target_date,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Weight     decimal.Decimal `json:"weight"`
}

// Deduction returns the amount removed from the lot: weight when present,
// otherwise quantity.
func Deduction(quantity, weight decimal.Decimal) decimal.Decimal {
	if weight.IsPositive() {
		return weight
	}
	return quantity
}

// Deduction applies the package rule to the input.
func (in AllocateInput) Deduction() decimal.Decimal {
	return Deduction(in.Quantity, in.Weight)
}

// Allocation records which lot covered a deduction.
type Allocation struct {
	LotID        int64           `json:"lot_id"`
	Deducted     decimal.Decimal `json:"deducted"`
	DateReceived time.Time       `json:"date_received"`
}

// ReceiptInput records goods arriving from a vendor.
type ReceiptInput struct {
	VendorID     int64         `json:"vendor_id" validate:"required,gt=0"`
	DateReceived time.Time     `json:"date_received" validate:"required"`
	Lines        []ReceiptLine `json:"lines" validate:"required,min=1,dive"`
}

// ReceiptLine is one lot to create.
type ReceiptLine struct {
	ItemID   int64           `json:"item_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
}

// Receipt is a persisted goods receipt.
type Receipt struct {
	ID           int64     `json:"id"`
	VendorID     int64     `json:"vendor_id"`
	DateReceived time.Time `json:"date_received"`
	Lots         []Lot     `json:"lots"`
}
