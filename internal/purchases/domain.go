package purchases

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineInput is one item bought from a vendor.
type LineInput struct {
	ItemID   int64           `json:"item_id" validate:"required,gt=0"`
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
}

// CreateInput is a purchase invoice from a purchase-based vendor.
type CreateInput struct {
	VendorID int64       `json:"vendor_id" validate:"required,gt=0"`
	Date     time.Time   `json:"date" validate:"required"`
	Lines    []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// Line is a persisted purchase line and the lot it stocked.
type Line struct {
	ItemID   int64           `json:"item_id"`
	LotID    int64           `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

// Invoice is a committed purchase invoice.
type Invoice struct {
	ID        int64           `json:"id"`
	Number    string          `json:"invoice_number"`
	VendorID  int64           `json:"vendor_id"`
	Date      time.Time       `json:"date"`
	ReceiptID int64           `json:"receipt_id"`
	Total     decimal.Decimal `json:"total_amount"`
	Lines     []Line          `json:"lines"`
}
