package invoicing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// moneyPlaces is the scale of every persisted amount.
const moneyPlaces = 2

// checkLine is the draft-state structural check for one line.
func checkLine(src Source, in LineInput) error {
	if strings.TrimSpace(in.ItemName) == "" {
		return shared.ErrInvalidLine.With("item name required")
	}
	if in.VendorID < 0 {
		return shared.ErrInvalidLine.With("vendor id must be positive")
	}
	if in.VendorID == 0 && strings.TrimSpace(in.VendorCode) == "" {
		return shared.ErrInvalidLine.With("vendor id or vendor code required")
	}
	if in.Quantity.IsNegative() || in.Weight.IsNegative() || in.Rate.IsNegative() {
		return shared.ErrInvalidLine.With("quantity, weight and rate must not be negative")
	}
	if !shared.FitsScale(in.Quantity, shared.StockPlaces) || !shared.FitsScale(in.Weight, shared.StockPlaces) {
		return shared.ErrInvalidLine.With("quantity and weight allow at most %d decimal places", shared.StockPlaces)
	}
	if !shared.FitsScale(in.Rate, shared.MoneyPlaces) {
		return shared.ErrInvalidLine.With("rate allows at most %d decimal places", shared.MoneyPlaces)
	}
	if !inventory.Deduction(in.Quantity, in.Weight).IsPositive() {
		return shared.ErrInvalidLine.With("quantity or weight must be positive")
	}
	if in.Rate.IsPositive() {
		return nil
	}
	if src == SourceAI && in.Amount != nil && in.Amount.IsPositive() {
		return nil
	}
	return shared.ErrInvalidLine.With("rate must be positive")
}

// LineAmount prices a line. Manual lines always use weight × rate, or
// quantity × rate without weight. AI lines keep a positive caller amount and
// report it as overridden.
func LineAmount(src Source, in LineInput) (amount decimal.Decimal, overridden bool) {
	if src == SourceAI && in.Amount != nil && in.Amount.IsPositive() {
		return in.Amount.Round(moneyPlaces), true
	}
	base := in.Quantity
	if in.Weight.IsPositive() {
		base = in.Weight
	}
	return base.Mul(in.Rate).Round(moneyPlaces), false
}
