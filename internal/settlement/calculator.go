package settlement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// laborExemptItem never carries labor charges.
const laborExemptItem = "krade"

var (
	half    = decimal.RequireFromString("0.5")
	hundred = decimal.NewFromInt(100)
)

// Line is one item sold on the vendor's behalf.
type Line struct {
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
}

// Charges are the inputs to a settlement besides its lines.
type Charges struct {
	CommissionPercent decimal.Decimal
	LaborRate         decimal.Decimal
	VehicleCharges    decimal.Decimal
	Bardan            decimal.Decimal
	OtherCharges      decimal.Decimal
}

// LineResult is a priced line.
type LineResult struct {
	Line
	Amount            decimal.Decimal `json:"amount"`
	Labor             decimal.Decimal `json:"labor"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
}

// Result holds the settlement totals. All totals except RawProceeds are whole units.
type Result struct {
	Lines             []LineResult    `json:"lines"`
	RawProceeds       decimal.Decimal `json:"raw_proceeds"`
	GoodsSaleProceeds decimal.Decimal `json:"goods_sale_proceeds"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	TotalLabor        decimal.Decimal `json:"total_labor"`
	VehicleCharges    decimal.Decimal `json:"vehicle_charges"`
	Bardan            decimal.Decimal `json:"bardan"`
	OtherCharges      decimal.Decimal `json:"other_charges"`
	NetPayable        decimal.Decimal `json:"net_payable"`
}

// RoundHalfUp rounds to a whole unit: a fractional part of .5 or more goes
// up, anything less is dropped.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	floor := d.Floor()
	if d.Sub(floor).GreaterThanOrEqual(half) {
		return floor.Add(decimal.NewFromInt(1))
	}
	return floor
}

// LineAmount prices a line by weight when present, otherwise by quantity.
func LineAmount(quantity, weight, rate decimal.Decimal) decimal.Decimal {
	if weight.IsPositive() {
		return weight.Mul(rate)
	}
	return quantity.Mul(rate)
}

// LineLabor is quantity × labor rate, except for krade which carries none.
func LineLabor(itemName string, quantity, laborRate decimal.Decimal) decimal.Decimal {
	if strings.EqualFold(strings.TrimSpace(itemName), laborExemptItem) {
		return decimal.Zero
	}
	return quantity.Mul(laborRate)
}

// DefaultCommission returns the commission percent for a vendor type.
func DefaultCommission(t catalog.VendorType, local, other decimal.Decimal) decimal.Decimal {
	if t == catalog.VendorLocal {
		return local
	}
	return other
}

// Calculate prices a watak. Lines without a name or a positive rate are
// skipped; if none remain, or proceeds round to zero, the settlement is rejected.
func Calculate(lines []Line, c Charges) (Result, error) {
	for _, v := range []decimal.Decimal{c.CommissionPercent, c.LaborRate, c.VehicleCharges, c.Bardan, c.OtherCharges} {
		if v.IsNegative() {
			return Result{}, shared.ErrInvalidInput.With("charges must not be negative")
		}
		if !shared.FitsScale(v, shared.MoneyPlaces) {
			return Result{}, shared.ErrInvalidInput.With("charges allow at most %d decimal places", shared.MoneyPlaces)
		}
	}
	if c.CommissionPercent.GreaterThan(hundred) {
		return Result{}, shared.ErrInvalidInput.With("commission percent above 100")
	}

	res := Result{Lines: make([]LineResult, 0, len(lines))}
	labor := decimal.Zero
	for i, line := range lines {
		line.ItemName = strings.TrimSpace(line.ItemName)
		if line.ItemName == "" || !line.Rate.IsPositive() {
			continue
		}
		if line.Quantity.IsNegative() || line.Weight.IsNegative() {
			return Result{}, shared.ErrInvalidLine.With("line %d: quantity and weight must not be negative", i+1)
		}
		if !shared.FitsScale(line.Quantity, shared.StockPlaces) || !shared.FitsScale(line.Weight, shared.StockPlaces) || !shared.FitsScale(line.Rate, shared.MoneyPlaces) {
			return Result{}, shared.ErrInvalidLine.With("line %d: quantity and weight allow %d and rate %d decimal places", i+1, shared.StockPlaces, shared.MoneyPlaces)
		}
		lr := LineResult{
			Line:              line,
			Amount:            LineAmount(line.Quantity, line.Weight, line.Rate),
			Labor:             LineLabor(line.ItemName, line.Quantity, c.LaborRate),
			CommissionPercent: c.CommissionPercent,
		}
		res.RawProceeds = res.RawProceeds.Add(lr.Amount)
		labor = labor.Add(lr.Labor)
		res.Lines = append(res.Lines, lr)
	}
	if len(res.Lines) == 0 {
		return Result{}, shared.ErrZeroSettlement.With("no line has both an item name and a positive rate")
	}

	res.GoodsSaleProceeds = RoundHalfUp(res.RawProceeds)
	if res.GoodsSaleProceeds.IsZero() {
		return Result{}, shared.ErrZeroSettlement.With("proceeds %s round to zero", res.RawProceeds.String())
	}
	res.TotalCommission = res.RawProceeds.Mul(c.CommissionPercent).Div(hundred).Floor()
	res.TotalLabor = labor.Floor()
	res.VehicleCharges = c.VehicleCharges.Floor()
	res.Bardan = c.Bardan.Floor()
	res.OtherCharges = c.OtherCharges.Floor()
	res.NetPayable = res.GoodsSaleProceeds.
		Sub(res.TotalCommission).
		Sub(res.TotalLabor).
		Sub(res.VehicleCharges).
		Sub(res.Bardan).
		Sub(res.OtherCharges).
		Floor()
	return res, nil
}
