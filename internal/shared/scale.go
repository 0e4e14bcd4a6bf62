package shared

import "github.com/shopspring/decimal"

// Fractional digits kept by the NUMERIC(14,3) stock columns and the
// NUMERIC(14,2) money columns.
const (
	StockPlaces int32 = 3
	MoneyPlaces int32 = 2
)

// FitsScale reports whether v survives storage at places without rounding.
// Trailing zeros are fine: 1.2000 fits three places.
func FitsScale(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Truncate(places))
}
