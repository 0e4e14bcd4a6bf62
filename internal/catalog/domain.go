package catalog

import "github.com/shopspring/decimal"

// VendorType selects the default watak commission.
type VendorType string

const (
	VendorLocal      VendorType = "Local"
	VendorOutstation VendorType = "Outstation"
)

// VendorCategory distinguishes consignment vendors from vendors we buy from.
type VendorCategory string

const (
	CategoryCommission VendorCategory = "commission"
	CategoryPurchase   VendorCategory = "purchase"
)

// Item is a sellable product. Name is its identity for matching.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	DefaultRate decimal.Decimal `json:"default_rate"`
}

// Vendor supplies lots. Positive balance is owed to the vendor.
type Vendor struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Shortcut       string          `json:"shortcut,omitempty"`
	Type           VendorType      `json:"type"`
	Category       VendorCategory  `json:"category"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Customer buys on invoice. Positive balance is owed by the customer.
type Customer struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateItemInput captures item creation.
type CreateItemInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	DefaultRate decimal.Decimal `json:"default_rate"`
}

// CreateVendorInput captures vendor creation.
type CreateVendorInput struct {
	Name           string          `json:"name" validate:"required,max=120"`
	Shortcut       string          `json:"shortcut" validate:"omitempty,max=16"`
	Type           VendorType      `json:"type" validate:"omitempty,oneof=Local Outstation"`
	Category       VendorCategory  `json:"category" validate:"omitempty,oneof=commission purchase"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateCustomerInput captures customer creation.
type CreateCustomerInput struct {
	Name           string          `json:"name" validate:"required,max=120"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}
