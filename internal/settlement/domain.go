package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Watak is a persisted vendor settlement.
type Watak struct {
	ID                int64           `json:"id"`
	VendorID          int64           `json:"vendor_id"`
	Number            string          `json:"watak_number"`
	Date              time.Time       `json:"date"`
	InventoryDate     *time.Time      `json:"inventory_date,omitempty"`
	VehicleCharges    decimal.Decimal `json:"vehicle_charges"`
	Bardan            decimal.Decimal `json:"bardan"`
	OtherCharges      decimal.Decimal `json:"other_charges"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	LaborRate         decimal.Decimal `json:"labor_rate"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	TotalLabor        decimal.Decimal `json:"total_labor"`
	NetPayable        decimal.Decimal `json:"net_payable"`
	Items             []LineResult    `json:"items,omitempty"`
}

// CreateWatakInput is the request to settle with a vendor. A nil
// CommissionPercent uses the vendor type default.
type CreateWatakInput struct {
	VendorID          int64            `json:"vendor_id" validate:"required,gt=0"`
	Date              time.Time        `json:"date" validate:"required"`
	InventoryDate     *time.Time       `json:"inventory_date,omitempty"`
	VehicleCharges    decimal.Decimal  `json:"vehicle_charges"`
	Bardan            decimal.Decimal  `json:"bardan"`
	OtherCharges      decimal.Decimal  `json:"other_charges"`
	CommissionPercent *decimal.Decimal `json:"commission_percent,omitempty"`
	LaborRate         decimal.Decimal  `json:"labor_rate"`
	Lines             []Line           `json:"lines" validate:"required,min=1"`
}

// Created is returned by CreateWatak.
type Created struct {
	ID         int64           `json:"id"`
	Number     string          `json:"watak_number"`
	NetPayable decimal.Decimal `json:"net_payable"`
}
