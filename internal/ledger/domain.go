package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Party identifies whose ledger is being built.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyVendor   Party = "vendor"
)

// EntryKind tags a ledger row. The order of the constants is the tie-break
// rank for transactions sharing a date.
type EntryKind int

const (
	KindInvoice EntryKind = iota
	KindWatak
	KindPurchaseInvoice
	KindPayment
	KindOpening = EntryKind(-1)
)

var kindNames = map[EntryKind]string{
	KindOpening:         "opening",
	KindInvoice:         "invoice",
	KindWatak:           "watak",
	KindPurchaseInvoice: "purchase_invoice",
	KindPayment:         "payment",
}

func (k EntryKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the kind by name.
func (k EntryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind rendered by MarshalText.
func (k *EntryKind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("ledger: unknown entry kind %q", string(b))
}

// Balance labels.
const (
	LabelReceivable = "Receivable from"
	LabelPayable    = "Payable to"
	LabelSettled    = "Settled"
)

// Transaction is one member of the ledger union. Each kind projects onto
// the shared date, description, debit and credit columns.
type Transaction interface {
	Projection() Entry
}

// InvoiceTxn is a customer invoice; it raises the customer balance.
type InvoiceTxn struct {
	ID     int64
	Number string
	Date   time.Time
	Total  decimal.Decimal
}

// Projection implements Transaction.
func (t InvoiceTxn) Projection() Entry {
	return Entry{Kind: KindInvoice, ID: t.ID, Date: t.Date, Description: "Invoice #" + t.Number, Debit: t.Total, Credit: decimal.Zero}
}

// WatakTxn is a vendor settlement; it raises the vendor balance by its net payable.
type WatakTxn struct {
	ID         int64
	Number     string
	Date       time.Time
	NetPayable decimal.Decimal
}

// Projection implements Transaction.
func (t WatakTxn) Projection() Entry {
	return Entry{Kind: KindWatak, ID: t.ID, Date: t.Date, Description: "Watak #" + t.Number, Debit: t.NetPayable, Credit: decimal.Zero}
}

// PurchaseTxn is a purchase invoice from a vendor; it raises the vendor balance.
type PurchaseTxn struct {
	ID     int64
	Number string
	Date   time.Time
	Total  decimal.Decimal
}

// Projection implements Transaction.
func (t PurchaseTxn) Projection() Entry {
	return Entry{Kind: KindPurchaseInvoice, ID: t.ID, Date: t.Date, Description: "Purchase #" + t.Number, Debit: t.Total, Credit: decimal.Zero}
}

// PaymentTxn settles part of a balance. Its credit is amount plus discount.
type PaymentTxn struct {
	ID       int64
	Receipt  string
	Date     time.Time
	Amount   decimal.Decimal
	Discount decimal.Decimal
	Mode     string
}

// Projection implements Transaction.
func (t PaymentTxn) Projection() Entry {
	desc := "Payment #" + t.Receipt
	if t.Mode != "" {
		desc += " (" + t.Mode + ")"
	}
	if t.Discount.IsPositive() {
		desc += " incl. discount " + t.Discount.StringFixed(2)
	}
	return Entry{Kind: KindPayment, ID: t.ID, Date: t.Date, Description: desc, Debit: decimal.Zero, Credit: t.Amount.Add(t.Discount)}
}

// Entry is one statement row. Balance is the running balance after the row.
type Entry struct {
	Kind        EntryKind       `json:"kind"`
	ID          int64           `json:"id,omitempty"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	BalanceType string          `json:"balance_type"`
}

// Snapshot is a party's stored balance and transactions read at one point in time.
type Snapshot struct {
	Party          Party
	PartyID        int64
	Name           string
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	Transactions   []Transaction
}

// Statement is a reconstructed ledger.
type Statement struct {
	Party          Party           `json:"party"`
	PartyID        int64           `json:"party_id"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Entries        []Entry         `json:"entries"`
}
