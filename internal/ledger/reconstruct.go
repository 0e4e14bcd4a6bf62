package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// BalanceType labels a balance from the business's point of view. A
// positive customer balance is owed to us; a positive vendor balance is
// owed by us.
func BalanceType(party Party, balance decimal.Decimal) string {
	switch {
	case balance.IsZero():
		return LabelSettled
	case balance.IsPositive() == (party == PartyCustomer):
		return LabelReceivable
	default:
		return LabelPayable
	}
}

// Opening undoes every transaction against the present balance:
// opening = B - sum(debits) + sum(credits). Order does not matter.
func Opening(balance decimal.Decimal, txns []Transaction) decimal.Decimal {
	opening := balance
	for _, t := range txns {
		e := t.Projection()
		opening = opening.Sub(e.Debit).Add(e.Credit)
	}
	return opening
}

// Replay applies txns to opening in the order given and returns the result.
func Replay(opening decimal.Decimal, txns []Transaction) decimal.Decimal {
	balance := opening
	for _, t := range txns {
		e := t.Projection()
		balance = balance.Add(e.Debit).Sub(e.Credit)
	}
	return balance
}

// Sorted projects txns and orders them by date, then kind, then id.
func Sorted(txns []Transaction) []Entry {
	entries := make([]Entry, len(txns))
	for i, t := range txns {
		entries[i] = t.Projection()
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return entries
}

// Reconstruct derives the opening balance and the running-balance statement.
// It returns ErrLedgerMismatch if the replay does not land on the stored balance.
func Reconstruct(snap Snapshot) (Statement, error) {
	opening := Opening(snap.Balance, snap.Transactions)
	entries := Sorted(snap.Transactions)

	stmt := Statement{
		Party:          snap.Party,
		PartyID:        snap.PartyID,
		Name:           snap.Name,
		OpeningBalance: opening,
		Entries:        make([]Entry, 0, len(entries)+1),
	}
	openingDate := time.Time{}
	if len(entries) > 0 {
		openingDate = entries[0].Date
	}
	stmt.Entries = append(stmt.Entries, Entry{
		Kind:        KindOpening,
		Date:        openingDate,
		Description: "Opening Balance",
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Balance:     opening,
		BalanceType: BalanceType(snap.Party, opening),
	})

	balance := opening
	for _, e := range entries {
		balance = balance.Add(e.Debit).Sub(e.Credit)
		e.Balance = balance
		e.BalanceType = BalanceType(snap.Party, balance)
		stmt.Entries = append(stmt.Entries, e)
	}
	stmt.ClosingBalance = balance

	if !balance.Equal(snap.Balance) {
		return stmt, shared.ErrLedgerMismatch.With("%s %d replays to %s, stored %s",
			snap.Party, snap.PartyID, balance.String(), snap.Balance.String())
	}
	return stmt, nil
}

// Reconcile checks that the opening derived from history equals the stored
// install-time opening balance.
func Reconcile(snap Snapshot) (Statement, error) {
	stmt, err := Reconstruct(snap)
	if err != nil {
		return stmt, err
	}
	if !stmt.OpeningBalance.Equal(snap.OpeningBalance) {
		return stmt, shared.ErrLedgerMismatch.
			With("%s %d derived opening %s, stored opening %s",
				snap.Party, snap.PartyID, stmt.OpeningBalance.String(), snap.OpeningBalance.String()).
			WithFields(map[string]string{
				"derived_opening": stmt.OpeningBalance.String(),
				"stored_opening":  snap.OpeningBalance.String(),
				"balance":         snap.Balance.String(),
			})
	}
	return stmt, nil
}
