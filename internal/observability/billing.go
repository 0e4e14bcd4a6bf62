package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the billing counters.
const (
	OutcomeSuccess           = "success"
	OutcomeOutOfStock        = "out_of_stock"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeRejected          = "rejected"
	OutcomeError             = "error"
)

// BillingMetrics counts allocation, invoice, watak and reconciliation outcomes.
// A nil *BillingMetrics is valid and records nothing.
type BillingMetrics struct {
	allocations *prometheus.CounterVec
	invoices    *prometheus.CounterVec
	wataks      *prometheus.CounterVec
	mismatches  *prometheus.CounterVec
}

// NewBillingMetrics registers the billing collectors on registerer.
func NewBillingMetrics(registerer prometheus.Registerer) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &BillingMetrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billflow_lot_allocations_total",
			Help: "Lot allocation attempts by outcome.",
		}, []string{"outcome"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billflow_invoices_total",
			Help: "Invoice transactions by terminal outcome.",
		}, []string{"outcome"}),
		wataks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billflow_wataks_total",
			Help: "Watak operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		mismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billflow_ledger_mismatches_total",
			Help: "Parties whose stored balance does not reconcile with history.",
		}, []string{"party"}),
	}
	registerer.MustRegister(m.allocations, m.invoices, m.wataks, m.mismatches)
	return m
}

// ObserveAllocation records one allocation attempt.
func (m *BillingMetrics) ObserveAllocation(outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

// ObserveInvoice records one committed or aborted invoice.
func (m *BillingMetrics) ObserveInvoice(outcome string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(outcome).Inc()
}

// ObserveWatak records one watak create or delete.
func (m *BillingMetrics) ObserveWatak(op, outcome string) {
	if m == nil {
		return
	}
	m.wataks.WithLabelValues(op, outcome).Inc()
}

// ObserveLedgerMismatch records one party failing reconciliation.
func (m *BillingMetrics) ObserveLedgerMismatch(party string) {
	if m == nil {
		return
	}
	m.mismatches.WithLabelValues(party).Inc()
}
