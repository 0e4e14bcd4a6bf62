package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/payments"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/httpx"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/purchases"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/settlement"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	CatalogHandler    *catalog.Handler
	InventoryHandler  *inventory.Handler
	InvoicingHandler  *invoicing.Handler
	SettlementHandler *settlement.Handler
	LedgerHandler     *ledger.Handler
	PaymentsHandler   *payments.Handler
	PurchasesHandler  *purchases.Handler
	JobHandler        *jobs.Handler

	// Ready reports whether backing stores answer; nil means always ready.
	Ready   func(*http.Request) error
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Billflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.InvoicingHandler != nil {
			r.Route("/invoices", params.InvoicingHandler.MountRoutes)
		}
		if params.SettlementHandler != nil {
			r.Route("/wataks", params.SettlementHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", r.URL.Path)
	})

	return r
}
