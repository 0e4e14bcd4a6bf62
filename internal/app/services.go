package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/invoicing"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/ledger"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/observability"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/payments"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/purchases"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/settlement"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/vendorcode"
)

// Services holds the domain services shared by the API server and the worker.
type Services struct {
	Catalog     *catalog.Service
	Inventory   *inventory.Service
	Settlement  *settlement.Service
	Ledger      *ledger.Service
	Invoicing   *invoicing.Service
	Payments    *payments.Service
	Purchases   *purchases.Service
	Idempotency *shared.IdempotencyStore
	Metrics     *observability.BillingMetrics
}

// NewServices wires repositories and services against the shared pool.
// A nil redis client disables the ledger statement cache.
func NewServices(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client, registerer prometheus.Registerer, logger *slog.Logger) *Services {
	metrics := observability.NewBillingMetrics(registerer)
	clock := shared.SystemClock{Location: cfg.Location()}

	catalogService := catalog.NewService(catalog.NewRepository(pool), logger)

	var ledgerCache *ledger.Cache
	if rdb != nil {
		ledgerCache = ledger.NewCache(rdb, cfg.LedgerCacheTTL)
	}
	ledgerService := ledger.NewService(ledger.NewRepository(pool), ledgerCache, metrics, logger)

	allocator := inventory.NewAllocator(metrics, logger)
	idempotency := shared.NewIdempotencyStore(pool)
	resolver := vendorcode.NewResolver(catalogService, vendorcode.Markers{
		Prev:     cfg.VendorPrevMarker,
		PrevPrev: cfg.VendorPrevPrevMarker,
	}, clock)

	return &Services{
		Catalog:   catalogService,
		Inventory: inventory.NewService(inventory.NewRepository(pool), allocator, logger),
		Settlement: settlement.NewService(settlement.NewRepository(pool), settlement.Config{
			LocalCommission:   cfg.LocalCommissionPercent,
			DefaultCommission: cfg.DefaultCommissionPercent,
			NumberWidth:       cfg.InvoiceNumberWidth,
		}, ledgerService, metrics, logger),
		Ledger: ledgerService,
		Invoicing: invoicing.NewService(invoicing.Deps{
			Repo:        invoicing.NewRepository(pool),
			Items:       catalogService,
			Vendors:     resolver,
			Allocator:   allocator,
			Ledger:      ledgerService,
			Idempotency: idempotency,
			Metrics:     metrics,
			Clock:       clock,
			NumberWidth: cfg.InvoiceNumberWidth,
			Logger:      logger,
		}),
		Payments:    payments.NewService(payments.NewRepository(pool), ledgerService, cfg.InvoiceNumberWidth, logger),
		Purchases:   purchases.NewService(purchases.NewRepository(pool), ledgerService, cfg.InvoiceNumberWidth, logger),
		Idempotency: idempotency,
		Metrics:     metrics,
	}
}
