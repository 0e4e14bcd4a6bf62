package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/app"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/catalog"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/db"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	services := app.NewServices(cfg, pool, nil, nil, app.NewLogger(cfg))

	fmt.Println("→ Seeding items...")
	items, err := seedItems(ctx, services.Catalog)
	if err != nil {
		log.Fatalf("seed items: %v", err)
	}
	fmt.Println("→ Seeding vendors...")
	vendors, err := seedVendors(ctx, services.Catalog)
	if err != nil {
		log.Fatalf("seed vendors: %v", err)
	}
	fmt.Println("→ Seeding customers...")
	if err := seedCustomers(ctx, services.Catalog); err != nil {
		log.Fatalf("seed customers: %v", err)
	}
	fmt.Println("→ Seeding goods receipts...")
	if err := seedReceipts(ctx, services.Inventory, cfg, vendors, items); err != nil {
		log.Fatalf("seed receipts: %v", err)
	}
	fmt.Println("✓ Seed complete")
}

func seedItems(ctx context.Context, svc *catalog.Service) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, name := range []string{"Apple", "Pear", "Krade", "Cherry"} {
		item, err := svc.CreateItem(ctx, catalog.CreateItemInput{Name: name, DefaultRate: decimal.NewFromInt(100)})
		if errors.Is(err, shared.ErrDuplicate) {
			existing, resolveErr := svc.ResolveItem(ctx, name)
			if resolveErr != nil {
				return nil, resolveErr
			}
			item = existing
		} else if err != nil {
			return nil, err
		}
		ids[name] = item.ID
	}
	return ids, nil
}

func seedVendors(ctx context.Context, svc *catalog.Service) (map[string]int64, error) {
	vendors := []catalog.CreateVendorInput{
		{Name: "Ramesh Traders", Shortcut: "ra", Type: catalog.VendorLocal, Category: catalog.CategoryCommission},
		{Name: "Kashmir Fresh", Shortcut: "kf", Type: catalog.VendorOutstation, Category: catalog.CategoryCommission},
		{Name: "Valley Orchards", Shortcut: "vo", Type: catalog.VendorLocal, Category: catalog.CategoryPurchase},
	}
	ids := make(map[string]int64)
	for _, in := range vendors {
		v, err := svc.CreateVendor(ctx, in)
		if errors.Is(err, shared.ErrDuplicate) {
			id, lookupErr := svc.VendorIDByShortcut(ctx, in.Shortcut)
			if lookupErr != nil {
				return nil, lookupErr
			}
			ids[in.Shortcut] = id
			continue
		}
		if err != nil {
			return nil, err
		}
		ids[in.Shortcut] = v.ID
	}
	return ids, nil
}

func seedCustomers(ctx context.Context, svc *catalog.Service) error {
	for _, name := range []string{"Bashir Fruit Co", "Sunrise Mart"} {
		_, err := svc.CreateCustomer(ctx, catalog.CreateCustomerInput{Name: name})
		if err != nil && !errors.Is(err, shared.ErrDuplicate) {
			return err
		}
	}
	return nil
}

// seedReceipts stocks one lot per day for the last three business days so
// the p / pp markers have lots to target.
func seedReceipts(ctx context.Context, svc *inventory.Service, cfg *app.Config, vendors, items map[string]int64) error {
	today := shared.Today(shared.SystemClock{Location: cfg.Location()})
	for _, shortcut := range []string{"ra", "kf"} {
		for back := 2; back >= 0; back-- {
			_, err := svc.ReceiveGoods(ctx, inventory.ReceiptInput{
				VendorID:     vendors[shortcut],
				DateReceived: today.Add(-time.Duration(back) * 24 * time.Hour),
				Lines: []inventory.ReceiptLine{
					{ItemID: items["Apple"], Quantity: decimal.NewFromInt(50), Rate: decimal.NewFromInt(120)},
					{ItemID: items["Pear"], Quantity: decimal.NewFromInt(30), Rate: decimal.NewFromInt(90)},
				},
			})
			if err != nil {
				return fmt.Errorf("vendor %s: %w", shortcut, err)
			}
		}
	}
	return nil
}
