package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory/inventorytest"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

var (
	day1 = time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(lots *inventorytest.Lots) *inventory.Service {
	return inventory.NewService(lots, inventory.NewAllocator(nil, nil), nil)
}

func TestAllocateLotPicksOldestThenLowestID(t *testing.T) {
	lots := inventorytest.New()
	lots.AddLot(1, 10, day2, dec("5"))
	older := lots.AddLot(1, 10, day1, dec("5"))
	lots.AddLot(1, 10, day1, dec("5"))
	lots.AddLot(2, 10, day1, dec("5"))

	lotID, err := newService(lots).AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("2")})
	require.NoError(t, err)
	require.Equal(t, older, lotID)
	require.True(t, dec("3").Equal(lots.Remaining(older)))
}

func TestAllocateLotHonoursTargetDate(t *testing.T) {
	lots := inventorytest.New()
	lots.AddLot(1, 10, day1, dec("5"))
	newer := lots.AddLot(1, 10, day2, dec("5"))
	svc := newService(lots)

	lotID, err := svc.AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, TargetDate: &day2, Quantity: dec("1")})
	require.NoError(t, err)
	require.Equal(t, newer, lotID)

	other := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, TargetDate: &other, Quantity: dec("1")})
	require.ErrorIs(t, err, shared.ErrOutOfStock)
}

func TestAllocateLotDeductsWeightWhenPresent(t *testing.T) {
	lots := inventorytest.New()
	lot := lots.AddLot(1, 10, day1, dec("100"))

	_, err := newService(lots).AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("3"), Weight: dec("42.5")})
	require.NoError(t, err)
	require.True(t, dec("57.5").Equal(lots.Remaining(lot)))
}

func TestAllocateLotDoesNotFallBackToNextLot(t *testing.T) {
	lots := inventorytest.New()
	first := lots.AddLot(1, 10, day1, dec("5"))
	second := lots.AddLot(1, 10, day2, dec("50"))

	_, err := newService(lots).AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("8")})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.True(t, dec("5").Equal(lots.Remaining(first)))
	require.True(t, dec("50").Equal(lots.Remaining(second)))
}

func TestAllocateLotOutOfStockIsNotUnknownItem(t *testing.T) {
	lots := inventorytest.New()
	_, err := newService(lots).AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("1")})
	require.ErrorIs(t, err, shared.ErrOutOfStock)
	require.Equal(t, shared.KindStock, shared.KindOf(err))
}

func TestAllocateLotRejectsZeroDeduction(t *testing.T) {
	lots := inventorytest.New()
	lots.AddLot(1, 10, day1, dec("5"))
	_, err := newService(lots).AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10})
	require.ErrorIs(t, err, shared.ErrInvalidLine)
}

func TestConcurrentAllocatorsNeverOverdraw(t *testing.T) {
	const racers = 25
	lots := inventorytest.New()
	lot := lots.AddLot(1, 10, day1, dec("10"))

	var barrier sync.WaitGroup
	barrier.Add(racers)
	lots.AfterSelect = func() {
		barrier.Done()
		barrier.Wait()
	}
	svc := newService(lots)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("1")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	require.Equal(t, racers-10, insufficient)
	require.True(t, lots.Remaining(lot).IsZero())
}

func TestConcurrentAllocatorsAllocateMinOfSupplyAndDemand(t *testing.T) {
	lots := inventorytest.New()
	a := lots.AddLot(1, 10, day1, dec("7"))
	b := lots.AddLot(1, 10, day2, dec("6"))
	svc := newService(lots)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allocated := decimal.Zero
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AllocateLot(context.Background(), inventory.AllocateInput{VendorID: 1, ItemID: 10, Quantity: dec("1")})
			if err != nil {
				if shared.KindOf(err) != shared.KindStock {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			allocated = allocated.Add(dec("1"))
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.False(t, lots.Remaining(a).IsNegative())
	require.False(t, lots.Remaining(b).IsNegative())
	remaining := lots.Remaining(a).Add(lots.Remaining(b))
	require.True(t, allocated.Add(remaining).Equal(dec("13")))
	require.True(t, allocated.LessThanOrEqual(dec("13")))
}
