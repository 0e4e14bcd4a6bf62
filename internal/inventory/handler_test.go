package inventory_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/inventory/inventorytest"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/httpx"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

func serveInventory(lots *inventorytest.Lots, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/inventory", inventory.NewHandler(nil, newService(lots)).MountRoutes)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerReceiveAndListLots(t *testing.T) {
	lots := inventorytest.New()

	rec := serveInventory(lots, http.MethodPost, "/inventory/receipts",
		`{"vendor_id":3,"date_received":"2024-06-13T00:00:00Z","lines":[{"item_id":1,"quantity":"20","rate":"45"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt inventory.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	require.Len(t, receipt.Lots, 1)

	rec = serveInventory(lots, http.MethodGet, "/inventory/lots?vendor_id=3&item_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []inventory.Lot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.True(t, dec("20").Equal(listed[0].RemainingStock))

	rec = serveInventory(lots, http.MethodGet, "/inventory/lots?vendor_id=3", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAllocateMapsStockErrors(t *testing.T) {
	lots := inventorytest.New()
	lot := lots.AddLot(1, 10, day1, dec("5"))

	rec := serveInventory(lots, http.MethodPost, "/inventory/allocate", `{"vendor_id":1,"item_id":10,"quantity":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, lot, got["lot_id"])

	rec = serveInventory(lots, http.MethodPost, "/inventory/allocate", `{"vendor_id":1,"item_id":11,"quantity":"1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, string(shared.CodeOutOfStock), p.Code)

	rec = serveInventory(lots, http.MethodPost, "/inventory/allocate", `{"vendor_id":1,"item_id":10,"quantity":"4"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serveInventory(lots, http.MethodPost, "/inventory/allocate", `{"vendor_id":1,"item_id":10,"weight":"0.0004"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.True(t, dec("3").Equal(lots.Remaining(lot)))
}
