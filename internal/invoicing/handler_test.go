package invoicing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/httpx"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

func serveInvoices(f *fixture, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/invoices", NewHandler(nil, f.svc).MountRoutes)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func invoiceJSON(qty string) string {
	return fmt.Sprintf(`{"customer_id":%d,"display_date":"2024-03-10T00:00:00Z","lines":[{"item_name":"Apple","vendor_id":%d,"quantity":"%s","rate":"25"}]}`, buyer, vendor, qty)
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHandlerCreateAndFetchInvoice(t *testing.T) {
	f := newFixture()
	f.repo.lots.AddLot(vendor, apple, today, d("10"))

	rec := serveInvoices(f, http.MethodPost, "/invoices/", invoiceJSON("4"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Created
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "0001", created.Number)
	requireDec(t, "100", created.Total)

	rec = serveInvoices(f, http.MethodGet, fmt.Sprintf("/invoices/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"invoice_number":"0001"`)

	rec = serveInvoices(f, http.MethodDelete, fmt.Sprintf("/invoices/%d", created.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serveInvoices(f, http.MethodGet, fmt.Sprintf("/invoices/%d", created.ID), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, string(shared.CodeNotFound), problemOf(t, rec).Code)
}

func TestHandlerMapsStockErrors(t *testing.T) {
	f := newFixture()

	rec := serveInvoices(f, http.MethodPost, "/invoices/", invoiceJSON("4"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(shared.CodeOutOfStock), problemOf(t, rec).Code)

	f.repo.lots.AddLot(vendor, apple, today, d("3"))
	rec = serveInvoices(f, http.MethodPost, "/invoices/", invoiceJSON("4"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(shared.CodeInsufficientStock), problemOf(t, rec).Code)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	f := newFixture()

	for _, path := range []string{"/invoices/abc", "/invoices/0", "/invoices/-3"} {
		rec := serveInvoices(f, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := serveInvoices(f, http.MethodPost, "/invoices/", `{"customer_id":1,"unknown":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveInvoices(f, http.MethodPost, "/invoices/", invoiceJSON("1.2345"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(shared.CodeInvalidLine), problemOf(t, rec).Code)
}

func TestHandlerBatchBounds(t *testing.T) {
	f := newFixture()

	rec := serveInvoices(f, http.MethodPost, "/invoices/batch", `{"invoices":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(shared.CodeInvalidInput), problemOf(t, rec).Code)

	many := make([]string, maxBatch+1)
	for i := range many {
		many[i] = invoiceJSON("1")
	}
	rec = serveInvoices(f, http.MethodPost, "/invoices/batch", `{"invoices":[`+strings.Join(many, ",")+`]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, f.repo.invoiceCount())
}

func TestHandlerBatchStatus(t *testing.T) {
	f := newFixture()

	// Every invoice fails: no stock at all.
	body := `{"invoices":[` + invoiceJSON("1") + `,` + invoiceJSON("2") + `]}`
	rec := serveInvoices(f, http.MethodPost, "/invoices/batch", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var res BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Zero(t, res.Succeeded)
	require.Len(t, res.Failures, 2)
	require.Equal(t, shared.CodeOutOfStock, res.Failures[0].Code)

	// One succeeds, one is short: partial success is still 200.
	f.repo.lots.AddLot(vendor, apple, today, d("2"))
	body = `{"invoices":[` + invoiceJSON("2") + `,` + invoiceJSON("1") + `]}`
	rec = serveInvoices(f, http.MethodPost, "/invoices/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)
	res = BatchResult{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failures, 1)
	require.Equal(t, 1, res.Failures[0].Index)
}
