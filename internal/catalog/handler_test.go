package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func serveCatalog(svc *Service, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerItems(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	rec := serveCatalog(svc, http.MethodPost, "/items", `{"name":"  Golden   Apple ","default_rate":"40"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var item Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, "Golden Apple", item.Name)

	rec = serveCatalog(svc, http.MethodPost, "/items", `{"name":"Golden Apple"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serveCatalog(svc, http.MethodPatch, "/items/1", `{"name":"Red Apple"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	resolved, err := svc.ResolveItem(context.Background(), "red apple")
	require.NoError(t, err)
	require.Equal(t, item.ID, resolved.ID)

	rec = serveCatalog(svc, http.MethodPatch, "/items/9", `{"name":"Pear"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = serveCatalog(svc, http.MethodPatch, "/items/one", `{"name":"Pear"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveCatalog(svc, http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Red Apple"`)
}

func TestHandlerVendorsAndCustomers(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	rec := serveCatalog(svc, http.MethodPost, "/vendors", `{"name":"Ibrahim","shortcut":"IB"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var v Vendor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "ib", v.Shortcut)
	require.Equal(t, VendorLocal, v.Type)

	rec = serveCatalog(svc, http.MethodPost, "/vendors", `{"name":"Bad","type":"Remote"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveCatalog(svc, http.MethodGet, "/vendors/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = serveCatalog(svc, http.MethodGet, "/vendors/2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveCatalog(svc, http.MethodPost, "/customers", `{"name":"Bashir","opening_balance":"150"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = serveCatalog(svc, http.MethodGet, "/customers/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Bashir"`)
	rec = serveCatalog(svc, http.MethodGet, "/customers/0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serveCatalog(svc, http.MethodPost, "/customers", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
