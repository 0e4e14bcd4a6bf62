package invoicing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/platform/httpx"
	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// maxBatch bounds one batch request.
const maxBatch = 200

// Handler wires HTTP endpoints for invoices.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the invoice handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/batch", h.batch)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateInvoice(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type batchRequest struct {
	Invoices []CreateInvoiceInput `json:"invoices"`
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if len(req.Invoices) == 0 || len(req.Invoices) > maxBatch {
		httpx.RespondError(w, shared.ErrInvalidInput.With("batch must hold 1 to %d invoices", maxBatch))
		return
	}
	res := h.service.CreateInvoiceBatch(r.Context(), req.Invoices)
	status := http.StatusOK
	if res.Succeeded == 0 && len(res.Failures) > 0 {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		h.logger.Warn("delete invoice", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
