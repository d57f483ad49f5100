package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/core"
)

type Invoice struct {
	svc *core.InvoiceService
}

func NewInvoice(svc *core.InvoiceService) *Invoice {
	return &Invoice{svc: svc}
}

func (h *Invoice) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := request.ParseListParams(r)

	invoices, hasMore, err := h.svc.ListByTenant(r.Context(), tenantID, params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(invoices) > 0 {
		nextCursor = invoices[len(invoices)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, invoices, nextCursor, hasMore)
}

func (h *Invoice) Get(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := request.RequireID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	invoice, err := h.svc.GetByID(r.Context(), invoiceID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, invoice)
}

// MarkPaid is the entry point for external payment confirmation.
func (h *Invoice) MarkPaid(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := request.RequireID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.MarkPaid(r.Context(), invoiceID); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	invoice, err := h.svc.GetByID(r.Context(), invoiceID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, invoice)
}
