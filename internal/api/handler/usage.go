package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/billing"
	"github.com/edvin/metering/internal/core"
)

type Usage struct {
	svc    *core.UsageRecordService
	engine *billing.Engine
}

func NewUsage(svc *core.UsageRecordService, engine *billing.Engine) *Usage {
	return &Usage{svc: svc, engine: engine}
}

func (h *Usage) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := request.ParseListParams(r)

	records, hasMore, err := h.svc.ListByTenant(r.Context(), tenantID, params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		nextCursor = records[len(records)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, records, nextCursor, hasMore)
}

func (h *Usage) ProjectedCost(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	projection, err := h.engine.GetProjectedCost(r.Context(), tenantID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, projection)
}
