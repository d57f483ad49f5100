package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/model"
)

type Tenant struct {
	svc            *core.TenantService
	defaultQuotaGB int
}

func NewTenant(svc *core.TenantService, defaultQuotaGB int) *Tenant {
	return &Tenant{svc: svc, defaultQuotaGB: defaultQuotaGB}
}

func (h *Tenant) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	tenants, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(tenants) > 0 {
		nextCursor = strconv.FormatInt(tenants[len(tenants)-1].ID, 10)
	}
	response.WritePaginated(w, http.StatusOK, tenants, nextCursor, hasMore)
}

func (h *Tenant) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.svc.GetByID(r.Context(), tenantID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Tenant) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTenant
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	quota := h.defaultQuotaGB
	if req.StorageQuotaGB != nil {
		quota = *req.StorageQuotaGB
	}

	tenant := &model.Tenant{
		Name:           req.Name,
		Status:         model.StatusPending,
		StorageQuotaGB: quota,
	}
	if err := h.svc.Create(r.Context(), tenant); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Tenant) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateTenantStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), tenantID, req.Status); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Tenant) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateTenantQuota
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateQuota(r.Context(), tenantID, req.StorageQuotaGB); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]int{"storage_quota_gb": req.StorageQuotaGB})
}
