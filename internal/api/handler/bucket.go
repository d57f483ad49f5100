package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/model"
)

type Bucket struct {
	svc       *core.BucketService
	tenantSvc *core.TenantService
}

func NewBucket(svc *core.BucketService, tenantSvc *core.TenantService) *Bucket {
	return &Bucket{svc: svc, tenantSvc: tenantSvc}
}

func (h *Bucket) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	buckets, err := h.svc.ListByTenant(r.Context(), tenantID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, buckets)
}

func (h *Bucket) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.tenantSvc.GetByID(r.Context(), tenantID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var req request.CreateBucket
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	bucket := &model.Bucket{
		TenantID: tenantID,
		Name:     req.Name,
		Region:   req.Region,
	}
	if err := h.svc.Create(r.Context(), bucket); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, bucket)
}

func (h *Bucket) Delete(w http.ResponseWriter, r *http.Request) {
	bucketID, err := request.RequireID(chi.URLParam(r, "bucketID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), bucketID); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
