package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/core"
)

type Notification struct {
	svc *core.NotificationService
}

func NewNotification(svc *core.NotificationService) *Notification {
	return &Notification{svc: svc}
}

func (h *Notification) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := request.ParseListParams(r)

	notifications, hasMore, err := h.svc.ListByTenant(r.Context(), tenantID, params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(notifications) > 0 {
		nextCursor = notifications[len(notifications)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, notifications, nextCursor, hasMore)
}

func (h *Notification) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := request.RequireID(chi.URLParam(r, "notificationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.MarkRead(r.Context(), notificationID); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
