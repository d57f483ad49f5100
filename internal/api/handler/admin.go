package handler

import (
	"context"
	"net/http"

	"github.com/edvin/metering/internal/api/response"
	"github.com/edvin/metering/internal/billing"
	"github.com/edvin/metering/internal/meter"
)

// CollectorRunner is the manual "run collection now" trigger surface.
type CollectorRunner interface {
	RunOnce(ctx context.Context) (meter.Summary, error)
	Running() bool
}

// BillingRunner is the manual billing trigger surface.
type BillingRunner interface {
	GenerateMonthlyInvoices(ctx context.Context) (billing.Summary, error)
	CheckOverdueInvoices(ctx context.Context) (int, error)
}

// Admin exposes the manual trigger endpoints. They invoke the same entry
// points as the scheduler, with no additional gating logic.
type Admin struct {
	collector CollectorRunner
	billing   BillingRunner
}

func NewAdmin(collector CollectorRunner, billing BillingRunner) *Admin {
	return &Admin{collector: collector, billing: billing}
}

func (h *Admin) CollectUsage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.collector.RunOnce(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary.Skipped {
		response.WriteError(w, http.StatusConflict, "a collection pass is already running")
		return
	}
	response.WriteJSON(w, http.StatusAccepted, summary)
}

func (h *Admin) CollectorStatus(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]bool{"running": h.collector.Running()})
}

func (h *Admin) GenerateInvoices(w http.ResponseWriter, r *http.Request) {
	summary, err := h.billing.GenerateMonthlyInvoices(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, summary)
}

func (h *Admin) CheckOverdue(w http.ResponseWriter, r *http.Request) {
	flipped, err := h.billing.CheckOverdueInvoices(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]int{"marked_overdue": flipped})
}
