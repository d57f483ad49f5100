package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/model"
)

var (
	invoicesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_generated_total",
		Help: "Invoices created by the billing engine",
	})
	invoicesOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_overdue_total",
		Help: "Invoices flipped to overdue by the daily sweep",
	})
	notificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifications_suppressed_total",
			Help: "Billing notifications suppressed by the de-duplication window, by type",
		},
		[]string{"type"},
	)
)

// daysUntilDue is added to the period end to produce the invoice due date.
const daysUntilDue = 15

// TenantSource lists the tenants eligible for billing.
type TenantSource interface {
	ListActive(ctx context.Context) ([]model.Tenant, error)
}

// UsageSource reads persisted usage samples for a period.
type UsageSource interface {
	LatestStorageInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (int64, bool, error)
	SumFlowsInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (core.PeriodFlows, error)
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	Insert(ctx context.Context, inv *model.Invoice) error
	ExistsForPeriod(ctx context.Context, tenantID int64, periodStart time.Time) (bool, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]model.Invoice, error)
	MarkOverdue(ctx context.Context, id string) error
}

// Notifier inserts tenant notifications and answers de-duplication lookups.
type Notifier interface {
	Insert(ctx context.Context, n *model.Notification) error
	ExistsRecent(ctx context.Context, tenantID int64, notifType string, window time.Duration) (bool, error)
}

// Summary reports one monthly invoice generation pass.
type Summary struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Engine computes costs from aggregated usage and manages the invoice
// lifecycle. Generation is idempotent per (tenant, period start).
type Engine struct {
	tenants       TenantSource
	usage         UsageSource
	invoices      InvoiceStore
	notifications Notifier
	pricing       Pricing
	logger        zerolog.Logger

	// NotifyDedupWindow suppresses repeat billing notifications of the same
	// type for a tenant. Zero disables suppression.
	NotifyDedupWindow time.Duration

	// now is overridable in tests.
	now func() time.Time
}

func NewEngine(logger zerolog.Logger, tenants TenantSource, usage UsageSource,
	invoices InvoiceStore, notifications Notifier, pricing Pricing) *Engine {
	return &Engine{
		tenants:       tenants,
		usage:         usage,
		invoices:      invoices,
		notifications: notifications,
		pricing:       pricing,
		logger:        logger.With().Str("component", "billing-engine").Logger(),

		NotifyDedupWindow: 24 * time.Hour,

		now: time.Now,
	}
}

// notify inserts a notification unless one of the same type was created for
// the tenant within the de-duplication window. Best-effort: lookup and
// insert failures are logged, never propagated.
func (e *Engine) notify(ctx context.Context, n *model.Notification) {
	if e.NotifyDedupWindow > 0 {
		recent, err := e.notifications.ExistsRecent(ctx, n.TenantID, n.Type, e.NotifyDedupWindow)
		if err != nil {
			e.logger.Warn().Err(err).Int64("tenant", n.TenantID).Msg("notification de-dup lookup failed")
			return
		}
		if recent {
			notificationsSuppressed.WithLabelValues(n.Type).Inc()
			return
		}
	}
	if err := e.notifications.Insert(ctx, n); err != nil {
		e.logger.Warn().Err(err).Int64("tenant", n.TenantID).Str("type", n.Type).Msg("failed to insert notification")
	}
}

// usageForPeriod aggregates a period's samples: storage is the latest
// snapshot in the period, bandwidth and requests are summed flows.
func (e *Engine) usageForPeriod(ctx context.Context, tenantID int64, start, end time.Time) (Usage, error) {
	storage, _, err := e.usage.LatestStorageInPeriod(ctx, tenantID, start, end)
	if err != nil {
		return Usage{}, err
	}
	flows, err := e.usage.SumFlowsInPeriod(ctx, tenantID, start, end)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		StorageBytes:   storage,
		BandwidthBytes: flows.BandwidthBytes,
		RequestsCount:  flows.RequestsCount,
	}, nil
}

// GenerateInvoice creates the invoice for one tenant and period. Returns
// (nil, nil) when an invoice already exists for (tenant, periodStart): a
// duplicate attempt is not an error. Concurrent generation is resolved by
// the storage layer's unique constraint.
func (e *Engine) GenerateInvoice(ctx context.Context, tenantID int64, periodStart, periodEnd time.Time) (*model.Invoice, error) {
	exists, err := e.invoices.ExistsForPeriod(ctx, tenantID, periodStart)
	if err != nil {
		return nil, fmt.Errorf("generate invoice for tenant %d: %w", tenantID, err)
	}
	if exists {
		return nil, nil
	}

	usage, err := e.usageForPeriod(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("generate invoice for tenant %d: %w", tenantID, err)
	}
	costs := e.pricing.CalculateCosts(usage)

	inv := &model.Invoice{
		TenantID:      tenantID,
		InvoiceNumber: fmt.Sprintf("INV-%s-%d", periodStart.Format("200601"), tenantID),
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		StorageCost:   costs.StorageCost,
		BandwidthCost: costs.BandwidthCost,
		RequestsCost:  costs.RequestsCost,
		Subtotal:      costs.Subtotal,
		TaxAmount:     costs.TaxAmount,
		TotalAmount:   costs.TotalAmount,
		DueDate:       periodEnd.AddDate(0, 0, daysUntilDue),
		Status:        model.InvoiceStatusPending,
	}
	if err := e.invoices.Insert(ctx, inv); err != nil {
		if errors.Is(err, core.ErrDuplicateInvoice) {
			// Lost a race against a concurrent generator; same outcome as
			// the pre-insert existence check.
			return nil, nil
		}
		return nil, fmt.Errorf("generate invoice for tenant %d: %w", tenantID, err)
	}
	invoicesGenerated.Inc()

	metadata, _ := json.Marshal(map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount,
		"due_date":       inv.DueDate,
	})
	// Notification delivery is best-effort; the invoice stands either way.
	e.notify(ctx, &model.Notification{
		TenantID: tenantID,
		Type:     model.NotificationInvoiceGenerated,
		Title:    "Invoice generated",
		Message:  fmt.Sprintf("Invoice %s for %s is ready.", inv.InvoiceNumber, periodStart.Format("January 2006")),
		Metadata: metadata,
	})

	e.logger.Info().
		Int64("tenant", tenantID).
		Str("invoice", inv.InvoiceNumber).
		Int64("total", inv.TotalAmount).
		Msg("invoice generated")
	return inv, nil
}

// GenerateMonthlyInvoices bills every active tenant for the prior calendar
// month. Per-tenant failures are counted and logged, never propagated; the
// pass is safe to re-run because generation is idempotent.
func (e *Engine) GenerateMonthlyInvoices(ctx context.Context) (Summary, error) {
	periodStart, periodEnd := priorMonth(e.now().UTC())

	tenants, err := e.tenants.ListActive(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("generate monthly invoices: %w", err)
	}

	var summary Summary
	for _, tenant := range tenants {
		inv, err := e.GenerateInvoice(ctx, tenant.ID, periodStart, periodEnd)
		if err != nil {
			summary.Errors++
			e.logger.Error().Err(err).Int64("tenant", tenant.ID).Msg("monthly invoice generation failed")
			continue
		}
		if inv == nil {
			summary.Skipped++
			continue
		}
		summary.Generated++
	}

	e.logger.Info().
		Time("period_start", periodStart).
		Int("generated", summary.Generated).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("monthly invoice pass finished")
	return summary, nil
}

// CheckOverdueInvoices flips pending invoices past their due date to overdue
// and notifies each affected tenant. Already-overdue invoices are filtered
// out by the candidate query, so re-running is harmless.
func (e *Engine) CheckOverdueInvoices(ctx context.Context) (int, error) {
	candidates, err := e.invoices.ListOverdueCandidates(ctx, e.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("check overdue invoices: %w", err)
	}

	flipped := 0
	for _, inv := range candidates {
		if err := e.invoices.MarkOverdue(ctx, inv.ID); err != nil {
			e.logger.Error().Err(err).Str("invoice", inv.ID).Msg("failed to mark invoice overdue")
			continue
		}
		flipped++
		invoicesOverdue.Inc()

		metadata, _ := json.Marshal(map[string]any{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
			"total_amount":   inv.TotalAmount,
			"due_date":       inv.DueDate,
		})
		e.notify(ctx, &model.Notification{
			TenantID: inv.TenantID,
			Type:     model.NotificationPaymentOverdue,
			Title:    "Payment overdue",
			Message:  fmt.Sprintf("Invoice %s was due on %s.", inv.InvoiceNumber, inv.DueDate.Format("2006-01-02")),
			Metadata: metadata,
		})
	}

	if flipped > 0 {
		e.logger.Info().Int("flipped", flipped).Msg("overdue sweep finished")
	}
	return flipped, nil
}

// Projection is a display-only cost estimate for the current, unfinished
// month. It is never written to an invoice.
type Projection struct {
	PeriodStart time.Time `json:"period_start"`
	DaysElapsed int       `json:"days_elapsed"`
	DaysInMonth int       `json:"days_in_month"`
	Current     Usage     `json:"current_usage"`
	Projected   Usage     `json:"projected_usage"`
	Costs       Costs     `json:"projected_costs"`
}

// GetProjectedCost linearly extrapolates the current month's flow quantities
// to a full month and prices the result. Storage is a snapshot and is not
// extrapolated.
func (e *Engine) GetProjectedCost(ctx context.Context, tenantID int64) (*Projection, error) {
	now := e.now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := periodStart.AddDate(0, 1, -1).Day()
	daysElapsed := now.Day()

	current, err := e.usageForPeriod(ctx, tenantID, periodStart, now)
	if err != nil {
		return nil, fmt.Errorf("projected cost for tenant %d: %w", tenantID, err)
	}

	projected := Usage{
		StorageBytes:   current.StorageBytes,
		BandwidthBytes: current.BandwidthBytes * int64(daysInMonth) / int64(daysElapsed),
		RequestsCount:  current.RequestsCount * int64(daysInMonth) / int64(daysElapsed),
	}

	return &Projection{
		PeriodStart: periodStart,
		DaysElapsed: daysElapsed,
		DaysInMonth: daysInMonth,
		Current:     current,
		Projected:   projected,
		Costs:       e.pricing.CalculateCosts(projected),
	}, nil
}

// priorMonth returns the closed prior calendar month [start, end] relative
// to now, with end at the last instant before the current month.
func priorMonth(now time.Time) (time.Time, time.Time) {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfCurrent.AddDate(0, -1, 0)
	end := firstOfCurrent.Add(-time.Second)
	return start, end
}
