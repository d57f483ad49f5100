package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/metering/internal/model"
)

var (
	alertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_alerts_emitted_total",
			Help: "Quota notifications inserted, by type",
		},
		[]string{"type"},
	)
	alertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_alerts_suppressed_total",
			Help: "Quota notifications suppressed by the de-duplication window, by type",
		},
		[]string{"type"},
	)
)

const bytesPerGB = int64(1) << 30

// Alert thresholds in percent of quota, highest first. Only the highest
// applicable tier fires per check.
var tiers = []struct {
	percent float64
	typ     string
}{
	{100, model.NotificationQuotaExceeded},
	{95, model.NotificationQuotaCritical},
	{80, model.NotificationQuotaWarning},
}

// TenantSource reads the tenant's current usage snapshot and quota.
type TenantSource interface {
	GetByID(ctx context.Context, id int64) (*model.Tenant, error)
}

// NotificationStore checks for recent duplicates and inserts notifications.
type NotificationStore interface {
	ExistsRecent(ctx context.Context, tenantID int64, notifType string, window time.Duration) (bool, error)
	Insert(ctx context.Context, n *model.Notification) error
}

// Engine evaluates tenant storage usage against quota and emits
// threshold-crossing notifications, suppressing repeats inside the
// de-duplication window. Without suppression an hourly collector would page
// the tenant every hour once a threshold is crossed.
type Engine struct {
	tenants       TenantSource
	notifications NotificationStore
	dedupWindow   time.Duration
	logger        zerolog.Logger
}

func NewEngine(logger zerolog.Logger, tenants TenantSource, notifications NotificationStore, dedupWindow time.Duration) *Engine {
	return &Engine{
		tenants:       tenants,
		notifications: notifications,
		dedupWindow:   dedupWindow,
		logger:        logger.With().Str("component", "quota-alerts").Logger(),
	}
}

// CheckQuotaAlerts evaluates the tenant and emits at most one notification:
// the highest tier whose threshold the usage crosses.
func (e *Engine) CheckQuotaAlerts(ctx context.Context, tenantID int64) error {
	tenant, err := e.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("check quota alerts: %w", err)
	}
	if tenant.StorageQuotaGB <= 0 {
		return nil
	}

	usedGB := float64(tenant.StorageUsedBytes) / float64(bytesPerGB)
	usagePercent := usedGB / float64(tenant.StorageQuotaGB) * 100

	for _, tier := range tiers {
		if usagePercent < tier.percent {
			continue
		}

		recent, err := e.notifications.ExistsRecent(ctx, tenantID, tier.typ, e.dedupWindow)
		if err != nil {
			return fmt.Errorf("check quota alerts: %w", err)
		}
		if recent {
			alertsSuppressed.WithLabelValues(tier.typ).Inc()
			return nil
		}

		metadata, _ := json.Marshal(map[string]any{
			"usage_percent":      usagePercent,
			"storage_used_bytes": tenant.StorageUsedBytes,
			"storage_quota_gb":   tenant.StorageQuotaGB,
		})
		if err := e.notifications.Insert(ctx, &model.Notification{
			TenantID: tenantID,
			Type:     tier.typ,
			Title:    titleFor(tier.typ),
			Message:  fmt.Sprintf("Storage usage is at %.1f%% of your %d GB quota.", usagePercent, tenant.StorageQuotaGB),
			Metadata: metadata,
		}); err != nil {
			return fmt.Errorf("check quota alerts: %w", err)
		}
		alertsEmitted.WithLabelValues(tier.typ).Inc()

		e.logger.Info().
			Int64("tenant", tenantID).
			Str("type", tier.typ).
			Float64("usage_percent", usagePercent).
			Msg("quota alert emitted")
		return nil
	}

	return nil
}

func titleFor(notifType string) string {
	switch notifType {
	case model.NotificationQuotaExceeded:
		return "Storage quota exceeded"
	case model.NotificationQuotaCritical:
		return "Storage quota almost exhausted"
	default:
		return "Storage quota warning"
	}
}
