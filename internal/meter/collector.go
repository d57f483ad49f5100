package meter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/metering/internal/model"
	"github.com/edvin/metering/internal/objectstore"
)

var (
	collectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_collector_runs_total",
			Help: "Total collection passes, by result",
		},
		[]string{"result"},
	)
	collectorTenants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_collector_tenants_total",
			Help: "Tenants processed by the usage collector, by result",
		},
		[]string{"result"},
	)
	collectorActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "usage_collector_run_active",
			Help: "1 while a collection pass is in flight",
		},
	)
)

// TenantStore is the tenant persistence the collector needs.
type TenantStore interface {
	ListActive(ctx context.Context) ([]model.Tenant, error)
	UpdateUsageTotals(ctx context.Context, id int64, storageBytes, bandwidthDelta int64) error
}

// BucketStore is the bucket persistence the collector needs.
type BucketStore interface {
	ListByTenant(ctx context.Context, tenantID int64) ([]model.Bucket, error)
	UpdateStats(ctx context.Context, id string, sizeBytes, objectCount int64) error
}

// UsageStore persists usage samples.
type UsageStore interface {
	Insert(ctx context.Context, rec *model.UsageRecord) error
}

// StatSource provides per-bucket and tenant-wide statistics from the object
// store. Implemented by objectstore.TenantAdapter.
type StatSource interface {
	StatTenantBucket(ctx context.Context, tenantID int64, logical string) (objectstore.Stats, error)
	AggregateTenantStats(ctx context.Context, tenantID int64) (objectstore.Stats, error)
	Ping(ctx context.Context) error
}

// QuotaChecker is invoked for each tenant after its usage sample is written.
type QuotaChecker interface {
	CheckQuotaAlerts(ctx context.Context, tenantID int64) error
}

// Summary is the result of one collection pass.
type Summary struct {
	Collected int  `json:"collected"`
	Errors    int  `json:"errors"`
	Skipped   bool `json:"skipped,omitempty"`
}

// Collector samples per-tenant storage usage and writes usage records. At
// most one pass runs at a time: a firing that overlaps an in-flight pass is
// skipped, not queued.
type Collector struct {
	tenants   TenantStore
	buckets   BucketStore
	usage     UsageStore
	stats     StatSource
	estimator Estimator
	quota     QuotaChecker
	logger    zerolog.Logger

	// TenantTimeout bounds one tenant's collection. Zero disables the bound.
	TenantTimeout time.Duration
	// Parallelism is the number of tenants collected concurrently.
	Parallelism int

	running atomic.Bool
}

func NewCollector(logger zerolog.Logger, tenants TenantStore, buckets BucketStore, usage UsageStore,
	stats StatSource, estimator Estimator, quota QuotaChecker) *Collector {
	return &Collector{
		tenants:       tenants,
		buckets:       buckets,
		usage:         usage,
		stats:         stats,
		estimator:     estimator,
		quota:         quota,
		logger:        logger.With().Str("component", "usage-collector").Logger(),
		TenantTimeout: 5 * time.Minute,
		Parallelism:   1,
	}
}

// Running reports whether a collection pass is currently in flight.
func (c *Collector) Running() bool {
	return c.running.Load()
}

// RunOnce executes one collection pass over all active tenants. If a pass is
// already in flight the call returns immediately with Skipped set. Per-tenant
// failures are counted and logged; they never abort the pass.
func (c *Collector) RunOnce(ctx context.Context) (Summary, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Warn().Msg("collection pass already in flight, skipping")
		collectorRuns.WithLabelValues("skipped").Inc()
		return Summary{Skipped: true}, nil
	}
	defer c.running.Store(false)

	collectorActive.Set(1)
	defer collectorActive.Set(0)

	start := time.Now()

	tenants, err := c.tenants.ListActive(ctx)
	if err != nil {
		collectorRuns.WithLabelValues("failed").Inc()
		return Summary{}, err
	}

	var collected, errored atomic.Int64

	parallelism := c.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, tenant := range tenants {
		g.Go(func() error {
			if err := c.collectTenant(gctx, tenant); err != nil {
				errored.Add(1)
				collectorTenants.WithLabelValues("error").Inc()
				c.logger.Error().Err(err).
					Int64("tenant", tenant.ID).
					Msg("failed to collect tenant usage")
				return nil
			}
			collected.Add(1)
			collectorTenants.WithLabelValues("collected").Inc()
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Collected: int(collected.Load()), Errors: int(errored.Load())}
	collectorRuns.WithLabelValues("completed").Inc()
	c.logger.Info().
		Int("collected", summary.Collected).
		Int("errors", summary.Errors).
		Dur("duration", time.Since(start)).
		Msg("collection pass finished")
	return summary, nil
}

func (c *Collector) collectTenant(ctx context.Context, tenant model.Tenant) error {
	if c.TenantTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.TenantTimeout)
		defer cancel()
	}

	// A transient object-store outage must never overwrite good totals with
	// zero, so the tenant is skipped outright when the store is unreachable.
	if err := c.stats.Ping(ctx); err != nil {
		return err
	}

	buckets, err := c.buckets.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return err
	}

	var total objectstore.Stats
	if len(buckets) == 0 {
		// No registered buckets: fall back to a tenant-wide aggregate so
		// auto-discovered buckets are still metered.
		total, err = c.stats.AggregateTenantStats(ctx, tenant.ID)
		if err != nil {
			return err
		}
	} else {
		for _, bucket := range buckets {
			stats, err := c.stats.StatTenantBucket(ctx, tenant.ID, bucket.Name)
			if err != nil {
				// Bucket-scoped failure: contributes zero, never aborts the
				// tenant's other buckets.
				c.logger.Warn().Err(err).
					Int64("tenant", tenant.ID).
					Str("bucket", bucket.Name).
					Msg("failed to stat bucket, counting as zero")
				continue
			}
			total.SizeBytes += stats.SizeBytes
			total.ObjectCount += stats.ObjectCount

			if err := c.buckets.UpdateStats(ctx, bucket.ID, stats.SizeBytes, stats.ObjectCount); err != nil {
				return err
			}
		}
	}

	traffic := c.estimator.Estimate(total.SizeBytes, total.ObjectCount)

	if err := c.usage.Insert(ctx, &model.UsageRecord{
		TenantID:         tenant.ID,
		StorageBytes:     total.SizeBytes,
		BandwidthIngress: traffic.IngressBytes,
		BandwidthEgress:  traffic.EgressBytes,
		RequestsCount:    traffic.RequestsCount,
	}); err != nil {
		return err
	}

	if err := c.tenants.UpdateUsageTotals(ctx, tenant.ID, total.SizeBytes,
		traffic.IngressBytes+traffic.EgressBytes); err != nil {
		return err
	}

	// Quota evaluation runs after the usage record insert for this tenant.
	// Alerting is best-effort; a failure here does not fail the tenant.
	if err := c.quota.CheckQuotaAlerts(ctx, tenant.ID); err != nil {
		c.logger.Warn().Err(err).
			Int64("tenant", tenant.ID).
			Msg("quota alert check failed")
	}

	return nil
}
