package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// TenantAdapter resolves logical, tenant-facing bucket names to physical
// names on the object store and computes per-bucket statistics.
type TenantAdapter struct {
	store  Store
	logger zerolog.Logger
}

func NewTenantAdapter(logger zerolog.Logger, store Store) *TenantAdapter {
	return &TenantAdapter{
		store:  store,
		logger: logger.With().Str("component", "tenant-adapter").Logger(),
	}
}

// TenantPrefix returns the physical bucket name prefix for a tenant.
func TenantPrefix(tenantID int64) string {
	return fmt.Sprintf("t%d-", tenantID)
}

// ResolveBucketName deterministically maps a tenant's logical bucket name to
// its physical name: the tenant prefix plus the logical name, lower-cased,
// with any character outside [a-z0-9-] rewritten to '-'.
func ResolveBucketName(tenantID int64, logical string) string {
	return sanitizeBucketName(TenantPrefix(tenantID) + logical)
}

func sanitizeBucketName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// StatTenantBucket stats the tenant's bucket under its prefixed physical
// name. If the prefixed bucket does not exist it retries once against the
// unprefixed logical name, to cover buckets created before tenant prefixing
// was introduced.
func (a *TenantAdapter) StatTenantBucket(ctx context.Context, tenantID int64, logical string) (Stats, error) {
	physical := ResolveBucketName(tenantID, logical)

	exists, err := a.store.BucketExists(ctx, physical)
	if err != nil {
		return Stats{}, fmt.Errorf("stat tenant bucket %s: %w", physical, err)
	}
	if !exists {
		// Fall back to the pre-prefixing name.
		fallback := sanitizeBucketName(logical)
		a.logger.Debug().
			Int64("tenant", tenantID).
			Str("bucket", physical).
			Str("fallback", fallback).
			Msg("prefixed bucket not found, trying unprefixed name")

		exists, err = a.store.BucketExists(ctx, fallback)
		if err != nil {
			return Stats{}, fmt.Errorf("stat fallback bucket %s: %w", fallback, err)
		}
		if !exists {
			return Stats{}, fmt.Errorf("bucket %s not found for tenant %d", logical, tenantID)
		}
		physical = fallback
	}

	stats, err := a.store.StatBucket(ctx, physical)
	if err != nil {
		return Stats{}, fmt.Errorf("stat bucket %s: %w", physical, err)
	}
	return stats, nil
}

// AggregateTenantStats sums statistics over every bucket on the store that
// carries the tenant's prefix. Used when a tenant has no registered buckets
// (auto-discovered buckets not yet present in the database). A failure to
// stat one bucket contributes zero for that bucket only.
func (a *TenantAdapter) AggregateTenantStats(ctx context.Context, tenantID int64) (Stats, error) {
	names, err := a.store.ListBucketNames(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate stats for tenant %d: %w", tenantID, err)
	}

	prefix := TenantPrefix(tenantID)
	var total Stats
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		stats, err := a.store.StatBucket(ctx, name)
		if err != nil {
			a.logger.Warn().Err(err).
				Int64("tenant", tenantID).
				Str("bucket", name).
				Msg("failed to stat bucket, counting as zero")
			continue
		}
		total.SizeBytes += stats.SizeBytes
		total.ObjectCount += stats.ObjectCount
	}
	return total, nil
}

// Ping reports whether the object store is reachable.
func (a *TenantAdapter) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
