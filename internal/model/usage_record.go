package model

import "time"

// UsageRecord is one append-only usage sample for a tenant, written once per
// collection pass and never mutated. StorageBytes is a point-in-time snapshot;
// the bandwidth and request fields are per-pass flow estimates that the
// billing engine sums over a period.
type UsageRecord struct {
	ID               string    `json:"id" db:"id"`
	TenantID         int64     `json:"tenant_id" db:"tenant_id"`
	StorageBytes     int64     `json:"storage_bytes" db:"storage_bytes"`
	BandwidthIngress int64     `json:"bandwidth_ingress" db:"bandwidth_ingress"`
	BandwidthEgress  int64     `json:"bandwidth_egress" db:"bandwidth_egress"`
	RequestsCount    int64     `json:"requests_count" db:"requests_count"`
	RecordedAt       time.Time `json:"recorded_at" db:"recorded_at"`
}
