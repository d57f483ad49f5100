package model

import "time"

type Tenant struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	// Status is one of pending, active, suspended, rejected. Only active
	// tenants are metered and billed.
	Status string `json:"status" db:"status"`
	// StorageUsedBytes is the last observed total, replaced wholesale by
	// each collection pass.
	StorageUsedBytes int64 `json:"storage_used_bytes" db:"storage_used_bytes"`
	// BandwidthUsedBytes accumulates across collection passes.
	BandwidthUsedBytes int64     `json:"bandwidth_used_bytes" db:"bandwidth_used_bytes"`
	StorageQuotaGB     int       `json:"storage_quota_gb" db:"storage_quota_gb"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
