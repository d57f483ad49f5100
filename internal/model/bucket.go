package model

import "time"

type Bucket struct {
	ID       string `json:"id" db:"id"`
	TenantID int64  `json:"tenant_id" db:"tenant_id"`
	// Name is the logical, tenant-facing bucket name. The physical name on
	// the object store is resolved through the tenant storage adapter.
	Name   string `json:"name" db:"name"`
	Region string `json:"region" db:"region"`
	// SizeBytes and ObjectCount are overwritten wholesale by each collection
	// pass. They represent the last observed state, not a ledger.
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	ObjectCount int64     `json:"object_count" db:"object_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
