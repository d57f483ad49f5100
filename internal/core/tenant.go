package core

import (
	"context"
	"fmt"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/model"
)

type TenantService struct {
	db DB
}

func NewTenantService(db DB) *TenantService {
	return &TenantService{db: db}
}

func (s *TenantService) Create(ctx context.Context, tenant *model.Tenant) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, status, storage_used_bytes, bandwidth_used_bytes, storage_quota_gb, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING id, created_at, updated_at`,
		tenant.Name, tenant.Status, tenant.StorageUsedBytes, tenant.BandwidthUsedBytes, tenant.StorageQuotaGB,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *TenantService) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, name, status, storage_used_bytes, bandwidth_used_bytes, storage_quota_gb, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Status, &t.StorageUsedBytes, &t.BandwidthUsedBytes,
		&t.StorageQuotaGB, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get tenant %d: %w", id, err)
	}
	return &t, nil
}

func (s *TenantService) List(ctx context.Context, params request.ListParams) ([]model.Tenant, bool, error) {
	query := `SELECT id, name, status, storage_used_bytes, bandwidth_used_bytes, storage_quota_gb, created_at, updated_at
		 FROM tenants WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.StorageUsedBytes, &t.BandwidthUsedBytes,
			&t.StorageQuotaGB, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate tenants: %w", err)
	}

	hasMore := len(tenants) > params.Limit
	if hasMore {
		tenants = tenants[:params.Limit]
	}
	return tenants, hasMore, nil
}

// ListActive returns all tenants eligible for metering and billing.
func (s *TenantService) ListActive(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, status, storage_used_bytes, bandwidth_used_bytes, storage_quota_gb, created_at, updated_at
		 FROM tenants WHERE status = $1 ORDER BY id ASC`, model.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.StorageUsedBytes, &t.BandwidthUsedBytes,
			&t.StorageQuotaGB, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active tenants: %w", err)
	}
	return tenants, nil
}

func (s *TenantService) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update tenant %d status: %w", id, err)
	}
	return nil
}

func (s *TenantService) UpdateQuota(ctx context.Context, id int64, quotaGB int) error {
	_, err := s.db.Exec(ctx,
		"UPDATE tenants SET storage_quota_gb = $1, updated_at = now() WHERE id = $2",
		quotaGB, id,
	)
	if err != nil {
		return fmt.Errorf("update tenant %d quota: %w", id, err)
	}
	return nil
}

// UpdateUsageTotals replaces the storage snapshot and accumulates bandwidth.
// Storage is last-observed truth; bandwidth is a monotonic counter.
func (s *TenantService) UpdateUsageTotals(ctx context.Context, id int64, storageBytes, bandwidthDelta int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE tenants
		 SET storage_used_bytes = $1,
		     bandwidth_used_bytes = bandwidth_used_bytes + $2,
		     updated_at = now()
		 WHERE id = $3`,
		storageBytes, bandwidthDelta, id,
	)
	if err != nil {
		return fmt.Errorf("update tenant %d usage totals: %w", id, err)
	}
	return nil
}
