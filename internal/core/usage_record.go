package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/model"
	"github.com/edvin/metering/internal/platform"
)

type UsageRecordService struct {
	db DB
}

func NewUsageRecordService(db DB) *UsageRecordService {
	return &UsageRecordService{db: db}
}

func (s *UsageRecordService) Insert(ctx context.Context, rec *model.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = platform.NewID()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO usage_records (id, tenant_id, storage_bytes, bandwidth_ingress, bandwidth_egress, requests_count, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.TenantID, rec.StorageBytes, rec.BandwidthIngress, rec.BandwidthEgress,
		rec.RequestsCount, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// LatestStorageInPeriod returns the most recent storage snapshot within the
// period. found is false when the tenant has no samples in the period.
func (s *UsageRecordService) LatestStorageInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (storageBytes int64, found bool, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT storage_bytes FROM usage_records
		 WHERE tenant_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		 ORDER BY recorded_at DESC LIMIT 1`,
		tenantID, start, end,
	).Scan(&storageBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest storage for tenant %d: %w", tenantID, err)
	}
	return storageBytes, true, nil
}

// PeriodFlows holds the summed flow quantities of a billing period.
type PeriodFlows struct {
	BandwidthBytes int64
	RequestsCount  int64
}

// SumFlowsInPeriod sums bandwidth (ingress + egress) and request counts over
// all samples in the period. Storage is deliberately excluded: it is a
// snapshot, not a flow.
func (s *UsageRecordService) SumFlowsInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (PeriodFlows, error) {
	var f PeriodFlows
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(bandwidth_ingress + bandwidth_egress), 0),
		        COALESCE(SUM(requests_count), 0)
		 FROM usage_records
		 WHERE tenant_id = $1 AND recorded_at >= $2 AND recorded_at <= $3`,
		tenantID, start, end,
	).Scan(&f.BandwidthBytes, &f.RequestsCount)
	if err != nil {
		return PeriodFlows{}, fmt.Errorf("sum flows for tenant %d: %w", tenantID, err)
	}
	return f, nil
}

func (s *UsageRecordService) ListByTenant(ctx context.Context, tenantID int64, params request.ListParams) ([]model.UsageRecord, bool, error) {
	query := `SELECT id, tenant_id, storage_bytes, bandwidth_ingress, bandwidth_egress, requests_count, recorded_at
		 FROM usage_records WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list usage records for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var r model.UsageRecord
		if err := rows.Scan(&r.ID, &r.TenantID, &r.StorageBytes, &r.BandwidthIngress,
			&r.BandwidthEgress, &r.RequestsCount, &r.RecordedAt); err != nil {
			return nil, false, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate usage records: %w", err)
	}

	hasMore := len(records) > params.Limit
	if hasMore {
		records = records[:params.Limit]
	}
	return records, hasMore, nil
}
