package core

import (
	"context"
	"fmt"

	"github.com/edvin/metering/internal/model"
	"github.com/edvin/metering/internal/platform"
)

type BucketService struct {
	db DB
}

func NewBucketService(db DB) *BucketService {
	return &BucketService{db: db}
}

func (s *BucketService) Create(ctx context.Context, bucket *model.Bucket) error {
	if bucket.ID == "" {
		bucket.ID = platform.NewID()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO buckets (id, tenant_id, name, region, size_bytes, object_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 RETURNING created_at, updated_at`,
		bucket.ID, bucket.TenantID, bucket.Name, bucket.Region, bucket.SizeBytes, bucket.ObjectCount,
	).Scan(&bucket.CreatedAt, &bucket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bucket: %w", err)
	}
	return nil
}

func (s *BucketService) GetByID(ctx context.Context, id string) (*model.Bucket, error) {
	var b model.Bucket
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, region, size_bytes, object_count, created_at, updated_at
		 FROM buckets WHERE id = $1`, id,
	).Scan(&b.ID, &b.TenantID, &b.Name, &b.Region, &b.SizeBytes, &b.ObjectCount,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get bucket %s: %w", id, err)
	}
	return &b, nil
}

func (s *BucketService) ListByTenant(ctx context.Context, tenantID int64) ([]model.Bucket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, name, region, size_bytes, object_count, created_at, updated_at
		 FROM buckets WHERE tenant_id = $1 ORDER BY name ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list buckets for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var buckets []model.Bucket
	for rows.Next() {
		var b model.Bucket
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Name, &b.Region, &b.SizeBytes, &b.ObjectCount,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}

// UpdateStats overwrites the bucket's observed size and object count with the
// latest collection result.
func (s *BucketService) UpdateStats(ctx context.Context, id string, sizeBytes, objectCount int64) error {
	_, err := s.db.Exec(ctx,
		"UPDATE buckets SET size_bytes = $1, object_count = $2, updated_at = now() WHERE id = $3",
		sizeBytes, objectCount, id,
	)
	if err != nil {
		return fmt.Errorf("update bucket %s stats: %w", id, err)
	}
	return nil
}

func (s *BucketService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM buckets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", id, err)
	}
	return nil
}
