package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/metering/internal/model"
)

func TestBucketService_Create_DefaultsID(t *testing.T) {
	db := &mockDB{}
	svc := NewBucketService(db)
	ctx := context.Background()

	bucket := &model.Bucket{TenantID: 7, Name: "photos"}

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*time.Time)) = time.Now()
		*(dest[1].(*time.Time)) = time.Now()
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.Create(ctx, bucket)
	require.NoError(t, err)
	assert.NotEmpty(t, bucket.ID)
	db.AssertExpectations(t)
}

func TestBucketService_ListByTenant(t *testing.T) {
	db := &mockDB{}
	svc := NewBucketService(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "b1"
			*(dest[1].(*int64)) = 7
			*(dest[2].(*string)) = "backups"
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "b2"
			*(dest[1].(*int64)) = 7
			*(dest[2].(*string)) = "photos"
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{int64(7)}).Return(rows, nil)

	buckets, err := svc.ListByTenant(ctx, 7)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "backups", buckets[0].Name)
	db.AssertExpectations(t)
}

func TestBucketService_UpdateStats_Overwrites(t *testing.T) {
	db := &mockDB{}
	svc := NewBucketService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{int64(4096), int64(12), "b1"}).
		Return(pgconn.CommandTag{}, nil)

	err := svc.UpdateStats(ctx, "b1", 4096, 12)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestBucketService_Delete_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewBucketService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"b1"}).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := svc.Delete(ctx, "b1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete bucket b1")
	db.AssertExpectations(t)
}
