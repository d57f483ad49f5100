package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/model"
	"github.com/edvin/metering/internal/platform"
)

type NotificationService struct {
	db DB
}

func NewNotificationService(db DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Insert(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = platform.NewID()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO notifications (id, tenant_id, type, title, message, metadata, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, now())
		 RETURNING created_at`,
		n.ID, n.TenantID, n.Type, n.Title, n.Message, n.Metadata,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ExistsRecent reports whether a notification of the given type was created
// for the tenant within the window. Used for de-duplication before insert.
func (s *NotificationService) ExistsRecent(ctx context.Context, tenantID int64, notifType string, window time.Duration) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM notifications
		   WHERE tenant_id = $1 AND type = $2 AND created_at > now() - $3::interval
		 )`,
		tenantID, notifType, window.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent notification for tenant %d: %w", tenantID, err)
	}
	return exists, nil
}

func (s *NotificationService) ListByTenant(ctx context.Context, tenantID int64, params request.ListParams) ([]model.Notification, bool, error) {
	query := `SELECT id, tenant_id, type, title, message, metadata, is_read, created_at
		 FROM notifications WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list notifications for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Type, &n.Title, &n.Message, &n.Metadata,
			&n.IsRead, &n.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate notifications: %w", err)
	}

	hasMore := len(notifications) > params.Limit
	if hasMore {
		notifications = notifications[:params.Limit]
	}
	return notifications, hasMore, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE notifications SET is_read = true WHERE id = $1", id,
	)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}
