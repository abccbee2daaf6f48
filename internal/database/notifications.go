package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"eva-meds/internal/apperr"
	"eva-meds/pkg/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = db.now().UTC()
	}

	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode notification meta: %w", err)
	}
	if n.Meta == nil {
		meta = []byte("{}")
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, meta, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
	`, n.ID, n.UserID, n.Type, n.Title, n.Body, string(meta), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications notificações do usuário, mais recentes primeiro
func (db *DB) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, type, title, body, meta, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		var (
			n    models.Notification
			meta []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &meta, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &n.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode notification meta: %w", err)
			}
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkNotificationRead só marca notificações do próprio usuário
func (db *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return requireOneRow(res, apperr.NotFound("notification %s", id))
}
