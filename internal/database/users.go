package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eva-meds/internal/apperr"
	"eva-meds/pkg/models"
)

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var (
		u     models.User
		email sql.NullString
		token sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, device_token FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &email, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Email = email.String
	u.DeviceToken = token.String
	return &u, nil
}

// FamilyLabel como observerID chama memberID (ex: "Sua mãe"). ok=false se não há vínculo.
func (db *DB) FamilyLabel(ctx context.Context, observerID, memberID string) (string, bool, error) {
	var label string
	err := db.conn.QueryRowContext(ctx,
		`SELECT label FROM family_links WHERE observer_id = $1 AND member_id = $2`,
		observerID, memberID,
	).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get family label: %w", err)
	}
	return label, true, nil
}

// ClearDeviceToken remove um token FCM rejeitado pelo Firebase
func (db *DB) ClearDeviceToken(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET device_token = NULL WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear device token: %w", err)
	}
	return nil
}
