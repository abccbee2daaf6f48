package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eva-meds/pkg/models"
)

// ListAdherence log de adesão do usuário em [from, to]. Limites zero = sem limite.
func (db *DB) ListAdherence(ctx context.Context, userID string, from, to time.Time) ([]*models.AdherenceLogEntry, error) {
	query := `
		SELECT id, user_id, medicine_id, reminder_id, scheduled_time, status, action_time, delay_minutes, updated_at
		FROM adherence_logs
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR scheduled_time >= $2)
		  AND ($3::timestamptz IS NULL OR scheduled_time <= $3)
		ORDER BY scheduled_time DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list adherence: %w", err)
	}
	defer rows.Close()

	var entries []*models.AdherenceLogEntry
	for rows.Next() {
		var (
			e      models.AdherenceLogEntry
			status string
			action sql.NullTime
			delay  sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.MedicineID, &e.ReminderID, &e.ScheduledTime,
			&status, &action, &delay, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan adherence log: %w", err)
		}

		e.Status = models.AdherenceStatus(status)
		if action.Valid {
			t := action.Time
			e.ActionTime = &t
		}
		if delay.Valid {
			d := int(delay.Int64)
			e.DelayMinutes = &d
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
