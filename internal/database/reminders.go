package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eva-meds/internal/apperr"
	"eva-meds/internal/clock"
	"eva-meds/pkg/models"
)

const reminderColumns = `id, target_user_id, created_by, medicine_id, medicine_name, times, days_of_week,
	start_date, end_date, timezone, channel_in_app, channel_email, channel_sms, channel_whatsapp,
	watchers, active, last_triggered_at, calendar_event_ids, created_at, updated_at`

func scanReminder(row scanner) (*models.Reminder, error) {
	var (
		r         models.Reminder
		startDate time.Time
		endDate   sql.NullTime
		lastFired sql.NullTime
	)

	err := row.Scan(
		&r.ID, &r.TargetUserID, &r.CreatedBy, &r.MedicineID, &r.MedicineName,
		pq.Array(&r.Times), pq.Array(&r.DaysOfWeek),
		&startDate, &endDate, &r.Timezone,
		&r.Channels.InApp, &r.Channels.Email, &r.Channels.SMS, &r.Channels.WhatsApp,
		pq.Array(&r.Watchers), &r.Active, &lastFired, pq.Array(&r.CalendarEventIDs),
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.StartDate = startDate.Format(clock.DateLayout)
	if endDate.Valid {
		end := endDate.Time.Format(clock.DateLayout)
		r.EndDate = &end
	}
	if lastFired.Valid {
		t := lastFired.Time
		r.LastTriggeredAt = &t
	}

	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]*models.Reminder, error) {
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// DueReminders lembretes ativos cuja regra casa com (data, hh:mm, dia da semana) de referência
func (db *DB) DueReminders(ctx context.Context, dateKey, hhmm, weekday string) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE active
		  AND $1 = ANY(times)
		  AND start_date <= $2::date
		  AND (end_date IS NULL OR end_date >= $2::date)
		  AND (cardinality(days_of_week) = 0 OR $3 = ANY(days_of_week))
		ORDER BY created_at ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, hhmm, dateKey, weekday)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	return scanReminders(rows)
}

func (db *DB) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`

	r, err := scanReminder(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("reminder %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

// ListRemindersForUser lembretes em que o usuário é alvo, criador ou observador
func (db *DB) ListRemindersForUser(ctx context.Context, userID string) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE target_user_id = $1 OR created_by = $1 OR $1 = ANY(watchers)
		ORDER BY created_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	return scanReminders(rows)
}

func (db *DB) CreateReminder(ctx context.Context, r *models.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := db.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	query := `
		INSERT INTO reminders (
			id, target_user_id, created_by, medicine_id, medicine_name, times, days_of_week,
			start_date, end_date, timezone, channel_in_app, channel_email, channel_sms, channel_whatsapp,
			watchers, active, calendar_event_ids, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := db.conn.ExecContext(ctx, query,
		r.ID, r.TargetUserID, r.CreatedBy, r.MedicineID, r.MedicineName,
		pq.Array(r.Times), pq.Array(r.DaysOfWeek), r.StartDate, r.EndDate, r.Timezone,
		r.Channels.InApp, r.Channels.Email, r.Channels.SMS, r.Channels.WhatsApp,
		pq.Array(r.Watchers), r.Active, pq.Array(r.CalendarEventIDs), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

// UpdateReminder regrava os campos editáveis (não mexe em last_triggered_at)
func (db *DB) UpdateReminder(ctx context.Context, r *models.Reminder) error {
	r.UpdatedAt = db.now().UTC()

	query := `
		UPDATE reminders SET
			medicine_name = $2, times = $3, days_of_week = $4, start_date = $5, end_date = $6,
			timezone = $7, channel_in_app = $8, channel_email = $9, channel_sms = $10, channel_whatsapp = $11,
			watchers = $12, active = $13, calendar_event_ids = $14, updated_at = $15
		WHERE id = $1
	`

	res, err := db.conn.ExecContext(ctx, query,
		r.ID, r.MedicineName, pq.Array(r.Times), pq.Array(r.DaysOfWeek), r.StartDate, r.EndDate,
		r.Timezone, r.Channels.InApp, r.Channels.Email, r.Channels.SMS, r.Channels.WhatsApp,
		pq.Array(r.Watchers), r.Active, pq.Array(r.CalendarEventIDs), r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return requireOneRow(res, apperr.NotFound("reminder %s", r.ID))
}

func (db *DB) MarkReminderTriggered(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE reminders SET last_triggered_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder triggered: %w", err)
	}
	return nil
}

func (db *DB) SetCalendarEventIDs(ctx context.Context, id string, eventIDs []string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE reminders SET calendar_event_ids = $2 WHERE id = $1`,
		id, pq.Array(eventIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to set calendar events: %w", err)
	}
	return nil
}

// DeactivateRemindersForMedicine desativa os lembretes do medicamento e devolve os afetados
func (db *DB) DeactivateRemindersForMedicine(ctx context.Context, medicineID string) ([]*models.Reminder, error) {
	query := `
		UPDATE reminders SET active = false, updated_at = $2
		WHERE medicine_id = $1 AND active
		RETURNING ` + reminderColumns

	rows, err := db.conn.QueryContext(ctx, query, medicineID, db.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate reminders: %w", err)
	}

	return scanReminders(rows)
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
