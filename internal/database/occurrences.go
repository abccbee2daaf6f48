package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/pkg/models"
)

const occurrenceColumns = `id, user_id, reminder_id, medicine_id, medicine_name, scheduled_time,
	status, confirmed_at, dismissed_at, not_taken_notified, created_at`

func scanOccurrence(row scanner) (*models.PendingOccurrence, error) {
	var (
		o         models.PendingOccurrence
		status    string
		confirmed sql.NullTime
		dismissed sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.UserID, &o.ReminderID, &o.MedicineID, &o.MedicineName, &o.ScheduledTime,
		&status, &confirmed, &dismissed, &o.NotTakenNotified, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = models.OccurrenceStatus(status)
	if confirmed.Valid {
		t := confirmed.Time
		o.ConfirmedAt = &t
	}
	if dismissed.Valid {
		t := dismissed.Time
		o.DismissedAt = &t
	}
	return &o, nil
}

func scanOccurrences(rows *sql.Rows) ([]*models.PendingOccurrence, error) {
	defer rows.Close()

	var list []*models.PendingOccurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// CreateOccurrence insere a ocorrência se ainda não existir uma para
// (reminder, user, scheduledTime). created=false indica disparo repetido.
func (db *DB) CreateOccurrence(ctx context.Context, o *models.PendingOccurrence) (bool, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = models.OccurrencePending
	o.CreatedAt = db.now().UTC()

	query := `
		INSERT INTO pending_occurrences (
			id, user_id, reminder_id, medicine_id, medicine_name, scheduled_time, status, not_taken_notified, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'pending', false, $7)
		ON CONFLICT (reminder_id, user_id, scheduled_time) DO NOTHING
	`

	res, err := db.conn.ExecContext(ctx, query,
		o.ID, o.UserID, o.ReminderID, o.MedicineID, o.MedicineName, o.ScheduledTime, o.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert occurrence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (db *DB) GetOccurrence(ctx context.Context, id string) (*models.PendingOccurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM pending_occurrences WHERE id = $1`

	o, err := scanOccurrence(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("occurrence %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence: %w", err)
	}
	return o, nil
}

// ListOccurrences ocorrências do usuário, mais recentes primeiro. status vazio = todas.
func (db *DB) ListOccurrences(ctx context.Context, userID string, status models.OccurrenceStatus) ([]*models.PendingOccurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM pending_occurrences
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY scheduled_time DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	return scanOccurrences(rows)
}

// OverdueOccurrences pendentes agendadas até cutoff que ainda não geraram aviso de não tomado
func (db *DB) OverdueOccurrences(ctx context.Context, cutoff time.Time, limit int) ([]*models.PendingOccurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM pending_occurrences
		WHERE status = 'pending'
		  AND scheduled_time <= $1
		  AND NOT not_taken_notified
		ORDER BY scheduled_time ASC
		LIMIT $2
	`

	rows, err := db.conn.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue occurrences: %w", err)
	}
	return scanOccurrences(rows)
}

// MarkNotTakenNotified liga a flag de forma condicional. false = outra execução
// já marcou ou a ocorrência deixou de estar pendente.
func (db *DB) MarkNotTakenNotified(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE pending_occurrences SET not_taken_notified = true
		WHERE id = $1 AND status = 'pending' AND NOT not_taken_notified
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to flag occurrence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// Completion transição terminal de uma ocorrência e seus efeitos duráveis
type Completion struct {
	OccurrenceID string
	Status       models.OccurrenceStatus
	At           time.Time
	Entry        *models.AdherenceLogEntry
	// DecrementMedicineID vazio = sem baixa de estoque
	DecrementMedicineID string
}

// CompleteOccurrence aplica numa transação: pending -> confirmed/dismissed,
// upsert do log de adesão e baixa de uma unidade do estoque (mínimo 0).
// Se a ocorrência já não estava pendente nada é gravado e o erro é ErrInvalidState.
func (db *DB) CompleteOccurrence(ctx context.Context, c Completion) (*models.AdherenceLogEntry, error) {
	var column string
	switch c.Status {
	case models.OccurrenceConfirmed:
		column = "confirmed_at"
	case models.OccurrenceDismissed:
		column = "dismissed_at"
	default:
		return nil, apperr.InvalidInput("terminal status %q", c.Status)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Warn("Rollback falhou", zap.Error(rbErr))
			}
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE pending_occurrences SET status = $2, `+column+` = $3 WHERE id = $1 AND status = 'pending'`,
		c.OccurrenceID, string(c.Status), c.At,
	)
	if err != nil {
		err = fmt.Errorf("failed to update occurrence: %w", err)
		return nil, err
	}
	if err = requireOneRow(res, apperr.InvalidState("occurrence %s", c.OccurrenceID)); err != nil {
		return nil, err
	}

	entry := *c.Entry
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO adherence_logs (
			id, user_id, medicine_id, reminder_id, scheduled_time, status, action_time, delay_minutes, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, medicine_id, reminder_id, scheduled_time) DO UPDATE SET
			status = EXCLUDED.status,
			action_time = EXCLUDED.action_time,
			delay_minutes = EXCLUDED.delay_minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`,
		entry.ID, entry.UserID, entry.MedicineID, entry.ReminderID, entry.ScheduledTime,
		string(entry.Status), entry.ActionTime, entry.DelayMinutes, entry.UpdatedAt,
	).Scan(&entry.ID)
	if err != nil {
		err = fmt.Errorf("failed to upsert adherence log: %w", err)
		return nil, err
	}

	if c.DecrementMedicineID != "" {
		res, err = tx.ExecContext(ctx,
			`UPDATE medicines SET quantity = GREATEST(quantity - 1, 0), updated_at = $2 WHERE id = $1`,
			c.DecrementMedicineID, c.At,
		)
		if err != nil {
			err = fmt.Errorf("failed to decrement stock: %w", err)
			return nil, err
		}
		if err = requireOneRow(res, apperr.NotFound("medicine %s", c.DecrementMedicineID)); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit completion: %w", err)
		return nil, err
	}

	return &entry, nil
}
