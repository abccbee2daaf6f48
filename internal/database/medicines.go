package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eva-meds/internal/apperr"
	"eva-meds/pkg/models"
)

func (db *DB) CreateMedicine(ctx context.Context, m *models.Medicine) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := db.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO medicines (id, owner_id, name, dosage, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.OwnerID, m.Name, m.Dosage, m.Quantity, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert medicine: %w", err)
	}
	return nil
}

func (db *DB) GetMedicine(ctx context.Context, id string) (*models.Medicine, error) {
	var m models.Medicine
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, owner_id, name, dosage, quantity, created_at, updated_at
		FROM medicines WHERE id = $1
	`, id).Scan(&m.ID, &m.OwnerID, &m.Name, &m.Dosage, &m.Quantity, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("medicine %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return &m, nil
}

func (db *DB) DeleteMedicine(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	return requireOneRow(res, apperr.NotFound("medicine %s", id))
}

// RefillMedicine soma amount ao estoque e devolve o medicamento atualizado
func (db *DB) RefillMedicine(ctx context.Context, id string, amount int) (*models.Medicine, error) {
	var m models.Medicine
	err := db.conn.QueryRowContext(ctx, `
		UPDATE medicines SET quantity = quantity + $2, updated_at = $3
		WHERE id = $1
		RETURNING id, owner_id, name, dosage, quantity, created_at, updated_at
	`, id, amount, db.now().UTC()).Scan(&m.ID, &m.OwnerID, &m.Name, &m.Dosage, &m.Quantity, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("medicine %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refill medicine: %w", err)
	}
	return &m, nil
}
