package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB store Postgres dos lembretes, ocorrências, log de adesão, estoque e notificações
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewDB abre a conexão e testa com ping
func NewDB(databaseURL string, logger *zap.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(conn, logger), nil
}

// New envolve uma conexão existente (usado também pelos testes com sqlmock)
func New(conn *sql.DB, logger *zap.Logger) *DB {
	return &DB{conn: conn, logger: logger, now: time.Now}
}

func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// scanner cobre *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}
