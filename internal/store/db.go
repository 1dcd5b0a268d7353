package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	_ "github.com/lib/pq"
)

// DB is the bun-backed Store implementation.
type DB struct {
	Bun *bun.DB
}

// Open connects to Postgres and wraps the connection in bun.
func Open(dsn string) (*DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqldb.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Bun: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (d *DB) SaveAttempt(ctx context.Context, attempt *PaymentAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().
		Model(attempt).
		Exec(ctx)
	return err
}

func (d *DB) UpdateAttemptStatus(ctx context.Context, orderID, status string) error {
	_, err := d.Bun.NewUpdate().
		Model((*PaymentAttempt)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

func (d *DB) GetAttemptByOrderID(ctx context.Context, orderID string) (*PaymentAttempt, error) {
	var attempt PaymentAttempt
	err := d.Bun.NewSelect().
		Model(&attempt).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (d *DB) SaveWebhook(ctx context.Context, record *WebhookRecord) error {
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now()
	}
	// Re-deliveries carry the same event id; the latest outcome wins.
	_, err := d.Bun.NewInsert().
		Model(record).
		On("CONFLICT (event_id) DO UPDATE").
		Set("outcome = EXCLUDED.outcome").
		Set("received_at = EXCLUDED.received_at").
		Exec(ctx)
	return err
}

func (d *DB) HealthCheck(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.Bun.Close()
}
