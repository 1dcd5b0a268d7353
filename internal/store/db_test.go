package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newTestDB backs the store with an in-memory SQLite database so the
// journal queries run without a Postgres instance.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	db := &DB{Bun: bun.NewDB(sqldb, sqlitedialect.New())}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.Bun.NewCreateTable().Model((*PaymentAttempt)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.Bun.NewCreateTable().Model((*WebhookRecord)(nil)).Exec(ctx)
	require.NoError(t, err)

	return db
}

func testAttempt() *PaymentAttempt {
	return &PaymentAttempt{
		ID:             "att-1",
		OrderID:        "ord-1",
		OrderNumber:    "BOL-0042",
		ConektaOrderID: "ord_conekta_1",
		Email:          "buyer@example.com",
		EventID:        "evt-1",
		OrganizationID: "org-1",
		Total:          1000,
		Status:         AttemptSucceeded,
		CheckoutURL:    "https://pay.conekta.com/chk-1",
	}
}

func TestSaveAndGetAttempt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveAttempt(ctx, testAttempt()))

	got, err := db.GetAttemptByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "att-1", got.ID)
	assert.Equal(t, "BOL-0042", got.OrderNumber)
	assert.Equal(t, AttemptSucceeded, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetAttemptByOrderIDMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAttemptByOrderID(context.Background(), "ord-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateAttemptStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveAttempt(ctx, testAttempt()))
	require.NoError(t, db.UpdateAttemptStatus(ctx, "ord-1", AttemptPaid))

	got, err := db.GetAttemptByOrderID(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, AttemptPaid, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestUpdateAttemptStatusUnknownOrderIsNoop(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.UpdateAttemptStatus(context.Background(), "ord-missing", AttemptPaid))
}

func TestSaveWebhookUpsertsOnRedelivery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &WebhookRecord{
		EventID: "evt-1",
		Type:    "order.paid",
		OrderID: "ord-1",
		Outcome: "paid",
	}
	require.NoError(t, db.SaveWebhook(ctx, first))

	redelivery := &WebhookRecord{
		EventID:    "evt-1",
		Type:       "order.paid",
		OrderID:    "ord-1",
		Outcome:    "duplicate",
		ReceivedAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, db.SaveWebhook(ctx, redelivery))

	var records []WebhookRecord
	require.NoError(t, db.Bun.NewSelect().Model(&records).Scan(ctx))
	require.Len(t, records, 1)
	assert.Equal(t, "duplicate", records[0].Outcome)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background()))
}
