package store

import (
	"time"

	"github.com/uptrace/bun"
)

// PaymentAttempt journals one checkout saga run. Rows are written
// best-effort after the saga settles; the expiry sweeper and manual
// reconciliation read them.
type PaymentAttempt struct {
	bun.BaseModel `bun:"table:payment_attempts"`

	ID             string    `bun:"id,pk" json:"id"`
	OrderID        string    `bun:"order_id,nullzero" json:"order_id"`
	OrderNumber    string    `bun:"order_number,nullzero" json:"order_number"`
	ConektaOrderID string    `bun:"conekta_order_id,nullzero" json:"conekta_order_id"`
	Email          string    `bun:"email" json:"email"`
	EventID        string    `bun:"event_id" json:"event_id"`
	OrganizationID string    `bun:"organization_id" json:"organization_id"`
	Total          float64   `bun:"total" json:"total"`
	Status         string    `bun:"status" json:"status"`
	CheckoutURL    string    `bun:"checkout_url,nullzero" json:"checkout_url,omitempty"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// Attempt statuses.
const (
	AttemptSucceeded   = "succeeded"
	AttemptFailed      = "failed"
	AttemptExpired     = "expired"
	AttemptPaid        = "paid"
	AttemptCancelled   = "cancelled"
	AttemptRefunded    = "refunded"
	AttemptInitialized = "initialized"
)

// WebhookRecord journals one received processor event and what the
// reconciler did with it.
type WebhookRecord struct {
	bun.BaseModel `bun:"table:webhook_events"`

	EventID    string    `bun:"event_id,pk" json:"event_id"`
	Type       string    `bun:"type" json:"type"`
	OrderID    string    `bun:"order_id,nullzero" json:"order_id,omitempty"`
	Outcome    string    `bun:"outcome" json:"outcome"`
	ReceivedAt time.Time `bun:"received_at,notnull" json:"received_at"`
}
