package store

import "context"

// Store journals checkout attempts and webhook deliveries. Everything
// here is advisory: callers log failures and move on, the two external
// backends remain the source of truth.
type Store interface {
	SaveAttempt(ctx context.Context, attempt *PaymentAttempt) error
	UpdateAttemptStatus(ctx context.Context, orderID, status string) error
	GetAttemptByOrderID(ctx context.Context, orderID string) (*PaymentAttempt, error)
	SaveWebhook(ctx context.Context, record *WebhookRecord) error

	HealthCheck(ctx context.Context) error
	Close() error
}
