package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/store"
)

// TicketingAPI is the slice of the tickets-svc client the reconciler
// needs to apply payment outcomes.
type TicketingAPI interface {
	UpdateOrder(ctx context.Context, orderID string, update models.OrderUpdate) error
	GenerateTickets(ctx context.Context, orderID string) error
	ReleaseInventory(ctx context.Context, orderID string) error
	CancelTickets(ctx context.Context, orderID string) error
}

// IdempotencyGuard dedupes re-delivered events by processor event id.
type IdempotencyGuard interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

// EventPublisher streams settled payment outcomes to Kafka.
type EventPublisher interface {
	PublishPaymentSucceeded(event models.PaymentEvent) error
	PublishPaymentFailed(event models.PaymentEvent) error
	PublishPaymentRefunded(event models.PaymentEvent) error
}

// PendingRemover drops an order from the expiry sweeper's watch list
// once its payment settles.
type PendingRemover interface {
	RemoveByOrderID(ctx context.Context, orderID string) error
}

// Service maps processor webhook events onto ticketing order state.
// Every downstream call is best-effort: failures are logged and
// swallowed so the webhook endpoint can always acknowledge receipt and
// the processor does not retry-storm deliveries we genuinely received.
type Service struct {
	Ticketing TicketingAPI
	Guard     IdempotencyGuard
	Events    EventPublisher
	Pending   PendingRemover
	Journal   store.Store
	logger    *logger.Logger
}

func NewService(ticketing TicketingAPI, guard IdempotencyGuard, events EventPublisher, pending PendingRemover, journal store.Store, log *logger.Logger) *Service {
	return &Service{
		Ticketing: ticketing,
		Guard:     guard,
		Events:    events,
		Pending:   pending,
		Journal:   journal,
		logger:    log,
	}
}

// HandleEvent dispatches one verified, parsed event. It never returns an
// error: by this point the delivery is authenticated and well-formed, so
// the endpoint owes the processor a 200 regardless of what happens
// downstream.
func (s *Service) HandleEvent(ctx context.Context, event *models.WebhookEvent) {
	s.logger.LogWebhook(event.Type, event.ID, "received")

	if s.Guard != nil {
		first, err := s.Guard.FirstDelivery(ctx, event.ID)
		if err != nil {
			// Redis being down must not drop payment notifications; the
			// backend's own state machine absorbs the re-application.
			s.logger.Warn("WEBHOOK", fmt.Sprintf("Idempotency check failed for %s, processing anyway: %v", event.ID, err))
		} else if !first {
			s.logger.Info("WEBHOOK", fmt.Sprintf("Duplicate delivery of event %s, skipping", event.ID))
			s.journal(ctx, event, "", "duplicate")
			return
		}
	}

	switch event.Type {
	case "order.paid":
		s.handleOrderPaid(ctx, event)

	case "order.pending_payment":
		s.handleOrderPending(ctx, event)

	case "order.declined", "order.expired":
		s.handleOrderFailed(ctx, event)

	case "order.refunded", "order.partially_refunded":
		s.handleOrderRefunded(ctx, event)

	case "charge.paid", "charge.declined":
		// Charge-level events are informational; order.* is authoritative.
		s.logger.Info("WEBHOOK", fmt.Sprintf("Charge event %s acknowledged", event.Type))
		s.journal(ctx, event, "", "charge_logged")

	default:
		s.logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
		s.journal(ctx, event, "", "unhandled")
	}
}

func (s *Service) handleOrderPaid(ctx context.Context, event *models.WebhookEvent) {
	paymentOrder, orderID, ok := s.orderFromEvent(event)
	if !ok {
		return
	}

	now := time.Now()
	paymentMethod := derivePaymentMethod(paymentOrder)

	if err := s.Ticketing.UpdateOrder(ctx, orderID, models.OrderUpdate{
		Status:        models.OrderPaid,
		PaymentMethod: paymentMethod,
		PaidAt:        &now,
	}); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to mark order %s paid: %v", orderID, err))
	}

	if err := s.Ticketing.GenerateTickets(ctx, orderID); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to generate tickets for %s: %v", orderID, err))
	}

	s.removePending(ctx, orderID)
	s.journal(ctx, event, orderID, "paid")
	s.updateAttempt(ctx, orderID, store.AttemptPaid)

	if s.Events != nil {
		if err := s.Events.PublishPaymentSucceeded(models.PaymentEvent{
			Type:           "payment_succeeded",
			OrderID:        orderID,
			OrderNumber:    paymentOrder.Metadata[models.MetadataOrderNumber],
			ConektaOrderID: paymentOrder.ID,
			Status:         models.PaymentPaid,
			PaymentMethod:  paymentMethod,
			Timestamp:      now,
		}); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish payment success for %s: %v", orderID, err))
		}
	}

	s.logger.LogWebhook(event.Type, event.ID, fmt.Sprintf("order %s marked paid", orderID))
}

func (s *Service) handleOrderPending(ctx context.Context, event *models.WebhookEvent) {
	_, orderID, ok := s.orderFromEvent(event)
	if !ok {
		return
	}

	// The local order is already pending; nothing to apply.
	s.logger.Info("WEBHOOK", fmt.Sprintf("Order %s is pending payment", orderID))
	s.journal(ctx, event, orderID, "noop")
}

func (s *Service) handleOrderFailed(ctx context.Context, event *models.WebhookEvent) {
	paymentOrder, orderID, ok := s.orderFromEvent(event)
	if !ok {
		return
	}

	if err := s.Ticketing.UpdateOrder(ctx, orderID, models.OrderUpdate{
		Status: models.OrderCancelled,
	}); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to cancel order %s: %v", orderID, err))
	}

	if err := s.Ticketing.ReleaseInventory(ctx, orderID); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to release inventory for %s: %v", orderID, err))
	}

	s.removePending(ctx, orderID)
	s.journal(ctx, event, orderID, "cancelled")
	s.updateAttempt(ctx, orderID, store.AttemptCancelled)

	if s.Events != nil {
		if err := s.Events.PublishPaymentFailed(models.PaymentEvent{
			Type:           "payment_failed",
			OrderID:        orderID,
			OrderNumber:    paymentOrder.Metadata[models.MetadataOrderNumber],
			ConektaOrderID: paymentOrder.ID,
			Status:         paymentOrder.PaymentStatus,
			Timestamp:      time.Now(),
		}); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish payment failure for %s: %v", orderID, err))
		}
	}

	s.logger.LogWebhook(event.Type, event.ID, fmt.Sprintf("order %s cancelled, inventory released", orderID))
}

func (s *Service) handleOrderRefunded(ctx context.Context, event *models.WebhookEvent) {
	paymentOrder, orderID, ok := s.orderFromEvent(event)
	if !ok {
		return
	}

	if err := s.Ticketing.UpdateOrder(ctx, orderID, models.OrderUpdate{
		Status: models.OrderRefunded,
	}); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to mark order %s refunded: %v", orderID, err))
	}

	if err := s.Ticketing.CancelTickets(ctx, orderID); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to cancel tickets for %s: %v", orderID, err))
	}

	s.journal(ctx, event, orderID, "refunded")
	s.updateAttempt(ctx, orderID, store.AttemptRefunded)

	if s.Events != nil {
		if err := s.Events.PublishPaymentRefunded(models.PaymentEvent{
			Type:           "payment_refunded",
			OrderID:        orderID,
			OrderNumber:    paymentOrder.Metadata[models.MetadataOrderNumber],
			ConektaOrderID: paymentOrder.ID,
			Status:         paymentOrder.PaymentStatus,
			Timestamp:      time.Now(),
		}); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish refund for %s: %v", orderID, err))
		}
	}

	s.logger.LogWebhook(event.Type, event.ID, fmt.Sprintf("order %s refunded, tickets cancelled", orderID))
}

// orderFromEvent decodes the embedded processor order and extracts the
// local order id from its metadata. Events without the cross-reference
// are logged and dropped - the processor's record remains queryable.
func (s *Service) orderFromEvent(event *models.WebhookEvent) (*models.PaymentOrder, string, bool) {
	var paymentOrder models.PaymentOrder
	if err := json.Unmarshal(event.Data.Object, &paymentOrder); err != nil {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Failed to decode order from event %s: %v", event.ID, err))
		return nil, "", false
	}

	orderID := paymentOrder.Metadata[models.MetadataOrderID]
	if orderID == "" {
		s.logger.Error("WEBHOOK", fmt.Sprintf("Event %s has no %s in metadata", event.ID, models.MetadataOrderID))
		return nil, "", false
	}

	return &paymentOrder, orderID, true
}

func derivePaymentMethod(order *models.PaymentOrder) string {
	if len(order.Charges.Data) == 0 {
		return "card"
	}

	pm := order.Charges.Data[0].PaymentMethod
	if pm.Brand != "" && pm.Last4 != "" {
		return fmt.Sprintf("%s **** %s", pm.Brand, pm.Last4)
	}
	if pm.Type != "" {
		return pm.Type
	}
	return "card"
}

func (s *Service) removePending(ctx context.Context, orderID string) {
	if s.Pending == nil {
		return
	}
	if err := s.Pending.RemoveByOrderID(ctx, orderID); err != nil {
		s.logger.Warn("WEBHOOK", fmt.Sprintf("Failed to untrack pending order %s: %v", orderID, err))
	}
}

func (s *Service) journal(ctx context.Context, event *models.WebhookEvent, orderID, outcome string) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.SaveWebhook(ctx, &store.WebhookRecord{
		EventID:    event.ID,
		Type:       event.Type,
		OrderID:    orderID,
		Outcome:    outcome,
		ReceivedAt: time.Now(),
	}); err != nil {
		s.logger.Error("STORE", fmt.Sprintf("Failed to journal webhook %s: %v", event.ID, err))
	}
}

func (s *Service) updateAttempt(ctx context.Context, orderID, status string) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.UpdateAttemptStatus(ctx, orderID, status); err != nil {
		s.logger.Error("STORE", fmt.Sprintf("Failed to update attempt status for %s: %v", orderID, err))
	}
}
