package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-payments/internal/conekta"
	"ms-payments/internal/config"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/store"
)

// TicketingAPI is the slice of the tickets-svc client the saga needs.
type TicketingAPI interface {
	CreateOrder(ctx context.Context, input models.CreateOrderInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID string, update models.OrderUpdate) error
	ReleaseInventory(ctx context.Context, orderID string) error
}

// PaymentGateway is the slice of the processor client the saga needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req models.CreatePaymentOrderRequest) (*models.PaymentOrder, error)
	CreateCheckout(ctx context.Context, orderID string, req models.CreateCheckoutRequest) (*models.CheckoutSession, error)
	GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	CancelOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error)
}

// EventPublisher streams payment lifecycle events to Kafka.
type EventPublisher interface {
	PublishCheckoutInitiated(event models.PaymentEvent) error
}

// PendingTracker remembers orders whose payment has not settled, for the
// expiry sweeper.
type PendingTracker interface {
	Track(ctx context.Context, orderID, conektaOrderID string, deadline time.Time) error
	Due(ctx context.Context, now time.Time, limit int) ([]PendingEntry, error)
	Remove(ctx context.Context, orderID, conektaOrderID string) error
}

// Service drives the checkout-creation saga: local order, processor
// order, checkout session, payment-reference link. Steps two through
// four are fatal; the final link is not, because the webhook path can
// recover it from the processor order's metadata.
type Service struct {
	Ticketing TicketingAPI
	Gateway   PaymentGateway
	Events    EventPublisher
	Pending   PendingTracker
	Journal   store.Store
	cfg       config.AppConfig
	logger    *logger.Logger
}

func NewService(ticketing TicketingAPI, gateway PaymentGateway, events EventPublisher, pending PendingTracker, journal store.Store, cfg config.AppConfig, log *logger.Logger) *Service {
	return &Service{
		Ticketing: ticketing,
		Gateway:   gateway,
		Events:    events,
		Pending:   pending,
		Journal:   journal,
		cfg:       cfg,
		logger:    log,
	}
}

// CreateCheckout runs one checkout attempt end to end and returns the
// hosted checkout URL.
func (s *Service) CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	// Step 1: validate before touching either backend.
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	total := requestTotal(req.Items)

	// Step 2: create the local order in pending status. Failure here
	// aborts the saga with nothing to compensate.
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
		})
	}

	order, err := s.Ticketing.CreateOrder(ctx, models.CreateOrderInput{
		Email:          req.Email,
		EventID:        req.EventID,
		OrganizationID: req.OrganizationID,
		Items:          items,
	})
	if err != nil {
		s.logger.Error("SAGA", fmt.Sprintf("Failed to create ticketing order: %v", err))
		return nil, &OrderCreationError{Err: err}
	}
	s.logger.LogSaga("LOCAL_ORDER", order.ID, fmt.Sprintf("created pending order %s", order.OrderNumber))

	// Step 3: create the processor order. The metadata cross-reference is
	// what lets webhooks find the local order even if the later link step
	// never lands.
	lineItems := make([]models.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, models.LineItem{
			Name:      item.TicketTypeName,
			UnitPrice: conekta.ToMinorUnits(item.Price),
			Quantity:  item.Quantity,
			Metadata:  map[string]string{"ticket_type_id": item.TicketTypeID},
		})
	}

	var cardCharge models.ChargeRequest
	cardCharge.PaymentMethod.Type = "card"

	paymentOrder, err := s.Gateway.CreateOrder(ctx, models.CreatePaymentOrderRequest{
		Currency: s.cfg.Currency,
		CustomerInfo: models.CustomerInfo{
			Name:  customerName(req),
			Email: req.Email,
			Phone: req.Phone,
		},
		LineItems: lineItems,
		Charges:   []models.ChargeRequest{cardCharge},
		Metadata: map[string]string{
			models.MetadataOrderID:     order.ID,
			models.MetadataOrderNumber: order.OrderNumber,
			"event_id":                 req.EventID,
			"organization_id":          req.OrganizationID,
		},
	})
	if err != nil {
		s.logger.Error("SAGA", fmt.Sprintf("Failed to create processor order for %s: %v", order.ID, err))
		s.recordAttempt(order, "", "", total, store.AttemptFailed, req)
		return nil, &PaymentInitError{Step: "create_order", Err: err}
	}
	s.logger.LogSaga("REMOTE_ORDER", order.ID, fmt.Sprintf("processor order %s", paymentOrder.ID))

	// The processor recomputes the total from minor-unit line items; a
	// disagreement beyond one cent means a rounding bug somewhere.
	if math.Abs(conekta.ToMajorUnits(paymentOrder.Amount)-total) > 0.01 {
		s.logger.Warn("SAGA", fmt.Sprintf(
			"Total mismatch for order %s: requested %.2f, processor computed %.2f",
			order.ID, total, conekta.ToMajorUnits(paymentOrder.Amount)))
	}

	// Step 4: open the hosted checkout session.
	checkout, err := s.Gateway.CreateCheckout(ctx, paymentOrder.ID, models.CreateCheckoutRequest{
		AllowedPaymentMethods:      []string{"card"},
		SuccessURL:                 fmt.Sprintf("%s/checkout/success?order=%s", s.cfg.BaseURL, order.OrderNumber),
		FailureURL:                 fmt.Sprintf("%s/checkout/failure?order=%s", s.cfg.BaseURL, order.OrderNumber),
		MonthlyInstallmentsEnabled: len(s.cfg.InstallmentPlans) > 0,
		MonthlyInstallmentsOptions: s.cfg.InstallmentPlans,
	})
	if err != nil {
		s.logger.Error("SAGA", fmt.Sprintf("Failed to create checkout session for %s: %v", order.ID, err))
		s.recordAttempt(order, paymentOrder.ID, "", total, store.AttemptFailed, req)
		return nil, &PaymentInitError{Step: "create_checkout", Err: err}
	}
	s.logger.LogSaga("CHECKOUT", order.ID, fmt.Sprintf("session %s", checkout.ID))

	// Step 5: link the payment reference back onto the local order.
	// Non-fatal - the webhook reconciler recovers the link from metadata.
	if err := s.Ticketing.UpdateOrder(ctx, order.ID, models.OrderUpdate{
		PaymentIntentID: paymentOrder.ID,
	}); err != nil {
		s.logger.Warn("SAGA", fmt.Sprintf("Failed to link payment reference on order %s: %v", order.ID, err))
	}

	s.recordAttempt(order, paymentOrder.ID, checkout.URL, total, store.AttemptSucceeded, req)

	if s.Pending != nil {
		deadline := time.Now().Add(s.cfg.PendingOrderTTL)
		if err := s.Pending.Track(ctx, order.ID, paymentOrder.ID, deadline); err != nil {
			s.logger.Warn("SAGA", fmt.Sprintf("Failed to track pending order %s: %v", order.ID, err))
		}
	}

	if s.Events != nil {
		if err := s.Events.PublishCheckoutInitiated(models.PaymentEvent{
			Type:           "checkout_initiated",
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			ConektaOrderID: paymentOrder.ID,
			Status:         models.PaymentPending,
			Timestamp:      time.Now(),
		}); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish checkout event for %s: %v", order.ID, err))
		}
	}

	s.logger.LogSaga("DONE", order.ID, fmt.Sprintf("checkout ready, total %.2f %s", total, s.cfg.Currency))

	return &models.CheckoutResponse{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CheckoutURL:    checkout.URL,
		ConektaOrderID: paymentOrder.ID,
		Total:          total,
	}, nil
}

func (s *Service) recordAttempt(order *models.Order, conektaOrderID, checkoutURL string, total float64, status string, req models.CheckoutRequest) {
	if s.Journal == nil {
		return
	}

	attempt := &store.PaymentAttempt{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		ConektaOrderID: conektaOrderID,
		Email:          req.Email,
		EventID:        req.EventID,
		OrganizationID: req.OrganizationID,
		Total:          total,
		Status:         status,
		CheckoutURL:    checkoutURL,
		CreatedAt:      time.Now(),
	}

	// Journal writes never fail a request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Journal.SaveAttempt(ctx, attempt); err != nil {
		s.logger.Error("STORE", fmt.Sprintf("Failed to journal attempt for order %s: %v", order.ID, err))
	}
}

func validateRequest(req models.CheckoutRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return &ValidationError{Reason: "email is required"}
	}
	if req.EventID == "" {
		return &ValidationError{Reason: "event_id is required"}
	}
	if req.OrganizationID == "" {
		return &ValidationError{Reason: "organization_id is required"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Reason: "at least one item is required"}
	}
	for i, item := range req.Items {
		if item.TicketTypeID == "" {
			return &ValidationError{Reason: fmt.Sprintf("items[%d].ticket_type_id is required", i)}
		}
		if item.Quantity < 1 {
			return &ValidationError{Reason: fmt.Sprintf("items[%d].quantity must be at least 1", i)}
		}
		if item.Price < 0 {
			return &ValidationError{Reason: fmt.Sprintf("items[%d].price cannot be negative", i)}
		}
	}
	return nil
}

// requestTotal is computed from caller-supplied major-unit prices, not
// re-derived from the gateway response.
func requestTotal(items []models.CheckoutItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func customerName(req models.CheckoutRequest) string {
	if req.Name != "" {
		return req.Name
	}
	// Fall back to the mailbox part of the email address.
	name, _, _ := strings.Cut(req.Email, "@")
	return name
}
