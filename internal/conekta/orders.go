package conekta

import (
	"context"
	"fmt"
	"net/http"

	"ms-payments/internal/models"
)

// CreateOrder opens a new order on the processor. This starts a real
// monetary authorization attempt upstream, so callers must not retry it
// blindly on failure.
func (c *Client) CreateOrder(ctx context.Context, req models.CreatePaymentOrderRequest) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	c.logger.LogGateway("CREATE_ORDER", order.ID, fmt.Sprintf("amount=%d %s", order.Amount, order.Currency))
	return &order, nil
}

// GetOrder fetches an order by its processor id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateCheckout opens a hosted checkout session for an existing order.
func (c *Client) CreateCheckout(ctx context.Context, orderID string, req models.CreateCheckoutRequest) (*models.CheckoutSession, error) {
	var checkout models.CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/checkout", req, &checkout); err != nil {
		return nil, err
	}
	c.logger.LogGateway("CREATE_CHECKOUT", orderID, fmt.Sprintf("session=%s status=%s", checkout.ID, checkout.Status))
	return &checkout, nil
}

// RefundOrder issues a full refund. Idempotent on the processor side.
func (c *Client) RefundOrder(ctx context.Context, orderID, reason string) (*models.PaymentOrder, error) {
	if reason == "" {
		reason = "requested_by_customer"
	}
	var order models.PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/refunds", models.RefundOrderRequest{Reason: reason}, &order); err != nil {
		return nil, err
	}
	c.logger.LogGateway("REFUND_ORDER", orderID, fmt.Sprintf("payment_status=%s", order.PaymentStatus))
	return &order, nil
}

// CancelOrder cancels an order that has not been paid yet.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/cancel", struct{}{}, &order); err != nil {
		return nil, err
	}
	c.logger.LogGateway("CANCEL_ORDER", orderID, fmt.Sprintf("payment_status=%s", order.PaymentStatus))
	return &order, nil
}
