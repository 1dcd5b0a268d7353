package models

import "time"

// OrderStatus is the ticketing backend's order lifecycle state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Order mirrors the tickets-svc order resource. It is owned by the
// ticketing backend; this service only creates and patches it.
type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	Email           string      `json:"email"`
	EventID         string      `json:"event_id"`
	OrganizationID  string      `json:"organization_id"`
	Items           []OrderItem `json:"items"`
	Status          OrderStatus `json:"status"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type OrderItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// CreateOrderInput is the body for POST /orders on tickets-svc. The
// backend assigns the id and order_number and starts the order pending.
type CreateOrderInput struct {
	Email          string      `json:"email"`
	EventID        string      `json:"event_id"`
	OrganizationID string      `json:"organization_id"`
	Items          []OrderItem `json:"items"`
}

// OrderUpdate is a partial update for PUT /orders/{id}. Nil fields are
// omitted so the backend only touches what the caller set.
type OrderUpdate struct {
	Status          OrderStatus `json:"status,omitempty"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
}

// CheckoutRequest is the inbound body for POST /api/payments/create-order.
type CheckoutRequest struct {
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Phone          string         `json:"phone,omitempty"`
	EventID        string         `json:"event_id"`
	OrganizationID string         `json:"organization_id"`
	Items          []CheckoutItem `json:"items"`
}

type CheckoutItem struct {
	TicketTypeID   string  `json:"ticket_type_id"`
	TicketTypeName string  `json:"ticket_type_name"`
	Quantity       int     `json:"quantity"`
	Price          float64 `json:"price"`
}

// CheckoutResponse carries the hosted checkout URL back to the client.
type CheckoutResponse struct {
	OrderID        string  `json:"order_id"`
	OrderNumber    string  `json:"order_number"`
	CheckoutURL    string  `json:"checkout_url"`
	ConektaOrderID string  `json:"conekta_order_id"`
	Total          float64 `json:"total"`
}
