package models

import "time"

// PaymentEvent is the payload published to Kafka for payment lifecycle
// changes. Downstream consumers (notifications, analytics) key on OrderID.
type PaymentEvent struct {
	Type           string        `json:"type"`
	OrderID        string        `json:"order_id"`
	OrderNumber    string        `json:"order_number,omitempty"`
	ConektaOrderID string        `json:"conekta_order_id,omitempty"`
	Status         PaymentStatus `json:"status,omitempty"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}
