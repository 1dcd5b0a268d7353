package models

import "encoding/json"

// PaymentStatus is the processor's order payment state.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending_payment"
	PaymentPaid              PaymentStatus = "paid"
	PaymentDeclined          PaymentStatus = "declined"
	PaymentExpired           PaymentStatus = "expired"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// CustomerInfo identifies the paying customer on the processor side.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// LineItem prices are in minor currency units (integer cents).
type LineItem struct {
	Name      string            `json:"name"`
	UnitPrice int64             `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type PaymentMethod struct {
	Type     string `json:"type"`
	Object   string `json:"object,omitempty"`
	Name     string `json:"name,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last4,omitempty"`
	ExpMonth string `json:"exp_month,omitempty"`
	ExpYear  string `json:"exp_year,omitempty"`
}

type Charge struct {
	ID             string        `json:"id"`
	Object         string        `json:"object"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	OrderID        string        `json:"order_id"`
	Status         string        `json:"status"`
	FailureCode    string        `json:"failure_code,omitempty"`
	FailureMessage string        `json:"failure_message,omitempty"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	CreatedAt      int64         `json:"created_at"`
}

type ChargeList struct {
	Object string   `json:"object"`
	Data   []Charge `json:"data"`
}

// PaymentOrder is the processor's order record. The metadata map carries
// the ticketing order's id and number, which is how webhook deliveries
// find their way back to the local order.
type PaymentOrder struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerInfo  CustomerInfo      `json:"customer_info"`
	Charges       ChargeList        `json:"charges"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     int64             `json:"created_at"`
	UpdatedAt     int64             `json:"updated_at"`
}

type ChargeRequest struct {
	PaymentMethod struct {
		Type      string `json:"type"`
		TokenID   string `json:"token_id,omitempty"`
		ExpiresAt int64  `json:"expires_at,omitempty"`
	} `json:"payment_method"`
}

// CreatePaymentOrderRequest is the body for POST /orders on the processor.
type CreatePaymentOrderRequest struct {
	Currency     string            `json:"currency"`
	CustomerInfo CustomerInfo      `json:"customer_info"`
	LineItems    []LineItem        `json:"line_items"`
	Charges      []ChargeRequest   `json:"charges"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CreateCheckoutRequest opens a hosted checkout page for an existing
// processor order.
type CreateCheckoutRequest struct {
	AllowedPaymentMethods      []string `json:"allowed_payment_methods"`
	SuccessURL                 string   `json:"success_url"`
	FailureURL                 string   `json:"failure_url"`
	ExpiresAt                  int64    `json:"expires_at,omitempty"`
	MonthlyInstallmentsEnabled bool     `json:"monthly_installments_enabled,omitempty"`
	MonthlyInstallmentsOptions []int    `json:"monthly_installments_options,omitempty"`
}

type CheckoutSession struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expires_at"`
}

type RefundOrderRequest struct {
	Reason string `json:"reason"`
}

// WebhookEvent is the processor's event envelope. Data.Object is kept raw
// because its shape depends on the event type (order vs charge snapshot).
type WebhookEvent struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at"`
	Data      struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// MetadataOrderID is the metadata key linking a processor order back to
// the ticketing order that opened it.
const (
	MetadataOrderID     = "boletrics_order_id"
	MetadataOrderNumber = "boletrics_order_number"
)
