package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-payments/internal/conekta"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/orchestrator"
)

// CheckoutService runs the checkout-creation saga.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
}

// WebhookService applies verified processor events.
type WebhookService interface {
	HandleEvent(ctx context.Context, event *models.WebhookEvent)
}

// GatewayReader exposes the processor reads and terminal mutations the
// API proxies through.
type GatewayReader interface {
	GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	RefundOrder(ctx context.Context, orderID, reason string) (*models.PaymentOrder, error)
}

type Handler struct {
	Checkout      CheckoutService
	Webhooks      WebhookService
	Gateway       GatewayReader
	WebhookSecret string
	Logger        *logger.Logger
}

func NewHandler(checkout CheckoutService, webhooks WebhookService, gateway GatewayReader, webhookSecret string, log *logger.Logger) *Handler {
	return &Handler{
		Checkout:      checkout,
		Webhooks:      webhooks,
		Gateway:       gateway,
		WebhookSecret: webhookSecret,
		Logger:        log,
	}
}

// Routes mounts the payment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/payments/create-order", h.CreatePaymentOrder)
	r.Post("/api/payments/webhook", h.Webhook)
	r.Get("/api/payments/orders/{orderId}", h.GetPaymentOrder)
	r.Post("/api/payments/orders/{orderId}/refund", h.RefundPaymentOrder)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// CreatePaymentOrder handles POST /api/payments/create-order.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreatePaymentOrder: received request")

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePaymentOrder: failed to decode request body: %v", err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.Checkout.CreateCheckout(r.Context(), req)
	if err != nil {
		// The client sees only a generic message; the cause is in the logs.
		var validationErr *orchestrator.ValidationError
		var creationErr *orchestrator.OrderCreationError
		var paymentErr *orchestrator.PaymentInitError

		switch {
		case errors.As(err, &validationErr):
			h.Logger.Warn("API", fmt.Sprintf("CreatePaymentOrder: %v", validationErr))
			writeError(w, http.StatusBadRequest, validationErr.Reason)
		case errors.As(err, &creationErr):
			h.Logger.Error("API", fmt.Sprintf("CreatePaymentOrder: %v", creationErr))
			writeError(w, http.StatusBadGateway, "Failed to create order")
		case errors.As(err, &paymentErr):
			h.Logger.Error("API", fmt.Sprintf("CreatePaymentOrder: %v", paymentErr))
			writeError(w, http.StatusBadGateway, "Payment initialization failed")
		default:
			h.Logger.Error("API", fmt.Sprintf("CreatePaymentOrder: unexpected error: %v", err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreatePaymentOrder: checkout ready for order %s", response.OrderID))
	writeJSON(w, http.StatusOK, response)
}

// Webhook handles POST /api/payments/webhook. It acknowledges every
// delivery that authenticates and parses; downstream outcomes never leak
// back as errors, which would only trigger processor retry storms.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Webhook: failed to read body: %v", err))
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	signature := r.Header.Get("Digest")
	if err := conekta.VerifySignature(body, signature, h.WebhookSecret); err != nil {
		h.Logger.LogSecurity("WEBHOOK_REJECTED", err.Error())
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event, err := conekta.ParseEvent(body)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Webhook: %v", err))
		writeError(w, http.StatusBadRequest, "Invalid event format")
		return
	}

	h.Webhooks.HandleEvent(r.Context(), event)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// GetPaymentOrder handles GET /api/payments/orders/{orderId}, proxying a
// read of the processor order so clients can poll payment state.
func (h *Handler) GetPaymentOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	order, err := h.Gateway.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeGatewayError(w, "GetPaymentOrder", orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// RefundPaymentOrder handles POST /api/payments/orders/{orderId}/refund.
func (h *Handler) RefundPaymentOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	order, err := h.Gateway.RefundOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		h.writeGatewayError(w, "RefundPaymentOrder", orderID, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("RefundPaymentOrder: refund issued for %s", orderID))
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeGatewayError(w http.ResponseWriter, op, orderID string, err error) {
	var gwErr *conekta.GatewayError
	if errors.As(err, &gwErr) && gwErr.IsNotFound() {
		h.Logger.Warn("API", fmt.Sprintf("%s: order %s not found", op, orderID))
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	h.Logger.Error("API", fmt.Sprintf("%s: gateway error for %s: %v", op, orderID, err))
	writeError(w, http.StatusBadGateway, "Payment processor error")
}
