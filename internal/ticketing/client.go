package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
)

// TokenSource supplies bearer tokens for calls into tickets-svc.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// APIError wraps a non-2xx response from tickets-svc.
type APIError struct {
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tickets-svc returned %d: %s", e.Status, e.Body)
}

// Client is the typed boundary to the ticketing backend. All order state
// lives there; this service only issues creates, patches and effect
// triggers.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  log,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get m2m token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tickets-svc request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("TICKETING", fmt.Sprintf("Failed to close response body: %v", cerr))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read tickets-svc response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &errBody)

		c.logger.Error("TICKETING", fmt.Sprintf("%s %s returned %d", method, endpoint, resp.StatusCode))
		return &APIError{
			Status: resp.StatusCode,
			Code:   errBody.Code,
			Body:   string(raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode tickets-svc response: %w", err)
		}
	}

	return nil
}

// CreateOrder creates a new order in pending status.
func (c *Client) CreateOrder(ctx context.Context, input models.CreateOrderInput) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", input, &order); err != nil {
		return nil, err
	}
	c.logger.Info("TICKETING", fmt.Sprintf("Created order %s (%s)", order.ID, order.OrderNumber))
	return &order, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder patches status, payment reference or payment details.
func (c *Client) UpdateOrder(ctx context.Context, orderID string, update models.OrderUpdate) error {
	return c.do(ctx, http.MethodPut, "/orders/"+orderID, update, nil)
}

// GenerateTickets asks the backend to issue tickets for a paid order.
// The backend dedupes re-issues, so re-delivered webhooks are safe.
func (c *Client) GenerateTickets(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/generate-tickets", struct{}{}, nil)
}

// ReleaseInventory returns reserved inventory for a cancelled order.
func (c *Client) ReleaseInventory(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/release-inventory", struct{}{}, nil)
}

// CancelTickets voids already-issued tickets for a refunded order.
func (c *Client) CancelTickets(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/cancel-tickets", struct{}{}, nil)
}
