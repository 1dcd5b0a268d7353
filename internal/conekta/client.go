package conekta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ms-payments/internal/logger"
)

const apiVersion = "2.1.0"

// GatewayError wraps a non-2xx response from the payment processor. Code
// carries the processor's machine-readable error type.
type GatewayError struct {
	Status  int
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("conekta: %s (code=%s, status=%d)", e.Message, e.Code, e.Status)
}

// IsNotFound reports whether the error is a 404-class gateway error.
func (e *GatewayError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details []struct {
		Message string `json:"message"`
	} `json:"details"`
}

// Client is a typed HTTP client for the processor's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  log,
	}
}

// do performs one authenticated request and decodes the response into out.
// Non-2xx responses are returned as *GatewayError.
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

	req.Header.Set("Accept", fmt.Sprintf("application/vnd.conekta-v%s+json", apiVersion))
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept-Language", "es")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("conekta request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("GATEWAY", fmt.Sprintf("Failed to close response body: %v", cerr))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read conekta response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)

		message := errResp.Message
		if len(errResp.Details) > 0 && errResp.Details[0].Message != "" {
			message = errResp.Details[0].Message
		}
		if message == "" {
			message = "Conekta API error"
		}

		c.logger.Error("GATEWAY", fmt.Sprintf("%s %s returned %d: %s", method, endpoint, resp.StatusCode, message))
		return &GatewayError{
			Status:  resp.StatusCode,
			Code:    errResp.Type,
			Message: message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode conekta response: %w", err)
		}
	}

	return nil
}
