package conekta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"ms-payments/internal/models"
)

// SignatureError means the webhook request could not be authenticated.
// Handlers map it to 401.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "webhook signature rejected: " + e.Reason
}

// MalformedEventError means the webhook body fails shape validation.
// Handlers map it to 400.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return "malformed webhook event: " + e.Reason
}

// VerifySignature authenticates a webhook delivery against the shared
// webhook secret. The Digest header carries "t=<unix>,v1=<hex>"; the
// expected signature is HMAC-SHA256 over "<timestamp>.<payload>".
// An empty secret disables verification entirely - the caller decides
// whether that is acceptable for its environment.
func VerifySignature(payload []byte, signatureHeader, secret string) error {
	if secret == "" {
		return nil
	}

	if signatureHeader == "" {
		return &SignatureError{Reason: "missing signature header"}
	}

	var timestamp, signature string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}

	if timestamp == "" || signature == "" {
		return &SignatureError{Reason: "signature header missing t or v1"}
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return &SignatureError{Reason: "signature is not valid hex"}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return &SignatureError{Reason: "signature mismatch"}
	}

	return nil
}

// SignPayload computes the signature header value for a payload. Used by
// tests and by local webhook replays.
func SignPayload(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent decodes the event envelope and checks that the required
// fields are present. Unknown event types pass through untouched; the
// reconciler classifies them.
func ParseEvent(body []byte) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, &MalformedEventError{Reason: err.Error()}
	}

	if event.ID == "" {
		return nil, &MalformedEventError{Reason: "missing event id"}
	}
	if event.Type == "" {
		return nil, &MalformedEventError{Reason: "missing event type"}
	}
	if len(event.Data.Object) == 0 || string(event.Data.Object) == "null" {
		return nil, &MalformedEventError{Reason: "missing data.object"}
	}

	return &event, nil
}
