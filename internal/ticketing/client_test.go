package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, tokens TokenSource, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.Client(), tokens, logger.NewLogger())
}

func TestCreateOrderSendsBearerToken(t *testing.T) {
	var gotAuth string

	client := newTestClient(t, staticTokens{token: "m2m-token"}, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var input models.CreateOrderInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "buyer@example.com", input.Email)

		_ = json.NewEncoder(w).Encode(models.Order{
			ID:          "ord-1",
			OrderNumber: "BOL-0001",
			Status:      models.OrderPending,
		})
	})

	order, err := client.CreateOrder(context.Background(), models.CreateOrderInput{
		Email:   "buyer@example.com",
		EventID: "evt-1",
		Items:   []models.OrderItem{{TicketTypeID: "tt-1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "Bearer m2m-token", gotAuth)
}

func TestDoSkipsAuthHeaderWithoutToken(t *testing.T) {
	client := newTestClient(t, staticTokens{token: ""}, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.Order{ID: "ord-1"})
	})

	_, err := client.GetOrder(context.Background(), "ord-1")
	assert.NoError(t, err)
}

func TestDoFailsWhenTokenSourceFails(t *testing.T) {
	called := false
	client := newTestClient(t, staticTokens{err: errors.New("idp down")}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.GetOrder(context.Background(), "ord-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m2m token")
	assert.False(t, called)
}

func TestUpdateOrderUsesPut(t *testing.T) {
	client := newTestClient(t, staticTokens{token: "tok"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/orders/ord-1", r.URL.Path)

		var update models.OrderUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		assert.Equal(t, models.OrderPaid, update.Status)
		assert.Equal(t, "card **** 4242", update.PaymentMethod)

		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateOrder(context.Background(), "ord-1", models.OrderUpdate{
		Status:        models.OrderPaid,
		PaymentMethod: "card **** 4242",
	})
	assert.NoError(t, err)
}

func TestEffectEndpoints(t *testing.T) {
	var paths []string
	client := newTestClient(t, staticTokens{token: "tok"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	require.NoError(t, client.GenerateTickets(ctx, "ord-1"))
	require.NoError(t, client.ReleaseInventory(ctx, "ord-1"))
	require.NoError(t, client.CancelTickets(ctx, "ord-1"))

	assert.Equal(t, []string{
		"/orders/ord-1/generate-tickets",
		"/orders/ord-1/release-inventory",
		"/orders/ord-1/cancel-tickets",
	}, paths)
}

func TestDoReturnsAPIError(t *testing.T) {
	client := newTestClient(t, staticTokens{token: "tok"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"INSUFFICIENT_INVENTORY","error":"not enough tickets"}`))
	})

	_, err := client.CreateOrder(context.Background(), models.CreateOrderInput{Email: "a@b.c"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", apiErr.Code)
	assert.Contains(t, apiErr.Body, "not enough tickets")
}
