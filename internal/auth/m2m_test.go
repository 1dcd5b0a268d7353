package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-payments/internal/config"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
)

func newTestCache(t *testing.T) *RedisTokenCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenCache(client)
}

func TestTokenUnconfiguredURLYieldsEmptyToken(t *testing.T) {
	source := NewSource(config.AuthConfig{}, http.DefaultClient, nil, logger.NewLogger())

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenFetchesAndCaches(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "payments-svc", r.Form.Get("client_id"))

		_ = json.NewEncoder(w).Encode(models.M2MTokenResponse{
			AccessToken: "opaque-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	}))
	defer server.Close()

	source := NewSource(config.AuthConfig{
		TokenURL:     server.URL,
		ClientID:     "payments-svc",
		ClientSecret: "secret",
	}, server.Client(), newTestCache(t), logger.NewLogger())

	ctx := context.Background()

	token, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)

	// A second call is served from the cache.
	token, err = source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)
	assert.Equal(t, 1, fetches)
}

func TestTokenFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	source := NewSource(config.AuthConfig{
		TokenURL: server.URL,
		ClientID: "payments-svc",
	}, server.Client(), nil, logger.NewLogger())

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m2m token")
}

func TestTokenCacheExpiryBuffer(t *testing.T) {
	tc := &TokenCache{Token: "tok", ExpiresAt: time.Now().Add(2 * time.Minute)}
	assert.True(t, tc.IsValid())

	// Inside the 60s refresh buffer counts as expired.
	tc.ExpiresAt = time.Now().Add(30 * time.Second)
	assert.False(t, tc.IsValid())

	tc.Token = ""
	assert.False(t, tc.IsValid())

	var nilCache *TokenCache
	assert.False(t, nilCache.IsValid())
}

func TestRedisTokenCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	got, err := cache.GetToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetToken(ctx, "tok", 3600))

	got, err = cache.GetToken(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)
}

func TestRedisTokenCacheIgnoresShortLivedToken(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	// A token expiring inside the buffer is never served.
	require.NoError(t, cache.SetToken(ctx, "tok", 10))

	got, err := cache.GetToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
