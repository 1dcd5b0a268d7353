package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// m2mTokenKey is the Redis key the cached token lives under.
	m2mTokenKey = "payments:m2m_token"
	// tokenExpiryBuffer refreshes the token this many seconds before it
	// actually expires.
	tokenExpiryBuffer = 60
)

// TokenCache is one cached token with its absolute expiry.
type TokenCache struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid reports whether the token is still usable with the refresh
// buffer applied.
func (tc *TokenCache) IsValid() bool {
	if tc == nil || tc.Token == "" {
		return false
	}
	return time.Now().Add(tokenExpiryBuffer * time.Second).Before(tc.ExpiresAt)
}

// RedisTokenCache stores the m2m token in Redis so restarts and replicas
// share one token instead of hammering the identity provider.
type RedisTokenCache struct {
	Client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{Client: client}
}

// GetToken returns the cached token, or nil when absent or expired.
func (c *RedisTokenCache) GetToken(ctx context.Context) (*TokenCache, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	tokenJSON, err := c.Client.Get(ctx, m2mTokenKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tokenCache TokenCache
	if err := json.Unmarshal([]byte(tokenJSON), &tokenCache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token cache: %w", err)
	}

	if !tokenCache.IsValid() {
		return nil, nil
	}

	return &tokenCache, nil
}

// SetToken stores a token with its remaining lifetime.
func (c *RedisTokenCache) SetToken(ctx context.Context, token string, expiresIn int) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	tokenCache := &TokenCache{
		Token:     token,
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}

	tokenJSON, err := json.Marshal(tokenCache)
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	// Redis TTL runs slightly past token expiry to cover clock skew.
	ttl := time.Duration(expiresIn+tokenExpiryBuffer) * time.Second
	if err := c.Client.Set(ctx, m2mTokenKey, tokenJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}

	return nil
}
