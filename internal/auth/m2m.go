package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ms-payments/internal/config"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
)

// Source issues machine-to-machine tokens for calls into tickets-svc,
// caching them in Redis until shortly before expiry.
type Source struct {
	cfg    config.AuthConfig
	http   *http.Client
	cache  *RedisTokenCache
	logger *logger.Logger
}

func NewSource(cfg config.AuthConfig, httpClient *http.Client, cache *RedisTokenCache, log *logger.Logger) *Source {
	return &Source{
		cfg:    cfg,
		http:   httpClient,
		cache:  cache,
		logger: log,
	}
}

// Token returns a valid access token, fetching a fresh one when the cache
// is empty or expired. An unconfigured token URL yields an empty token so
// local setups without an identity provider keep working.
func (s *Source) Token(ctx context.Context) (string, error) {
	if s.cfg.TokenURL == "" {
		return "", nil
	}

	if s.cache != nil {
		cached, err := s.cache.GetToken(ctx)
		if err != nil {
			s.logger.Warn("AUTH", fmt.Sprintf("Token cache read failed: %v", err))
		} else if cached != nil {
			return cached.Token, nil
		}
	}

	token, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.SetToken(ctx, token, expiresIn); err != nil {
			s.logger.Warn("AUTH", fmt.Sprintf("Token cache write failed: %v", err))
		}
	}

	return token, nil
}

func (s *Source) fetch(ctx context.Context) (string, int, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", s.cfg.ClientID)
	data.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Error("AUTH", fmt.Sprintf("Failed to close token response body: %v", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("AUTH", fmt.Sprintf("Token endpoint returned %d: %s", resp.StatusCode, string(body)))
		return "", 0, fmt.Errorf("failed to get m2m token, status: %s", resp.Status)
	}

	var tokenResp models.M2MTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}

	expiresIn := tokenResp.ExpiresIn
	if exp := tokenExpirySeconds(tokenResp.AccessToken); exp > 0 {
		expiresIn = exp
	}

	s.logger.Info("AUTH", fmt.Sprintf("Fetched m2m token for client %s (expires in %ds)", s.cfg.ClientID, expiresIn))
	return tokenResp.AccessToken, expiresIn, nil
}

// tokenExpirySeconds reads the exp claim without verifying the token.
// The identity provider already signed it; we only need the lifetime for
// cache TTL purposes.
func tokenExpirySeconds(token string) int {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return int(time.Until(exp.Time).Seconds())
}
