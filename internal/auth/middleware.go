package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-payments/internal/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// OptionalIdentity verifies a bearer token when one is present and
// attaches the subject to the request context. Checkout stays open to
// guests, so requests without a token (or with a bad one) pass through
// anonymously.
func OptionalIdentity(issuer string, log *logger.Logger) (func(http.Handler) http.Handler, error) {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("Bearer token failed verification: %v", err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, token.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// UserID returns the authenticated subject, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
