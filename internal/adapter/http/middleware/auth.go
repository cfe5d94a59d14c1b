package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/auth"
	"github.com/iho/cashledger/internal/infrastructure/logger"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware creates an authentication middleware. The verified user is
// stored with domain.ContextWithUser and added to the request logger.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "expected a Bearer token")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, domain.ErrExpiredToken) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "token has expired")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			user := claims.User()
			ctx := domain.ContextWithUser(r.Context(), user)
			ctx = logger.WithRequest(ctx, *logger.FromContext(ctx), "", user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := domain.UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "")
				return
			}

			if !slices.Contains(roles, user.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+string(user.Role)+" may not use this endpoint")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
