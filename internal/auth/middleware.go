package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"admissions-service/common/httputil"
)

var ErrMissingToken = errors.New("access token required")

type contextKey string

const claimsKey contextKey = "auth_claims"

// ClaimsFromContext returns the claims attached by RequireAuth or OptionalAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				logger.WarnContext(r.Context(), "no bearer token", "path", r.URL.Path)
				httputil.RespondWithError(w, http.StatusUnauthorized, "access token required")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid token", "path", r.URL.Path, "error", err)
				httputil.RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must be mounted after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				httputil.RespondWithError(w, http.StatusUnauthorized, "access token required")
				return
			}
			if !claims.IsAdmin() {
				logger.WarnContext(r.Context(), "admin access denied",
					"user_id", claims.UserID,
					"role", claims.Role,
					"path", r.URL.Path,
				)
				httputil.RespondWithError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise passes the request through untouched.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, err := bearerToken(r); err == nil {
				if claims, err := tokens.Verify(raw); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
