// Package middleware provides HTTP middleware for the portal API.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/identity"
)

// =============================================================================
// Request User Context
// =============================================================================

type contextKey string

const userKey contextKey = "portal.user"

// WithUser stores the resolved user in the request context.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the resolved user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware resolves the bearer token to a user via the identity
// provider and stores it in the request context. Requests without a token
// pass through anonymous; protected routes reject them via RequireAuth.
type AuthMiddleware struct {
	provider identity.Provider
	logger   *slog.Logger
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(provider identity.Provider, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{provider: provider, logger: logger}
}

// Handler returns the middleware handler function.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.provider.GetUser(r.Context(), token)
		if err != nil {
			m.logger.Warn("token rejected",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			WriteJSONError(w, http.StatusUnauthorized, "auth", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// =============================================================================
// Require Auth / Require Admin
// =============================================================================

// RequireAuth rejects anonymous requests. Must be used after AuthMiddleware.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFrom(r.Context()) == nil {
				logger.Warn("unauthenticated request to protected endpoint",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteJSONError(w, http.StatusUnauthorized, "auth", "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests whose user lacks the admin flag. Must be used
// after AuthMiddleware.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user == nil {
				WriteJSONError(w, http.StatusUnauthorized, "auth", "Authentication required")
				return
			}
			if !user.IsAdmin {
				logger.Warn("non-admin request to admin endpoint",
					"user", user.Email,
					"path", r.URL.Path,
				)
				WriteJSONError(w, http.StatusForbidden, "forbidden", "Admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Helpers
// =============================================================================

// extractBearerToken pulls the token from the Authorization header. A bare
// token without the Bearer prefix is accepted too.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return header
}

// WriteJSONError writes the portal error envelope.
func WriteJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"message": message,
	})
}
