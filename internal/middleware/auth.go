// Package middleware provides HTTP middleware components.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bookloft/bookloft/internal/auth"
	"github.com/bookloft/bookloft/internal/model"
)

// SessionResolver looks up a session token.
// Implemented by *cache.Cache. A nil session with a nil error is a miss.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*model.Session, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Sessions SessionResolver
}

// Auth returns a middleware that authenticates requests.
// It extracts the bearer token from the Authorization header, resolves
// it against the session store and injects the caller's identity into
// the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			if err := auth.ValidateTokenFormat(token); err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_format"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			sess, err := cfg.Sessions.GetSession(r.Context(), token)
			if err != nil {
				cfg.Logger.Error("session store error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			if sess == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "unknown_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			identity := &auth.Identity{
				UserID: sess.UserID,
				Email:  sess.Email,
				Token:  token,
			}

			cfg.Logger.Info("authentication successful",
				slog.String("user_id", identity.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the session token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// writeAuthError writes a 401 response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"Not authenticated.","statusCode":401}`))
}
