package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// CookieName is the session cookie holding the signed token.
const CookieName = "gitporter_session"

// Middleware guards HTTP handlers with session token validation.
type Middleware struct {
	jwtManager *JWTManager
	logger     *slog.Logger
}

func NewMiddleware(jwtManager *JWTManager, logger *slog.Logger) *Middleware {
	return &Middleware{jwtManager: jwtManager, logger: logger}
}

type authContextKey string

const (
	contextKeyUserID    authContextKey = "auth_user_id"
	contextKeyUsername  authContextKey = "auth_username"
	contextKeySessionID authContextKey = "auth_session_id"
)

// RequireAuth rejects requests without a valid session cookie and stores the
// identity in the request context for downstream handlers.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			m.logger.Debug("no session cookie", "path", r.URL.Path)
			m.respondUnauthorized(w, "authentication required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(cookie.Value)
		if err != nil {
			m.logger.Warn("invalid session token", "error", err, "path", r.URL.Path)
			m.respondUnauthorized(w, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, contextKeyUsername, claims.Username)
		ctx = context.WithValue(ctx, contextKeySessionID, claims.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		m.logger.Error("failed to encode unauthorized response", "error", err)
	}
}

// UserIDFromContext retrieves the authenticated user ID from request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKeyUserID).(int64)
	return id, ok
}

// UsernameFromContext retrieves the authenticated username from request context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKeyUsername).(string)
	return username, ok
}

// SessionIDFromContext retrieves the session ID from request context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeySessionID).(string)
	return id, ok
}
