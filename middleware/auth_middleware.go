package middleware

import (
	"net/http"
	"strings"

	"github.com/Janghoon33/AI-Pick/auth"
	"github.com/Janghoon33/AI-Pick/utils"
	"go.uber.org/zap"
)

// SessionParser validates a session token and returns its session
type SessionParser interface {
	Parse(token string) (*auth.Session, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	sessions   SessionParser
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. cookieName is the session
// cookie consulted when no Authorization header is present.
func NewAuthMiddleware(sessions SessionParser, cookieName string, logger *zap.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "auth_token"
	}
	return &AuthMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAuth is a middleware that requires a valid session token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := m.extractToken(r)
		if token == "" {
			m.logger.Debug("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		session, err := m.sessions.Parse(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithUser(ctx, session.UserID)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", session.UserID.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the Authorization header first, then the session cookie
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
