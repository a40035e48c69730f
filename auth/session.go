// Package auth issues and verifies the application's own session tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/Janghoon33/AI-Pick/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Issuer is the iss claim on every session token
const Issuer = "ai-pick"

var (
	// ErrInvalidSession is returned when a token is malformed, forged or not ours
	ErrInvalidSession = errors.New("invalid session token")

	// ErrSessionExpired is returned when the token has expired
	ErrSessionExpired = errors.New("session expired")
)

// SessionClaims are the JWT claims of a session token
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Session is a verified session
type Session struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// Manager signs and verifies HS256 session tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a session manager. Without a configured secret a random
// one is generated, so sessions do not survive a restart.
func NewManager(cfg config.AuthConfig, logger *zap.Logger) (*Manager, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set; using an ephemeral session secret")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Manager{secret: secret, ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for the user
func (m *Manager) Issue(userID uuid.UUID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID.String(),
		Email:  email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies a session token
func (m *Manager) Parse(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", ErrInvalidSession)
	}

	return &Session{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
