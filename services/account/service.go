// Package account handles Google sign-in and the signed-in user's profile.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/Janghoon33/AI-Pick/googleid"
	"github.com/Janghoon33/AI-Pick/internal/observability"
	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/Janghoon33/AI-Pick/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityVerifier validates a Google ID token
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*googleid.Identity, error)
}

// SessionIssuer signs session tokens
type SessionIssuer interface {
	Issue(userID uuid.UUID, email string) (string, time.Time, error)
}

// KeyStatusReporter reports which providers a user has keys for
type KeyStatusReporter interface {
	StatusFor(user *models.User) map[string]bool
}

// Profile is the client-facing view of a user
type Profile struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Picture      string          `json:"picture,omitempty"`
	APIKeyStatus map[string]bool `json:"apiKeyStatus"`
}

// LoginResult is returned by a successful sign-in
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// Service implements sign-in and profile lookup
type Service struct {
	users    repositories.UserRepository
	txMgr    repositories.TransactionManager
	verifier IdentityVerifier
	sessions SessionIssuer
	keys     KeyStatusReporter
	logger   *zap.Logger
}

// NewService creates a new account service
func NewService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	verifier IdentityVerifier,
	sessions SessionIssuer,
	keys KeyStatusReporter,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:    users,
		txMgr:    txMgr,
		verifier: verifier,
		sessions: sessions,
		keys:     keys,
		logger:   logger,
	}
}

// Login verifies a Google credential, creates or refreshes the user and issues a session token
func (s *Service) Login(ctx context.Context, credential string) (*LoginResult, error) {
	logger := observability.FromContext(ctx, s.logger)

	if credential == "" {
		return nil, services.NewValidationError("Google credential is required")
	}
	if s.verifier == nil {
		return nil, services.NewConfigurationError("Google sign-in is not configured")
	}

	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		logger.Warn("google token rejected", zap.Error(err))
		return nil, services.WrapError(services.ErrorTypeUnauthorized, "authentication failed", err)
	}
	if identity.Email == "" {
		return nil, services.NewDomainError(services.ErrorTypeUnauthorized, "Google account has no email", nil)
	}

	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.User, error) {
		return s.upsert(ctx, identity)
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return nil, services.WrapInternal("failed to issue session", err)
	}

	logger.Info("user signed in", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      s.profile(user),
	}, nil
}

// Profile returns the user's profile with key status
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.WrapError(services.ErrorTypeNotFound, "user not found", err)
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	p := s.profile(user)
	return &p, nil
}

func (s *Service) upsert(ctx context.Context, identity *googleid.Identity) (*models.User, error) {
	candidate := models.NewUser(identity.Subject, identity.Email, identity.Name, identity.Picture)
	user, err := s.users.UpsertByGoogleID(ctx, candidate)
	if err != nil {
		return nil, services.WrapInternal("failed to save user", err)
	}
	return user, nil
}

func (s *Service) profile(user *models.User) Profile {
	return Profile{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Picture:      user.Picture,
		APIKeyStatus: s.keys.StatusFor(user),
	}
}
