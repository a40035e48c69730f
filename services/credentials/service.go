// Package credentials manages the per-user provider API keys held in the vault.
package credentials

import (
	"context"
	"errors"

	"github.com/Janghoon33/AI-Pick/internal/observability"
	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/Janghoon33/AI-Pick/services"
	"github.com/Janghoon33/AI-Pick/services/providers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyVault seals secrets into a user's key slots
type KeyVault interface {
	SetSecret(user *models.User, providerID, plaintext string) error
	DeleteSecret(user *models.User, providerID string)
	Status(user *models.User, providerIDs []string) map[string]bool
}

// Service stores and removes API keys. Each mutation is a locked
// read-modify-write of one user row; concurrent writers to the same slot are last-write-wins.
type Service struct {
	users    repositories.UserRepository
	txMgr    repositories.TransactionManager
	vault    KeyVault
	registry *providers.Registry
	logger   *zap.Logger
}

// NewService creates a new credentials service
func NewService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	vault KeyVault,
	registry *providers.Registry,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:    users,
		txMgr:    txMgr,
		vault:    vault,
		registry: registry,
		logger:   logger,
	}
}

// SetKey encrypts and stores apiKey for providerID, replacing any previous key.
// It returns the user's key status afterwards.
func (s *Service) SetKey(ctx context.Context, userID uuid.UUID, providerID, apiKey string) (map[string]bool, error) {
	if !s.registry.Has(providerID) {
		return nil, services.NewUnsupportedProvider(providerID)
	}

	status, err := s.mutate(ctx, userID, func(user *models.User) error {
		return s.vault.SetSecret(user, providerID, apiKey)
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx, s.logger).Info("api key stored",
		zap.String("user_id", userID.String()),
		zap.String("provider", providerID),
	)
	return status, nil
}

// DeleteKey removes the key for providerID. Deleting an absent key succeeds.
func (s *Service) DeleteKey(ctx context.Context, userID uuid.UUID, providerID string) (map[string]bool, error) {
	if !s.registry.Has(providerID) {
		return nil, services.NewUnsupportedProvider(providerID)
	}

	status, err := s.mutate(ctx, userID, func(user *models.User) error {
		s.vault.DeleteSecret(user, providerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx, s.logger).Info("api key deleted",
		zap.String("user_id", userID.String()),
		zap.String("provider", providerID),
	)
	return status, nil
}

// KeyStatus reports, for every supported provider, whether the user has stored a key
func (s *Service) KeyStatus(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	return s.StatusFor(user), nil
}

// StatusFor computes the key status of an already loaded user
func (s *Service) StatusFor(user *models.User) map[string]bool {
	return s.vault.Status(user, s.registry.IDs())
}

func (s *Service) mutate(ctx context.Context, userID uuid.UUID, change func(user *models.User) error) (map[string]bool, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (map[string]bool, error) {
		user, err := s.users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, mapUserError(err)
		}

		if err := change(user); err != nil {
			return nil, err
		}

		if err := s.users.UpdateAPIKeys(ctx, user.ID, user.APIKeys); err != nil {
			return nil, mapUserError(err)
		}
		return s.StatusFor(user), nil
	})
}

func mapUserError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.WrapError(services.ErrorTypeNotFound, "user not found", err)
	}
	return services.WrapInternal("failed to access user", err)
}
