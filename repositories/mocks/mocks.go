// Package mocks provides testify mocks of the repository interfaces for service and handler tests.
package mocks

import (
	"context"

	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertByGoogleID(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	switch stored := args.Get(0).(type) {
	case func(context.Context, *models.User) *models.User:
		return stored(ctx, user), args.Error(1)
	case *models.User:
		return stored, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateAPIKeys(ctx context.Context, id uuid.UUID, keys models.SecretSlots) error {
	args := m.Called(ctx, id, keys)
	return args.Error(0)
}

// FakeTransactionManager runs functions inline and records the outcome.
// BeginErr and CommitErr inject failures.
type FakeTransactionManager struct {
	BeginErr  error
	CommitErr error

	Committed  int
	RolledBack int
}

type fakeTx struct {
	mgr *FakeTransactionManager
	ctx context.Context
}

func (t *fakeTx) Commit() error {
	if t.mgr.CommitErr != nil {
		return t.mgr.CommitErr
	}
	t.mgr.Committed++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.mgr.RolledBack++
	return nil
}

func (t *fakeTx) Context() context.Context {
	return t.ctx
}

func (m *FakeTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &fakeTx{mgr: m, ctx: ctx}, nil
}
