package repositories

import (
	"context"
	"errors"

	"github.com/Janghoon33/AI-Pick/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction. The returned Transaction's Context carries
	// the transaction so repositories called with it join the same unit of work.
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// UserRepository handles user and encrypted key slot persistence
type UserRepository interface {
	// UpsertByGoogleID inserts user or, when its google_id exists, refreshes
	// name, picture and login time. It returns the stored row.
	UpsertByGoogleID(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns ErrNotFound (wrapped) when the user does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByIDForUpdate locks the row for the remainder of the surrounding transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)

	// UpdateAPIKeys replaces the user's encrypted key slots
	UpdateAPIKeys(ctx context.Context, id uuid.UUID, keys models.SecretSlots) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Users UserRepository
}
