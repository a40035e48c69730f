package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, google_id, email, name, picture, api_keys, last_login, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertByGoogleID inserts the user, or when the Google subject already exists
// refreshes its login fields, and returns the stored row. An empty name keeps
// the stored one. Concurrent first logins resolve to a single row.
func (r *UserRepository) UpsertByGoogleID(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (google_id) DO UPDATE
		SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		    picture = EXCLUDED.picture,
		    last_login = EXCLUDED.last_login,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	executor := GetExecutor(ctx, r.db)
	row := executor.QueryRowContext(ctx, query,
		user.ID,
		user.GoogleID,
		user.Email,
		user.Name,
		nullableString(user.Picture),
		user.APIKeys,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)

	stored, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	r.logger.Debug("user upserted",
		zap.String("id", stored.ID.String()),
		zap.Bool("created", stored.ID == user.ID))
	return stored, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id, "id "+id.String())
}

// GetByIDForUpdate retrieves a user by ID and locks the row
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id, "id "+id.String())
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}, what string) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", what, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var picture sql.NullString

	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&picture,
		&user.APIKeys,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Picture = picture.String
	return user, nil
}

// UpdateAPIKeys replaces the encrypted key slots of a user
func (r *UserRepository) UpdateAPIKeys(ctx context.Context, id uuid.UUID, keys models.SecretSlots) error {
	query := `
		UPDATE users
		SET api_keys = $2,
		    updated_at = $3
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, keys, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update api keys: %w", err)
	}

	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Debug("user api keys updated",
		zap.String("id", id.String()),
		zap.Int("slots", len(keys)))
	return nil
}

func expectOneRow(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user id %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
