package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scope names a group of routes sharing one limit
type Scope string

const (
	ScopeAPI  Scope = "api"
	ScopeAuth Scope = "auth"
	ScopeAsk  Scope = "ask"
)

// Policy is a sliding-window request limit
type Policy struct {
	Scope  Scope
	Limit  int
	Window time.Duration
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimitService counts requests per scope and client in PostgreSQL
type RateLimitService struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(db *sql.DB, logger *zap.Logger) *RateLimitService {
	return &RateLimitService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Allow checks the client against the policy and, when allowed, records the request.
// Counting and recording are separate statements, so concurrent bursts may overshoot slightly.
func (s *RateLimitService) Allow(ctx context.Context, policy Policy, client string) (*Result, error) {
	if policy.Limit <= 0 || policy.Window <= 0 {
		return &Result{Allowed: true}, nil
	}

	scopeKey := buildScopeKey(policy.Scope, client)
	now := s.now()
	windowStart := now.Add(-policy.Window)

	query := `
		SELECT COUNT(*), MIN(timestamp)
		FROM rate_limit_events
		WHERE scope_key = $1
		  AND timestamp > $2
	`

	var count int
	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, scopeKey, windowStart).Scan(&count, &oldest); err != nil {
		return nil, fmt.Errorf("failed to query rate limit: %w", err)
	}

	if count >= policy.Limit {
		resetAt := now.Add(policy.Window)
		if oldest.Valid {
			resetAt = oldest.Time.Add(policy.Window)
		}
		retryAfter := resetAt.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return &Result{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			RetryAfter: retryAfter,
			ResetAt:    resetAt,
		}, nil
	}

	if err := s.recordEvent(ctx, scopeKey, now); err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - count - 1,
		ResetAt:   now.Add(policy.Window),
	}, nil
}

func (s *RateLimitService) recordEvent(ctx context.Context, scopeKey string, timestamp time.Time) error {
	query := `
		INSERT INTO rate_limit_events (scope_key, timestamp)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, scopeKey, timestamp); err != nil {
		return fmt.Errorf("failed to insert rate limit event: %w", err)
	}
	return nil
}

func buildScopeKey(scope Scope, client string) string {
	return fmt.Sprintf("%s:%s", scope, client)
}

// CleanupOldRequests removes events older than the retention period
func (s *RateLimitService) CleanupOldRequests(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := s.now().Add(-olderThan)

	query := `
		DELETE FROM rate_limit_events
		WHERE timestamp < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old requests: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old rate limit events",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoffTime))

	return rowsAffected, nil
}

// StartCleanupWorker periodically deletes expired events until ctx is cancelled
func (s *RateLimitService) StartCleanupWorker(ctx context.Context, interval time.Duration, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldRequests(ctx, retention); err != nil {
				s.logger.Error("failed to cleanup old requests", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
