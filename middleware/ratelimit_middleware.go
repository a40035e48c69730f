package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Janghoon33/AI-Pick/services/ratelimit"
	"github.com/Janghoon33/AI-Pick/utils"
	"go.uber.org/zap"
)

// RateLimitChecker defines the interface for rate limit checking
type RateLimitChecker interface {
	Allow(ctx context.Context, policy ratelimit.Policy, client string) (*ratelimit.Result, error)
}

// RateLimitMiddleware enforces per-client request limits
type RateLimitMiddleware struct {
	limiter RateLimitChecker
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter RateLimitChecker, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit returns a middleware enforcing policy per client. Requests that
// RequireAuth has already authenticated count against the user, all others
// against the client IP. Limiter storage failures let the request through.
func (m *RateLimitMiddleware) Limit(policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)
			client := limitKey(r)

			result, err := m.limiter.Allow(ctx, policy, client)
			if err != nil {
				m.logger.Error("failed to check rate limit",
					zap.String("request_id", requestID),
					zap.String("scope", string(policy.Scope)),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				m.logger.Warn("request blocked by rate limit",
					zap.String("request_id", requestID),
					zap.String("scope", string(policy.Scope)),
					zap.String("client", client),
					zap.Duration("retry_after", result.RetryAfter))

				details := map[string]interface{}{
					"scope":    string(policy.Scope),
					"reset_at": result.ResetAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
				}
				_ = utils.WriteTooManyRequests(w, "Too many requests, please try again later", result.RetryAfter, details)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	return ClientIP(r)
}
