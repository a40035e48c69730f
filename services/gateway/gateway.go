// Package gateway sends one user question to one or more LLM providers using
// the caller's own stored API keys and normalizes the answers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Janghoon33/AI-Pick/config"
	"github.com/Janghoon33/AI-Pick/internal/observability"
	"github.com/Janghoon33/AI-Pick/models"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/Janghoon33/AI-Pick/services"
	"github.com/Janghoon33/AI-Pick/services/providers"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxQuestionLength bounds a question in characters
const MaxQuestionLength = 4000

// provider responses larger than this are truncated before parsing, with a warning
const maxResponseBytes = 4 << 20

// Doer executes outbound HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SecretReader yields a user's decrypted key for a provider
type SecretReader interface {
	GetSecret(user *models.User, providerID string) (string, bool)
}

// Result is the normalized answer from one provider
type Result struct {
	Provider     string          `json:"provider"`
	ProviderName string          `json:"service"`
	Answer       string          `json:"answer"`
	Usage        providers.Usage `json:"tokens"`
}

// Outcome is one provider's share of a fan-out: exactly one of Result or Err is set
type Outcome struct {
	Provider string
	Result   *Result
	Err      error
}

// ProviderInfo is the public view of a supported provider
type ProviderInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Gateway orchestrates provider calls. It holds no per-request state.
type Gateway struct {
	registry  *providers.Registry
	secrets   SecretReader
	users     repositories.UserRepository
	client    Doer
	maxFanOut int
	logger    *zap.Logger
}

// New creates a gateway
func New(
	registry *providers.Registry,
	secrets SecretReader,
	users repositories.UserRepository,
	client Doer,
	cfg config.GatewayConfig,
	logger *zap.Logger,
) *Gateway {
	maxFanOut := cfg.MaxFanOut
	if maxFanOut < 1 {
		maxFanOut = 3
	}
	return &Gateway{
		registry:  registry,
		secrets:   secrets,
		users:     users,
		client:    client,
		maxFanOut: maxFanOut,
		logger:    logger,
	}
}

// MaxFanOut returns the largest number of providers AskMany accepts
func (g *Gateway) MaxFanOut() int {
	return g.maxFanOut
}

// ListProviders returns every supported provider in catalog order
func (g *Gateway) ListProviders() []ProviderInfo {
	descriptors := g.registry.List()
	out := make([]ProviderInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, ProviderInfo{ID: d.ID, Name: d.Name, Model: d.Model})
	}
	return out
}

// AskQuestion loads the user and asks a single provider
func (g *Gateway) AskQuestion(ctx context.Context, userID uuid.UUID, providerID, question string) (*Result, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if !g.registry.Has(providerID) {
		return nil, services.NewUnsupportedProvider(providerID)
	}

	user, err := g.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return g.Ask(ctx, user, providerID, question)
}

// AskMany asks up to MaxFanOut distinct providers concurrently and waits for all of them.
// A failing provider never cancels the others. Outcomes follow providerIDs order.
func (g *Gateway) AskMany(ctx context.Context, userID uuid.UUID, providerIDs []string, question string) ([]Outcome, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if len(providerIDs) == 0 {
		return nil, services.NewValidationError("at least one provider is required")
	}
	if len(providerIDs) > g.maxFanOut {
		return nil, services.NewValidationError(fmt.Sprintf("at most %d providers can be compared at once", g.maxFanOut))
	}
	seen := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		if seen[id] {
			return nil, services.NewValidationError(fmt.Sprintf("provider %q requested more than once", id))
		}
		seen[id] = true
	}

	user, err := g.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(providerIDs))
	var eg errgroup.Group
	eg.SetLimit(g.maxFanOut)

	for i, id := range providerIDs {
		eg.Go(func() error {
			result, err := g.Ask(ctx, user, id, question)
			outcomes[i] = Outcome{Provider: id, Result: result, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	return outcomes, nil
}

// Ask calls one provider on behalf of user. No request leaves the process
// unless the provider is known and the user holds a readable key for it.
func (g *Gateway) Ask(ctx context.Context, user *models.User, providerID, question string) (*Result, error) {
	logger := observability.FromContext(ctx, g.logger).With(zap.String("provider", providerID))

	desc, adapter, err := g.registry.Get(providerID)
	if err != nil {
		return nil, services.NewUnsupportedProvider(providerID)
	}

	secret, ok := g.secrets.GetSecret(user, providerID)
	if !ok {
		return nil, services.NewMissingCredential(providerID, desc.Name)
	}

	payload, err := json.Marshal(adapter.BuildRequestBody(question))
	if err != nil {
		return nil, services.WrapInternal("failed to encode provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, adapter.ResolveEndpoint(secret), bytes.NewReader(payload))
	if err != nil {
		return nil, services.WrapInternal("failed to build provider request", err)
	}
	for k, v := range adapter.BuildHeaders(secret) {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		err = scrubTransportError(err)
		logger.Warn("provider call failed",
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, services.NewNetworkError(providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		logger.Warn("failed to read provider response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, services.NewNetworkError(providerID, err)
	}
	if len(body) > maxResponseBytes {
		body = body[:maxResponseBytes]
		logger.Warn("provider response truncated",
			zap.Int("status", resp.StatusCode),
			zap.Int("limit_bytes", maxResponseBytes),
		)
	}
	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := adapter.ParseError(resp.StatusCode, body)
		logger.Warn("provider rejected request",
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", latency),
			zap.String("kind", string(failure.Kind)),
			zap.Bool("quota", failure.Quota),
		)
		return nil, rejected(providerID, failure)
	}

	completion := adapter.ParseSuccess(body)
	logger.Info("provider call completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
		zap.Int("input_tokens", completion.Usage.InputTokens),
		zap.Int("output_tokens", completion.Usage.OutputTokens),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
	)

	return &Result{
		Provider:     desc.ID,
		ProviderName: desc.Name,
		Answer:       completion.Answer,
		Usage:        completion.Usage,
	}, nil
}

func (g *Gateway) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.WrapError(services.ErrorTypeNotFound, "user not found", err)
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	return user, nil
}

func rejected(providerID string, failure *providers.CallFailure) *services.DomainError {
	return services.NewDomainError(services.ErrorTypeProviderRejected, failure.Message, failure).
		WithDetail("provider", providerID).
		WithDetail("kind", string(failure.Kind)).
		WithDetail("http_status", failure.HTTPStatus).
		WithDetail("quota", failure.Quota)
}

// scrubTransportError drops the request URL, which carries the key for query-authenticated providers
func scrubTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func validateQuestion(question string) error {
	q := strings.TrimSpace(question)
	if q == "" {
		return services.NewValidationError("question is required")
	}
	if len([]rune(question)) > MaxQuestionLength {
		return services.NewValidationError(fmt.Sprintf("question must be at most %d characters", MaxQuestionLength))
	}
	return nil
}
