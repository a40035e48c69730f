package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Janghoon33/AI-Pick/auth"
	"github.com/Janghoon33/AI-Pick/config"
	"github.com/Janghoon33/AI-Pick/googleid"
	"github.com/Janghoon33/AI-Pick/handlers"
	"github.com/Janghoon33/AI-Pick/middleware"
	"github.com/Janghoon33/AI-Pick/repositories"
	"github.com/Janghoon33/AI-Pick/repositories/postgres"
	"github.com/Janghoon33/AI-Pick/services/account"
	"github.com/Janghoon33/AI-Pick/services/credentials"
	"github.com/Janghoon33/AI-Pick/services/gateway"
	"github.com/Janghoon33/AI-Pick/services/providers"
	"github.com/Janghoon33/AI-Pick/services/providers/builtin"
	"github.com/Janghoon33/AI-Pick/services/ratelimit"
	"github.com/Janghoon33/AI-Pick/services/vault"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory (nil when wired onto an existing pool)
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Domain services
	ProviderRegistry *providers.Registry
	Vault            *vault.Vault
	Gateway          *gateway.Gateway
	Credentials      *credentials.Service
	Accounts         *account.Service
	Sessions         *auth.Manager
	RateLimiter      *ratelimit.RateLimitService

	// HTTP
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	AIHandler           *handlers.AIHandler
	AccountHandler      *handlers.AccountHandler
	HealthHandler       *handlers.HealthHandler
}

// NewDependencies opens the database and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := Wire(cfg, factory.GetDB(), logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	deps.RepoFactory = factory

	if err := deps.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// Wire builds every service and handler on top of an open database pool
func Wire(cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}

	deps.initRepositories()

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, err
	}

	deps.initHTTP(cfg)

	return deps, nil
}

func (d *Dependencies) initRepositories() {
	d.Users = postgres.NewUserRepository(d.DB, d.Logger)
	d.TxManager = postgres.NewTransactionManager(d.DB, d.Logger)
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry, err := builtin.NewRegistry(cfg.Gateway)
	if err != nil {
		return err
	}
	d.ProviderRegistry = registry
	d.Logger.Info("provider registry initialized", zap.Strings("providers", registry.IDs()))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	v, err := vault.New(cfg.Vault, cfg.IsProduction(), d.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize credential vault: %w", err)
	}
	d.Vault = v

	client := &http.Client{Timeout: cfg.Gateway.HTTPTimeout}
	d.Gateway = gateway.New(d.ProviderRegistry, d.Vault, d.Users, client, cfg.Gateway, d.Logger.Named("gateway"))
	d.Credentials = credentials.NewService(d.Users, d.TxManager, d.Vault, d.ProviderRegistry, d.Logger.Named("credentials"))

	sessions, err := auth.NewManager(cfg.Auth, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	d.Sessions = sessions

	var verifier account.IdentityVerifier
	if cfg.Auth.GoogleClientID != "" {
		verifier = googleid.NewVerifier(googleid.Config{
			ClientID:    cfg.Auth.GoogleClientID,
			JWKSURL:     cfg.Auth.GoogleJWKSURL,
			CacheTTL:    time.Hour,
			HTTPTimeout: 10 * time.Second,
		})
	} else {
		d.Logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}
	d.Accounts = account.NewService(d.Users, d.TxManager, verifier, d.Sessions, d.Credentials, d.Logger.Named("account"))

	if cfg.RateLimit.Enabled {
		d.RateLimiter = ratelimit.NewRateLimitService(d.DB.DB, d.Logger.Named("ratelimit"))
	}

	return nil
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Sessions, cfg.Auth.CookieName, d.Logger)

	var limiter middleware.RateLimitChecker
	if d.RateLimiter != nil {
		limiter = d.RateLimiter
	}
	d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(limiter, d.Logger)

	d.AIHandler = handlers.NewAIHandler(d.Gateway, d.Logger)
	d.AccountHandler = handlers.NewAccountHandler(d.Accounts, d.Credentials, handlers.CookieSettings{
		Name:   cfg.Auth.CookieName,
		TTL:    d.Sessions.TTL(),
		Secure: cfg.IsProduction(),
	}, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.ProviderRegistry, d.Vault, d.Logger)
}

// RateLimitPolicies returns the configured policies for the api, auth and ask scopes
func (d *Dependencies) RateLimitPolicies() (api, login, ask ratelimit.Policy) {
	rl := d.Config.RateLimit
	api = ratelimit.Policy{Scope: ratelimit.ScopeAPI, Limit: rl.APIRequests, Window: rl.APIWindow}
	login = ratelimit.Policy{Scope: ratelimit.ScopeAuth, Limit: rl.AuthRequests, Window: rl.AuthWindow}
	ask = ratelimit.Policy{Scope: ratelimit.ScopeAsk, Limit: rl.AskRequests, Window: rl.AskWindow}
	return api, login, ask
}

// StartBackgroundWorkers launches the rate limit cleanup loop; it stops when ctx is cancelled
func (d *Dependencies) StartBackgroundWorkers(ctx context.Context) {
	if d.RateLimiter == nil || d.Config.RateLimit.CleanupInterval <= 0 {
		return
	}
	go d.RateLimiter.StartCleanupWorker(ctx, d.Config.RateLimit.CleanupInterval, d.Config.RateLimit.Retention)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
