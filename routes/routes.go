package routes

import (
	"net/http"

	"github.com/Janghoon33/AI-Pick/app"
	"github.com/Janghoon33/AI-Pick/middleware"
	"github.com/Janghoon33/AI-Pick/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(chimiddleware.RequestID)
	if cfg.Server.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.LimitBody(cfg.Server.MaxBodyBytes))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	apiLimit, authLimit, askLimit := deps.RateLimitPolicies()
	limiter := deps.RateLimitMiddleware
	requireAuth := deps.AuthMiddleware.RequireAuth

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Limit(apiLimit))

		r.Get("/services", deps.AIHandler.HandleListServices)

		r.Route("/ask", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(limiter.Limit(askLimit))
			r.Post("/", deps.AIHandler.HandleAsk)
			r.Post("/compare", deps.AIHandler.HandleCompare)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Limit(authLimit))
			r.Post("/google", deps.AccountHandler.HandleGoogleLogin)
			r.Post("/logout", deps.AccountHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", deps.AccountHandler.HandleMe)
				r.Post("/api-keys", deps.AccountHandler.HandleSetKey)
				r.Get("/api-keys/status", deps.AccountHandler.HandleKeyStatus)
				r.Delete("/api-keys/{service}", deps.AccountHandler.HandleDeleteKey)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	return r
}
