package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Janghoon33/AI-Pick/auth"
	"github.com/Janghoon33/AI-Pick/middleware"
	"github.com/Janghoon33/AI-Pick/services/account"
	"github.com/Janghoon33/AI-Pick/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GoogleLoginRequest is the body of POST /api/auth/google
type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// SetKeyRequest is the body of POST /api/auth/api-keys
type SetKeyRequest struct {
	Service string `json:"service" validate:"required,provider_id"`
	APIKey  string `json:"apiKey" validate:"required,notblank,max=512"`
}

// KeyStatusResponse wraps a user's per-provider key status
type KeyStatusResponse struct {
	APIKeyStatus map[string]bool `json:"apiKeyStatus"`
}

// AccountService defines sign-in and profile operations
type AccountService interface {
	Login(ctx context.Context, credential string) (*account.LoginResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*account.Profile, error)
}

// KeyService defines API key management operations
type KeyService interface {
	SetKey(ctx context.Context, userID uuid.UUID, providerID, apiKey string) (map[string]bool, error)
	DeleteKey(ctx context.Context, userID uuid.UUID, providerID string) (map[string]bool, error)
	KeyStatus(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
}

// CookieSettings controls the session cookie written on sign-in
type CookieSettings struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AccountHandler handles sign-in, profile and API key endpoints
type AccountHandler struct {
	accounts AccountService
	keys     KeyService
	cookie   CookieSettings
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountService, keys KeyService, cookie CookieSettings, logger *zap.Logger) *AccountHandler {
	if cookie.Name == "" {
		cookie.Name = "auth_token"
	}
	return &AccountHandler{
		accounts: accounts,
		keys:     keys,
		cookie:   cookie,
		logger:   logger,
	}
}

// HandleGoogleLogin handles POST /api/auth/google
func (h *AccountHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GoogleLoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.accounts.Login(ctx, req.Credential)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	ttl := time.Until(result.ExpiresAt)
	if ttl <= 0 {
		ttl = h.cookie.TTL
	}
	auth.SetSessionCookie(w, h.cookie.Name, result.Token, ttl, h.cookie.Secure)

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleLogout handles POST /api/auth/logout
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookie.Name, h.cookie.Secure)
	utils.WriteNoContent(w)
}

// HandleMe handles GET /api/auth/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	profile, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, profile); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleSetKey handles POST /api/auth/api-keys
func (h *AccountHandler) HandleSetKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req SetKeyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	status, err := h.keys.SetKey(ctx, userID, req.Service, req.APIKey)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, KeyStatusResponse{APIKeyStatus: status}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleDeleteKey handles DELETE /api/auth/api-keys/{service}
func (h *AccountHandler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	service := chi.URLParam(r, "service")
	if err := utils.ValidateProviderID(service); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	status, err := h.keys.DeleteKey(ctx, userID, service)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, KeyStatusResponse{APIKeyStatus: status}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleKeyStatus handles GET /api/auth/api-keys/status
func (h *AccountHandler) HandleKeyStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	status, err := h.keys.KeyStatus(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, KeyStatusResponse{APIKeyStatus: status}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
