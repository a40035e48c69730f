package handlers

import (
	"context"
	"net/http"

	"github.com/Janghoon33/AI-Pick/middleware"
	"github.com/Janghoon33/AI-Pick/services/gateway"
	"github.com/Janghoon33/AI-Pick/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Service  string `json:"service" validate:"required,provider_id"`
	Question string `json:"question" validate:"required"`
}

// CompareRequest is the body of POST /api/ask/compare
type CompareRequest struct {
	Services []string `json:"services" validate:"required,min=1,dive,provider_id"`
	Question string   `json:"question" validate:"required"`
}

// CompareOutcome is one provider's entry in a compare response
type CompareOutcome struct {
	Service string          `json:"service"`
	Result  *gateway.Result `json:"result,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// GatewayService defines the gateway operations used by AIHandler
type GatewayService interface {
	ListProviders() []gateway.ProviderInfo
	AskQuestion(ctx context.Context, userID uuid.UUID, providerID, question string) (*gateway.Result, error)
	AskMany(ctx context.Context, userID uuid.UUID, providerIDs []string, question string) ([]gateway.Outcome, error)
}

// AIHandler handles provider listing and question routing
type AIHandler struct {
	gateway GatewayService
	logger  *zap.Logger
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(gateway GatewayService, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// HandleListServices handles GET /api/services
func (h *AIHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.gateway.ListProviders()); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleAsk handles POST /api/ask
func (h *AIHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req AskRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.gateway.AskQuestion(ctx, userID, req.Service, req.Question)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleCompare handles POST /api/ask/compare. Per-provider failures are
// reported inside the 200 response next to the successful answers.
func (h *AIHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CompareRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	outcomes, err := h.gateway.AskMany(ctx, userID, req.Services, req.Question)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := make([]CompareOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		entry := CompareOutcome{Service: o.Provider, Result: o.Result}
		if o.Err != nil {
			entry.Error = OutcomeError(o.Err, h.logger.With(zap.String("request_id", requestID)))
		}
		response = append(response, entry)
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
