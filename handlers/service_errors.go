package handlers

import (
	"errors"
	"net/http"

	"github.com/Janghoon33/AI-Pick/services"
	"github.com/Janghoon33/AI-Pick/utils"
	"go.uber.org/zap"
)

// errorMapping is the HTTP rendering of one domain error type
type errorMapping struct {
	status int
	code   string
	// generic replaces the domain message when it must not reach the client
	generic string
}

var errorMappings = map[services.ErrorType]errorMapping{
	services.ErrorTypeUnsupportedProvider: {status: http.StatusBadRequest, code: "unsupported_provider"},
	services.ErrorTypeMissingCredential:   {status: http.StatusBadRequest, code: "missing_credential"},
	services.ErrorTypeValidation:          {status: http.StatusBadRequest, code: "bad_request"},
	services.ErrorTypeUnauthorized:        {status: http.StatusUnauthorized, code: "unauthorized"},
	services.ErrorTypeNotFound:            {status: http.StatusNotFound, code: "not_found"},
	services.ErrorTypeRateLimit:           {status: http.StatusTooManyRequests, code: "rate_limit_exceeded"},
	services.ErrorTypeProviderRejected:    {status: http.StatusBadGateway, code: "provider_rejected"},
	services.ErrorTypeNetwork:             {status: http.StatusBadGateway, code: "network_error"},
	services.ErrorTypeConfiguration:       {status: http.StatusInternalServerError, code: "configuration_error", generic: "Server configuration error"},
	services.ErrorTypeDecryption:          {status: http.StatusInternalServerError, code: "internal_error", generic: "An internal error occurred"},
	services.ErrorTypeInternal:            {status: http.StatusInternalServerError, code: "internal_error", generic: "An internal error occurred"},
}

var unhandledMapping = errorMapping{
	status:  http.StatusInternalServerError,
	code:    "internal_error",
	generic: "An unexpected error occurred",
}

// ErrorBody is the client-facing form of a failed operation
type ErrorBody struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// classify maps err onto its HTTP status and client-facing body
func classify(err error) (int, ErrorBody, bool) {
	var domainErr *services.DomainError
	mapping, known := unhandledMapping, false
	if errors.As(err, &domainErr) {
		mapping, known = errorMappings[domainErr.Type]
		if !known {
			mapping = unhandledMapping
		}
	}

	body := ErrorBody{Type: mapping.code}
	if mapping.generic != "" {
		body.Message = mapping.generic
	} else {
		body.Message = services.GetErrorMessage(err)
		body.Details = services.GetErrorDetails(err)
	}
	return mapping.status, body, known
}

// OutcomeError renders an error for embedding in a multi-provider response
func OutcomeError(err error, logger *zap.Logger) *ErrorBody {
	status, body, _ := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("provider outcome failed", zap.Error(err))
	}
	return &body
}

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status, body, known := classify(err)

	switch {
	case !known:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
	case status >= http.StatusInternalServerError:
		logger.Error("internal server error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
	default:
		logger.Debug("handled service error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.String("message", body.Message),
			zap.Any("details", body.Details))
	}

	var writeErr error
	switch {
	case status == http.StatusTooManyRequests:
		writeErr = utils.WriteTooManyRequests(w, body.Message, 0, body.Details)
	case status == http.StatusBadGateway:
		writeErr = utils.WriteBadGateway(w, body.Type, body.Message, body.Details)
	case status == http.StatusInternalServerError && body.Type == "internal_error":
		writeErr = utils.WriteInternalServerError(w, body.Message)
	default:
		writeErr = utils.WriteErrorCode(w, status, body.Type, body.Message, body.Details)
	}
	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if errors.Is(err, utils.ErrBodyTooLarge) {
		if err := utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
