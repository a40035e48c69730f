package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeRateLimit           ErrorType = "rate_limit"
	ErrorTypeInternal            ErrorType = "internal"
	ErrorTypeUnsupportedProvider ErrorType = "unsupported_provider"
	ErrorTypeMissingCredential   ErrorType = "missing_credential"
	ErrorTypeProviderRejected    ErrorType = "provider_rejected"
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeConfiguration       ErrorType = "configuration"
	ErrorTypeDecryption          ErrorType = "decryption"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is comparisons. Never attach details to these; use the
// constructors below, which return fresh values.
var (
	ErrUserNotFound        = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrUnauthorized        = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken        = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrRateLimitExceeded   = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	ErrInternal            = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrUnsupportedProvider = NewDomainError(ErrorTypeUnsupportedProvider, "unsupported provider", nil)
	ErrMissingCredential   = NewDomainError(ErrorTypeMissingCredential, "credential not configured", nil)
	ErrProviderRejected    = NewDomainError(ErrorTypeProviderRejected, "provider rejected the request", nil)
	ErrNetwork             = NewDomainError(ErrorTypeNetwork, "provider unreachable", nil)
	ErrConfiguration       = NewDomainError(ErrorTypeConfiguration, "server misconfigured", nil)
	ErrDecryption          = NewDomainError(ErrorTypeDecryption, "credential unavailable", nil)
)

// NewUnsupportedProvider reports a provider id missing from the registry
func NewUnsupportedProvider(providerID string) *DomainError {
	return NewDomainError(ErrorTypeUnsupportedProvider,
		fmt.Sprintf("provider %q is not supported", providerID), nil).
		WithDetail("provider", providerID)
}

// NewMissingCredential names the provider so the caller can prompt for key registration
func NewMissingCredential(providerID, displayName string) *DomainError {
	return NewDomainError(ErrorTypeMissingCredential,
		fmt.Sprintf("no API key registered for %s; add one in settings", displayName), nil).
		WithDetail("provider", providerID)
}

// NewNetworkError wraps a transport failure for one provider
func NewNetworkError(providerID string, err error) *DomainError {
	return NewDomainError(ErrorTypeNetwork,
		fmt.Sprintf("request to %s failed: %v", providerID, err), err).
		WithDetail("provider", providerID)
}

// NewConfigurationError reports missing or invalid server configuration
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(ErrorTypeConfiguration, message, nil)
}

// NewValidationError reports invalid caller input
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return hasType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return hasType(err, ErrorTypeValidation) }

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool { return hasType(err, ErrorTypeUnauthorized) }

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool { return hasType(err, ErrorTypeRateLimit) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return hasType(err, ErrorTypeInternal) }

// IsUnsupportedProviderError checks if an error names an unknown provider
func IsUnsupportedProviderError(err error) bool { return hasType(err, ErrorTypeUnsupportedProvider) }

// IsMissingCredentialError checks if an error reports an absent API key
func IsMissingCredentialError(err error) bool { return hasType(err, ErrorTypeMissingCredential) }

// IsProviderRejectedError checks if an upstream provider answered with a non-2xx status
func IsProviderRejectedError(err error) bool { return hasType(err, ErrorTypeProviderRejected) }

// IsNetworkError checks if an error is a transport failure
func IsNetworkError(err error) bool { return hasType(err, ErrorTypeNetwork) }

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool { return hasType(err, ErrorTypeConfiguration) }

// IsDecryptionError checks if an error is a decryption failure
func IsDecryptionError(err error) bool { return hasType(err, ErrorTypeDecryption) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the domain message without the type prefix or wrapped cause
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
