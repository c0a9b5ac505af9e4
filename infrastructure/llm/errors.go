package llm

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates an empty response body from a provider.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrNoResponseChoice indicates a response with no usable choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
	// ErrNoJSONFound indicates that no JSON object could be extracted
	// from a structured-output response.
	ErrNoJSONFound = errors.New("no valid JSON found in response")
)

// ErrorType categorizes provider errors for standardized handling,
// in particular retryability decisions.
type ErrorType int

const (
	// ErrorTypeUnknown is an error of undetermined category.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication is an authentication or authorization failure.
	ErrorTypeAuthentication
	// ErrorTypeRateLimit indicates an exceeded rate limit.
	ErrorTypeRateLimit
	// ErrorTypeBadRequest is a malformed request or invalid parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates a missing resource such as a model.
	ErrorTypeNotFound
	// ErrorTypeServerError is a provider-side failure.
	ErrorTypeServerError
	// ErrorTypeNetwork is a client-side network problem.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates a timed-out request.
	ErrorTypeTimeout
)

// ProviderError normalizes provider-specific failures into a common
// structure with a classified type and optional HTTP status.
type ProviderError struct {
	// Type classifies the error.
	Type ErrorType
	// Provider names the provider that produced the error.
	Provider string
	// StatusCode holds the HTTP status when applicable.
	StatusCode int
	// Message is the user-facing message from the provider.
	Message string
	// WrappedError preserves the original error for unwrapping.
	WrappedError error
}

// Error satisfies the error interface.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.typeString(); s != "" {
		base += fmt.Sprintf(" [%s]", s)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap returns the wrapped error for errors.Is / errors.As.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether a request failing with this error is worth
// retrying. Transient categories — rate limits, server errors, network
// problems, timeouts — are retryable; everything else is not.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func (e *ProviderError) typeString() string {
	switch e.Type {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// NewProviderError builds a standardized ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:         errType,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// ErrorClassifier converts provider-specific failures into ProviderError
// instances using HTTP status codes.
type ErrorClassifier struct {
	// Provider names the provider this classifier works for.
	Provider string
}

// ClassifyHTTPError maps an HTTP status code to a classified error.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrorTypeAuthentication
		message = fmt.Sprintf("%s authentication failed", ec.Provider)
	case statusCode == 429:
		errType = ErrorTypeRateLimit
		message = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
	case statusCode == 404:
		errType = ErrorTypeNotFound
	case statusCode >= 500:
		errType = ErrorTypeServerError
	case statusCode >= 400:
		errType = ErrorTypeBadRequest
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}
