package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeAppError      = "APP_ERROR"
	CodeAPIError      = "API_ERROR"
	CodeRequestFailed = "REQUEST_FAILED"
	CodeToolError     = "TOOL_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeService       = "SERVICE_ERROR"
	CodeMisconfigured = "MISCONFIGURED"
)

// ErrMisconfigured marks a run aborted because the LLM endpoint keeps
// rejecting our credentials.
var ErrMisconfigured = stderrors.New("llm endpoint rejected credentials, check API key and URL")

// ErrCircuitOpen is returned without touching the network while the
// endpoint's circuit breaker is open.
var ErrCircuitOpen = stderrors.New("llm endpoint temporarily unavailable (circuit open)")

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

// RequestFailedError is raised by the LLM client for any non-2xx answer or
// network failure. StatusCode is 0 when no HTTP response was received.
type RequestFailedError struct {
	*AppError
	Provider string
}

func NewRequestFailedError(provider string, statusCode int, cause error) *RequestFailedError {
	msg := fmt.Sprintf("%s request failed", provider)
	if statusCode > 0 {
		msg = fmt.Sprintf("%s request failed: HTTP %d", provider, statusCode)
	}
	return &RequestFailedError{
		AppError: &AppError{
			Message:    msg,
			Code:       CodeRequestFailed,
			StatusCode: statusCode,
			Context: map[string]any{
				"provider": provider,
			},
			Cause: cause,
		},
		Provider: provider,
	}
}

// ToolError wraps failures talking to the MCP tool-execution service.
type ToolError struct {
	*AppError
	Tool string
}

func NewToolError(message, tool string, statusCode int, cause error) *ToolError {
	return &ToolError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeToolError,
			StatusCode: statusCode,
			Context: map[string]any{
				"tool": tool,
			},
			Cause: cause,
		},
		Tool: tool,
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var reqErr *RequestFailedError
	if stderrors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var toolErr *ToolError
	if stderrors.As(err, &toolErr) {
		return toolErr.StatusCode
	}
	return 0
}

// IsAuthFailure reports whether err is an LLM rejection of our credentials.
func IsAuthFailure(err error) bool {
	var reqErr *RequestFailedError
	if !stderrors.As(err, &reqErr) {
		return false
	}
	return reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusForbidden
}

// IsRetryable reports whether an LLM request failure is worth another attempt:
// rate limits, server errors and network failures.
func IsRetryable(err error) bool {
	if err == nil || stderrors.Is(err, ErrCircuitOpen) {
		return false
	}
	var reqErr *RequestFailedError
	if !stderrors.As(err, &reqErr) {
		return false
	}
	switch {
	case reqErr.StatusCode == 0:
		return true
	case reqErr.StatusCode == http.StatusTooManyRequests:
		return true
	case reqErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsRateLimited reports a 429 from the LLM endpoint.
func IsRateLimited(err error) bool {
	return StatusOf(err) == http.StatusTooManyRequests
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
