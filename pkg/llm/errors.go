package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType says which part of the LLM configuration or transport failed.
type ErrorType string

const (
	ErrorTypeNone        ErrorType = ""
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeToolLoop    ErrorType = "tool_loop"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a structured LLM transport failure.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
	Endpoint   string    // Endpoint URL if known, logged as host only
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if host := endpointHost(e.Endpoint); host != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", host))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

func endpointHost(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// ClassifyError categorizes an error and returns a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) {
		return NewError(ErrorTypeEndpoint, "request canceled", false, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeEndpoint, "request timeout", true, err)
	}

	// go-openai reports the status code on typed errors
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	var classified *Error
	switch {
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication_error") ||
		strings.Contains(lower, "invalid x-api-key"):
		classified = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		classified = NewError(ErrorTypeModel, "model not found", false, err)
	case statusCode == 404:
		classified = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		classified = NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		classified = NewError(ErrorTypeEndpoint, "request timeout", true, err)
	case statusCode == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		classified = NewError(ErrorTypeRateLimited, "rate limited", true, err)
	case statusCode == 529 || strings.Contains(lower, "overloaded"):
		classified = NewError(ErrorTypeEndpoint, "provider overloaded", true, err)
	case statusCode >= 500:
		classified = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		classified = NewError(ErrorTypeUnknown, "llm error", false, err)
	}
	classified.StatusCode = statusCode
	return classified
}

func classifyStatus(status int, err error) *Error {
	var classified *Error
	switch {
	case status == 401 || status == 403:
		classified = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case status == 404:
		classified = NewError(ErrorTypeModel, "model or endpoint not found", false, err)
	case status == 429:
		classified = NewError(ErrorTypeRateLimited, "rate limited", true, err)
	case status >= 500:
		classified = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		classified = NewError(ErrorTypeUnknown, "llm request rejected", false, err)
	}
	classified.StatusCode = status
	return classified
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
