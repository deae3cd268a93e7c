package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// statusError classifies a response status. It returns nil for 200.
func statusError(code int, message string) error {
	apiErr := &APIError{StatusCode: code, Message: message}
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests, code >= 500:
		return &retryableError{err: apiErr}
	default:
		return apiErr
	}
}

// transportError wraps a failed round trip.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "API request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// UserMessage turns a Complete error into the text shown in the chat.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		apiErr  *APIError
		netErr  net.Error
		tripErr *transportError
	)
	lower := strings.ToLower(err.Error())
	hasAPIErr := errors.As(err, &apiErr)
	code := 0
	if hasAPIErr {
		code = apiErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotConfigured):
		return "Error: API key is not configured. Please set completion.api_key or PLANBOARD_COMPLETION_API_KEY."
	case code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(lower, "api_key") || strings.Contains(lower, "api key"):
		return "Error: Invalid API key. Please check completion.api_key in your planboard config."
	case code == http.StatusTooManyRequests || strings.Contains(lower, "quota"):
		return "Error: API quota exceeded. Please check your completion provider usage."
	case errors.As(err, &tripErr), errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded):
		return "Error: Network issue. Please check your internet connection."
	case code == http.StatusNotFound || strings.Contains(lower, "model"):
		return "Error: Model not found. Please check if the model name is correct."
	default:
		return fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", err.Error())
	}
}
