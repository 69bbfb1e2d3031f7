package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	Service     string // host that produced the response
	StatusCode  int    // HTTP status code
	Message     string // short excerpt of the response body
	Recoverable bool   // whether retrying the same request may succeed
	Guidance    string // what the user can do about it
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s responded %d: %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Message)
}

// Guidance messages
const (
	GuidanceRateLimit    = "Rate limit exceeded. Please try again in a few moments."
	GuidanceTimeout      = "The request timed out. Please try again."
	GuidanceBadRequest   = "The request was invalid. Check the selected property and details."
	GuidanceNotFound     = "No data is available for this location."
	GuidanceServerError  = "The server encountered an error. This is likely temporary, please try again later."
	GuidanceUnavailable  = "The service is temporarily unavailable. Please try again later."
	GuidanceGeneral      = "Please try again later."
	GuidanceNetworkError = "Check your internet connection and try again."
	GuidanceDataError    = "The data received was incomplete or malformed."
)

// NewHTTPError creates an HTTPError with guidance inferred from the status code.
func NewHTTPError(service string, statusCode int, message string) *HTTPError {
	var guidance string
	switch statusCode {
	case http.StatusTooManyRequests:
		guidance = GuidanceRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		guidance = GuidanceTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		guidance = GuidanceBadRequest
	case http.StatusNotFound:
		guidance = GuidanceNotFound
	case http.StatusInternalServerError:
		guidance = GuidanceServerError
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		guidance = GuidanceUnavailable
	default:
		guidance = GuidanceGeneral
	}

	return &HTTPError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode >= 500 || statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout,
		Guidance:    guidance,
	}
}

// DecodeError reports a response body that did not match the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsCancelled reports whether err stems from a cancelled request.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Guidance returns the user-facing hint for err.
func Guidance(err error) string {
	var httpErr *HTTPError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Guidance
	case errors.As(err, &decodeErr):
		return GuidanceDataError
	case errors.Is(err, context.DeadlineExceeded):
		return GuidanceTimeout
	default:
		return GuidanceNetworkError
	}
}
