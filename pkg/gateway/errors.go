package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmptyMessage is returned when a chat message is blank.
	ErrEmptyMessage = errors.New("gateway: empty chat message")

	// ErrNoClip is returned when a clip fetch is attempted without a URL.
	ErrNoClip = errors.New("gateway: reply has no audio clip")
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Endpoint is the path that failed, for log context.
	Endpoint string

	// Message is the response body, truncated.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway [%s]: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway [%s]: status %d", e.Endpoint, e.StatusCode)
}

// IsNotFound returns true if the resource was not found (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ConnectivityError wraps a transport-level failure (DNS, refused
// connection, timeout). These are always treated as transient: the poller's
// next tick or the user's retry is the recovery path.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("gateway [%s]: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a transport-level failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
