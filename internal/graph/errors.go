package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrFolderNotFound is returned when a configured mail folder does not exist
var ErrFolderNotFound = errors.New("mail folder not found")

// UpstreamError is returned when the remote API answers with a non-success status
type UpstreamError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API error: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Retryable reports whether repeating the request may succeed
func (e *UpstreamError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// TransientError is returned when the remote API could not be reached
type TransientError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("request failed: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when something the service was configured
// to use is missing on the remote side
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.What, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound
}
