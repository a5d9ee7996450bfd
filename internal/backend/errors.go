// ABOUTME: Error types returned by the backend client
// ABOUTME: Separates "the backend said no" from "the backend could not be reached"

package backend

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a mutating call is attempted without a
// token. No request is sent.
var ErrUnauthorized = errors.New("not authenticated")

// APIError is a non-2xx response from a reachable backend.
type APIError struct {
	Op         string
	StatusCode int
	// Message is the backend's "message" field, empty when it sent none.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
}

// TransportError means the operation could not be attempted or its response
// could not be read: connection refused, timeout, or an undecodable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a backend rejection.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsTransport reports whether err means the backend was not reached.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// StatusCode returns the HTTP status of a rejection, 0 otherwise.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage turns any client error into the single line shown to the
// operator: the backend's own message when it sent one, else fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
