package remote

import (
	"errors"
	"fmt"
	"time"
)

// StatusError carries a non-2xx HTTP status and the server's message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Code)
}

// ErrRateLimit indicates the service returned 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrUnavailable indicates the service is down, unreachable or returned 5xx.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service unavailable: %v", e.Err)
	}
	return "service unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrAuth indicates the credentials were refused (401/403).
type ErrAuth struct {
	Err error
}

func (e *ErrAuth) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *ErrAuth) Unwrap() error { return e.Err }

// ErrConflict indicates the resource already exists (409).
type ErrConflict struct {
	Err error
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("conflict: %v", e.Err)
}

func (e *ErrConflict) Unwrap() error { return e.Err }

// ErrRejected indicates the service refused the request for any other 4xx
// reason. Retrying the same request will not help.
type ErrRejected struct {
	Err error
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("request rejected: %v", e.Err)
}

func (e *ErrRejected) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates a 2xx response whose body could not be decoded.
type ErrInvalidResponse struct {
	Body []byte
	Err  error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrResponseTooLarge is returned when a successful response body exceeds
// the transport's limit. It is not retried.
var ErrResponseTooLarge = errors.New("response body too large")

// IsTransient reports whether err is a network, availability or rate-limit
// failure, as opposed to a refusal of the request itself.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	var un *ErrUnavailable
	var inv *ErrInvalidResponse
	return errors.As(err, &rl) || errors.As(err, &un) || errors.As(err, &inv)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ae *ErrAuth
	return errors.As(err, &ae)
}

// IsConflict reports whether err is a 409 conflict.
func IsConflict(err error) bool {
	var ce *ErrConflict
	return errors.As(err, &ce)
}
