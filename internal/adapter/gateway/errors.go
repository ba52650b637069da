package gateway

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the provider replied with an unreadable body.
var ErrMalformedResponse = errors.New("malformed gateway response")

// TransientError wraps network failures, timeouts and provider 5xx replies.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient gateway error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError reports that no usable provider credential could be obtained.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gateway auth error: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsRetryable reports whether a bounded retry may succeed.
func IsRetryable(err error) bool {
	var transient *TransientError
	var auth *AuthError
	return errors.As(err, &transient) || errors.As(err, &auth)
}

// StatusError is a non-retryable HTTP reply outside the adapter's expected set.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected gateway status %d: %s", e.Op, e.Status, e.Body)
}
