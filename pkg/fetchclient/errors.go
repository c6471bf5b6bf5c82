package fetchclient

import (
	"errors"
	"fmt"

	"github.com/bipard/healthfetch/pkg/datekey"
)

// Sentinel errors classifying endpoint call failures.
var (
	// ErrTransient indicates a failure worth retrying (5xx, timeout,
	// connection reset, upstream throttling).
	ErrTransient = errors.New("transient endpoint failure")

	// ErrPermanent indicates a failure that retrying cannot fix
	// (4xx other than 401/429).
	ErrPermanent = errors.New("permanent endpoint failure")

	// ErrUnauthorized indicates the bearer token was rejected even after
	// re-authentication.
	ErrUnauthorized = errors.New("authentication rejected")

	// ErrMalformedPayload indicates the endpoint answered 200 with a body
	// that is not the expected JSON shape.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrTokenUnavailable indicates the token endpoint did not yield a token.
	ErrTokenUnavailable = errors.New("token unavailable")
)

// CallError wraps an endpoint call failure with its context.
type CallError struct {
	Endpoint string
	Date     datekey.Key
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Endpoint, e.Date, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// IsTransient returns true if the error was a retryable endpoint failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent returns true if the error was a non-retryable endpoint failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMalformedPayload)
}
