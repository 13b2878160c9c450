package domain

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNetwork request failed to complete.
	ErrNetwork = errors.New("network error")
	// ErrInvalidResponse response could not be parsed into the expected shape.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidQuote quote price is non-finite or not positive.
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrAuthExpired backend rejected the session token signature.
	ErrAuthExpired = errors.New("session expired")
	// ErrBusy an operation of the same kind is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrSessionClosed the owning session was torn down.
	ErrSessionClosed = errors.New("session closed")
)

// ValidationError quantity/funds/holdings bounds violation.
type ValidationError struct {
	Kind ErrorKind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Kind)
}

// OrderRejectedError backend declined the order.
type OrderRejectedError struct {
	// Message server message, shown verbatim.
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Message)
}

// IsNetwork reports whether err should be displayed as a network failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrInvalidQuote)
}

// UserMessage maps an operation error to the text shown inline.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Kind.Message()
	}
	var rejectedErr *OrderRejectedError
	if errors.As(err, &rejectedErr) {
		return rejectedErr.Message
	}

	switch {
	case errors.Is(err, ErrAuthExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSessionClosed):
		return "Request cancelled."
	case IsNetwork(err):
		return "Network error, please try again."
	default:
		return err.Error()
	}
}
