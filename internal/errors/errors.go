package errors

import (
	"errors"
	"fmt"
)

// Common error types for the carpool client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoSession        = errors.New("no session")

	// Backend errors
	ErrBackendState   = errors.New("backend returned a non-OK state")
	ErrBackendStatus  = errors.New("unexpected backend status code")
	ErrInvalidPayload = errors.New("invalid payload")

	// Login errors
	ErrLoginFailed  = errors.New("login failed")
	ErrGoogleFailed = errors.New("google login failed")

	// Realtime errors
	ErrHandshake = errors.New("handshake failed")

	// Worker errors
	ErrUnsupported   = errors.New("unsupported operation")
	ErrInstallFailed = errors.New("worker install failed")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Mark tags err with sentinel so both match errors.Is
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
