package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Descriptor/build errors
	ErrInvalidDescriptor  = errors.New("invalid descriptor")
	ErrSourceUnavailable  = errors.New("capability source unavailable")
	ErrUnknownHandlerKind = errors.New("unknown handler kind")

	// Routing errors
	ErrRouteNotFound = errors.New("route not found")

	// Governance errors
	ErrGlobalLimitExceeded = errors.New("global request limit exceeded")
	ErrQuotaExceeded       = errors.New("client quota exceeded")

	// Store errors
	ErrKeyNotFound      = errors.New("key not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// Operation errors
	ErrTimeout          = errors.New("operation timeout")
	ErrConnectionFailed = errors.New("connection failed")
)

// GatewayError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type GatewayError struct {
	Op      string // Operation that failed (e.g., "registry.Build")
	Kind    string // Error kind (e.g., "descriptor", "store", "dispatch")
	Source  string // Optional origin of the entity involved (file, key, path)
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *GatewayError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.Source != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.Source, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(op, kind string, err error) *GatewayError {
	return &GatewayError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsGoverned reports whether an error represents a governance rejection
// rather than a fault.
func IsGoverned(err error) bool {
	return errors.Is(err, ErrGlobalLimitExceeded) ||
		errors.Is(err, ErrQuotaExceeded)
}

// IsRetryable checks if an error is retryable.
// Retryable errors are typically transient network or availability issues.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}
