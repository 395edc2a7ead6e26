package types

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Predefined errors
var (
	// ErrUnknownTarget indicates the target has no routing entry
	ErrUnknownTarget = errors.New("target not configured")

	// ErrNoViablePath indicates the target resolves to zero attempt nodes
	ErrNoViablePath = errors.New("no usable credential/provider combination")

	// ErrInvalidInput indicates invalid input
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigurationError is returned before any adapter call when a target
// cannot be turned into a pipeline.
type ConfigurationError struct {
	// Target is the requested target identifier
	Target string

	// Cause is ErrUnknownTarget or ErrNoViablePath
	Cause error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for target %q: %v", e.Target, e.Cause)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(target string, cause error) *ConfigurationError {
	return &ConfigurationError{Target: target, Cause: cause}
}

// ExhaustionError reports that every node of a pipeline failed.
type ExhaustionError struct {
	// Target is the requested target identifier
	Target string

	// NodesAttempted is the number of nodes tried, equal to the pipeline length
	NodesAttempted int

	// LastNode identifies the final node that failed
	LastNode NodeID

	// LastFailure is the error of the final node
	LastFailure error

	// Failures combines every node failure in pipeline order
	Failures error
}

// Error implements the error interface
func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("target %q exhausted after %d nodes, last node %s: %v",
		e.Target, e.NodesAttempted, e.LastNode, e.LastFailure)
}

// Unwrap returns the last node failure
func (e *ExhaustionError) Unwrap() error {
	return e.LastFailure
}

// NodeFailures returns the individual node failures in pipeline order
func (e *ExhaustionError) NodeFailures() []error {
	return multierr.Errors(e.Failures)
}

// CancelledError reports that the caller's context ended mid-execution.
type CancelledError struct {
	// Target is the requested target identifier
	Target string

	// NodesAttempted counts nodes started before cancellation, including the interrupted one
	NodesAttempted int

	// Cause is the context error
	Cause error
}

// Error implements the error interface
func (e *CancelledError) Error() string {
	return fmt.Sprintf("execution for target %q cancelled after %d nodes: %v", e.Target, e.NodesAttempted, e.Cause)
}

// Unwrap returns the context error so errors.Is(err, context.Canceled) holds
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// NewCancelledError creates a cancellation error from a context error
func NewCancelledError(target string, nodes int, cause error) *CancelledError {
	if cause == nil {
		cause = context.Canceled
	}
	return &CancelledError{Target: target, NodesAttempted: nodes, Cause: cause}
}

// AdapterError is the error a provider adapter reports for a failed call.
type AdapterError struct {
	// Err is the underlying error
	Err error

	// Retryable indicates whether the error is transient
	Retryable bool

	// StatusCode is the provider status code, zero when not applicable
	StatusCode int

	// RetryAfter is the provider's suggested retry delay
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable
func Transient(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Err: err, Retryable: true, StatusCode: statusCode}
}

// Permanent marks err as non-retryable
func Permanent(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Err: err, Retryable: false, StatusCode: statusCode}
}

// AsAdapterError extracts an AdapterError from the chain
func AsAdapterError(err error) (*AdapterError, bool) {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr, true
	}
	return nil, false
}

// IsRetryable checks if an error is explicitly marked retryable
func IsRetryable(err error) bool {
	if adapterErr, ok := AsAdapterError(err); ok {
		return adapterErr.Retryable
	}
	return false
}

// GetRetryDelay returns the suggested retry delay
func GetRetryDelay(err error) time.Duration {
	if adapterErr, ok := AsAdapterError(err); ok {
		return adapterErr.RetryAfter
	}
	return 0
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsExhausted reports whether err is an ExhaustionError
func IsExhausted(err error) bool {
	var exhErr *ExhaustionError
	return errors.As(err, &exhErr)
}

// IsCancelled reports whether err is a CancelledError
func IsCancelled(err error) bool {
	var cancelErr *CancelledError
	return errors.As(err, &cancelErr)
}
