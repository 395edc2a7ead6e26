// Package errors classifies adapter failures and records per-node failure chains
package errors

import (
	"context"
	"errors"

	"github.com/jzx17/gofallback/pkg/types"
)

// Class is the retry classification of an error
type Class int

const (
	// ClassNone is used for a nil error
	ClassNone Class = iota
	// ClassTransient errors are retried by the attempt node
	ClassTransient
	// ClassPermanent errors fail the node at once
	ClassPermanent
	// ClassCancelled errors come from the caller's context
	ClassCancelled
)

// String returns the string representation of the class
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Classify decides how an attempt node treats err.
//
// Explicit adapter markings win. Errors exposing Timeout() or Temporary()
// are classified by them. context.Canceled is a cancellation. Anything
// else is treated as transient.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	if adapterErr, ok := types.AsAdapterError(err); ok {
		if adapterErr.Retryable {
			return ClassTransient
		}
		return ClassPermanent
	}

	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}

	// a deadline from the adapter's own per-call timeout is transient;
	// the caller's deadline is detected on the caller's context instead
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ClassTransient
	}

	var tempErr interface{ Temporary() bool }
	if errors.As(err, &tempErr) {
		if tempErr.Temporary() {
			return ClassTransient
		}
		return ClassPermanent
	}

	return ClassTransient
}

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
