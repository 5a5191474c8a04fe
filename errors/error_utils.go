// Package errors provides the coded error type used throughout minichain.
package errors

import (
	"context"
	"errors"
)

// IsRetryableError determines if an error is transient and the operation could be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_SERVICE_UNAVAILABLE,
			ERR_STORAGE_UNAVAILABLE:
			return true
		}
	}

	return false
}

// IsValidationError reports whether err was raised while validating user input or chain data,
// before anything was written.
func IsValidationError(err error) bool {
	var tErr *Error
	if !As(err, &tErr) {
		return false
	}

	switch tErr.Code() {
	case ERR_TX_INVALID,
		ERR_TX_INVALID_DOUBLE_SPEND,
		ERR_INSUFFICIENT_FUNDS,
		ERR_INVALID_ADDRESS,
		ERR_INVALID_ARGUMENT:
		return true
	}

	return false
}
