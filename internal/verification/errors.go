package verification

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is bad caller input. No store or provider call was made.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidDateRange is the validation error for start_date after end_date.
	ErrInvalidDateRange = fmt.Errorf("%w: start_date must not be after end_date", ErrValidation)
	// ErrInvalidRequest is a callback missing its state or code.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound covers unknown, swept and never-verified records alike.
	ErrNotFound = errors.New("verification record not found")
	// ErrPersistence means the store failed. The caller may retry.
	ErrPersistence = errors.New("persistence failure")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
