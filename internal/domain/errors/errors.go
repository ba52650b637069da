package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrValidation             = errors.New("validation failed")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInvalidCart            = errors.New("invalid cart line")
	ErrAddressNotOwned        = errors.New("shipping address does not belong to user")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStateConflict          = errors.New("state changed concurrently")
	ErrRefundExceedsAmount    = errors.New("refund exceeds remaining refundable amount")
	ErrAmountMismatch         = errors.New("amount does not match order total")
	ErrUnsupportedMethod      = errors.New("unsupported payment method")
	ErrPaymentInProgress      = errors.New("payment in progress for order")
	ErrTotalMismatch          = errors.New("order totals are inconsistent")
)

// ValidationError rejects malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError constructs ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
