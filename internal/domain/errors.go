package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrServiceNotFound = fmt.Errorf("service %w", ErrNotFound)
	ErrStaffNotFound   = fmt.Errorf("staff %w", ErrNotFound)

	ErrSlotTaken           = fmt.Errorf("%w: time slot already booked", ErrConflict)
	ErrSlotUnavailable     = fmt.Errorf("%w: time slot not available", ErrConflict)
	ErrIdempotencyConflict = fmt.Errorf("%w: idempotency key reused with different request", ErrConflict)

	ErrInvalidRange               error = &ValidationError{msg: "start time must be before end time"}
	ErrStaffDoesNotProvideService error = &ValidationError{msg: "staff does not provide this service"}
)

// ValidationError reports malformed or inconsistent input. It is always
// raised before the store is touched.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func Invalid(msg string) error {
	return &ValidationError{msg: msg}
}

// InvalidStateError records the status an operation was attempted from.
type InvalidStateError struct {
	Op   string
	From Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %s", e.Op, e.From)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}
