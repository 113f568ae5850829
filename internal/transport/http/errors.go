package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"queuesmart/backend/internal/domain"
)

// APIError is the body of every failed response:
// {"error":{"code":"...","message":"..."}}.
type APIError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: status}
}

func badRequest(message string) error {
	return newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", message)
}

func unauthorized(message string) error {
	return newAPIError(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// toAPIError classifies domain errors. Anything unrecognized becomes a 500
// whose cause is kept for logging only.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
		return newAPIError(fiberErr.Code, code, fiberErr.Message)
	}

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", vErr.Error())
	case errors.Is(err, domain.ErrForbidden):
		return newAPIError(http.StatusForbidden, "FORBIDDEN", "not allowed for this role")
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrSlotTaken):
		return newAPIError(http.StatusConflict, "SLOT_TAKEN", "That time slot is already booked. Pick a different slot.")
	case errors.Is(err, domain.ErrSlotUnavailable):
		return newAPIError(http.StatusConflict, "SLOT_UNAVAILABLE", "That time slot is not offered by this staff member.")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return newAPIError(http.StatusConflict, "IDEMPOTENCY_CONFLICT", "This request key was already used for a different appointment.")
	case errors.Is(err, domain.ErrConflict):
		return newAPIError(http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return newAPIError(http.StatusUnprocessableEntity, "INVALID_STATE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: "TIMEOUT", Message: "request timed out", HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}
	return &APIError{Code: "INTERNAL_ERROR", Message: "internal server error", HTTPStatus: http.StatusInternalServerError, Err: err}
}
