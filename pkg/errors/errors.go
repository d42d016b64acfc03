package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the failure categories the engine reports.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal error")
)

// Shortage describes one product that could not satisfy a requested quantity.
type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// AppError is a structured application error with HTTP status mapping.
// Shortages is populated only for insufficient-stock failures and carries
// every violating product, not just the first.
type AppError struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Status    int        `json:"-"`
	Err       error      `json:"-"`
	Shortages []Shortage `json:"shortages,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil && !isCategorySentinel(e.Err) {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// isCategorySentinel reports whether err is one of the package sentinels,
// which only restate the Code and add nothing to the rendered message.
func isCategorySentinel(err error) bool {
	switch err {
	case ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrInvalidState, ErrInsufficientStock, ErrConflict, ErrInternal:
		return true
	default:
		return false
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for an absent entity.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error for a uniqueness violation.
func AlreadyExists(message string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 403 error for an actor lacking the required relation
// to the entity (not the order's consumer, not a seller of any item, ...).
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrUnauthorized,
	}
}

// InvalidState creates a 422 error for a state-machine precondition violation.
func InvalidState(message string) *AppError {
	return &AppError{
		Code:    "INVALID_STATE",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidState,
	}
}

// InsufficientStock creates a 409 error listing every product whose stock
// could not cover the request.
func InsufficientStock(shortages []Shortage) *AppError {
	parts := make([]string, len(shortages))
	for i, s := range shortages {
		parts[i] = fmt.Sprintf("product %s: requested %d, available %d", s.ProductID, s.Requested, s.Available)
	}
	return &AppError{
		Code:      "INSUFFICIENT_STOCK",
		Message:   strings.Join(parts, "; "),
		Status:    http.StatusConflict,
		Err:       ErrInsufficientStock,
		Shortages: shortages,
	}
}

// Conflict creates a 409 error for a transient serialization conflict that
// survived the coordinator's retries.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// IsNotFound reports whether the error marks an absent entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
