package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := NotFound("order", "order-42")

	assert.Equal(t, "NOT_FOUND: order with id order-42 not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAppError_RendersRealCauseOnly(t *testing.T) {
	// A category sentinel restates the code and stays out of the message; a
	// genuine cause is appended.
	assert.Equal(t, "INVALID_STATE: cart is empty", InvalidState("cart is empty").Error())

	internal := Internal(errors.New("connection reset"))
	assert.Equal(t, "INTERNAL_ERROR: an internal error occurred: connection reset", internal.Error())
}

func TestAppError_WrappedThroughFmt(t *testing.T) {
	inner := InvalidState("order is not in PLACED status")
	wrapped := fmt.Errorf("mark delivered: %w", inner)

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "INVALID_STATE", appErr.Code)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
}

func TestInsufficientStock_CarriesAllShortages(t *testing.T) {
	err := InsufficientStock([]Shortage{
		{ProductID: "prod-1", Requested: 5, Available: 2},
		{ProductID: "prod-2", Requested: 1, Available: 0},
	})

	assert.Len(t, err.Shortages, 2)
	assert.Contains(t, err.Message, "product prod-1: requested 5, available 2")
	assert.Contains(t, err.Message, "product prod-2: requested 1, available 0")
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", NotFound("product", "p1"), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("get: %w", Unauthorized("not your order")), http.StatusForbidden},
		{"sentinel not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"sentinel conflict", ErrConflict, http.StatusConflict},
		{"sentinel insufficient stock", ErrInsufficientStock, http.StatusConflict},
		{"sentinel invalid state", ErrInvalidState, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
