package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(addItemRequest{ProductID: "nope", Quantity: -1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	// Field errors are keyed by json tag, matching the request payload.
	fields := valErr.Fields()
	assert.Contains(t, fields, "product_id")
	assert.Contains(t, fields, "quantity")
	assert.Equal(t, "must be a valid UUID", fields["product_id"])
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"product_id":"0d4ff149-6f13-41ce-8c0b-0ad1c2c3d5e6","quantity":3}`
	req := httptest.NewRequest("POST", "/cart/items", strings.NewReader(body))

	var dst addItemRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, 3, dst.Quantity)

	req = httptest.NewRequest("POST", "/cart/items", strings.NewReader("{broken"))
	assert.Error(t, DecodeAndValidate(req, &dst))
}
