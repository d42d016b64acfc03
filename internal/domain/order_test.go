package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_LifecycleIsMonotonic(t *testing.T) {
	tests := []struct {
		from   string
		to     string
		wantOK bool
	}{
		{OrderStatusCreated, OrderStatusPlaced, true},
		{OrderStatusPlaced, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},

		{OrderStatusCreated, OrderStatusDelivered, false},
		{OrderStatusCreated, OrderStatusCompleted, false},
		{OrderStatusPlaced, OrderStatusCreated, false},
		{OrderStatusPlaced, OrderStatusCompleted, false},
		{OrderStatusDelivered, OrderStatusPlaced, false},
		{OrderStatusCompleted, OrderStatusDelivered, false},
		{OrderStatusCompleted, OrderStatusCreated, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.wantOK, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRecomputeTotal_SumsLineSubtotals(t *testing.T) {
	o := &Order{
		TotalAmount: 999,
		Items: []LineItem{
			{LineSubtotal: 3000},
			{LineSubtotal: 1250},
		},
	}
	o.RecomputeTotal()
	assert.Equal(t, int64(4250), o.TotalAmount)

	empty := &Order{TotalAmount: 500}
	empty.RecomputeTotal()
	assert.Zero(t, empty.TotalAmount)
}

func TestContainsProductOf(t *testing.T) {
	o := &Order{Items: []LineItem{
		{SellerID: "seller-a"},
		{SellerID: "seller-b"},
	}}

	assert.True(t, o.ContainsProductOf("seller-b"))
	assert.False(t, o.ContainsProductOf("seller-z"))
}
