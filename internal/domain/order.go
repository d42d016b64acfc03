package domain

import "time"

// Order status constants. The lifecycle is strictly monotonic: created →
// placed → delivered → completed, with no skips and no regressions. An order
// in created status is the consumer's open cart.
const (
	OrderStatusCreated   = "created"
	OrderStatusPlaced    = "placed"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
)

// Order represents a consumer order. While status is created the order acts
// as the cart; at most one created order exists per consumer.
type Order struct {
	ID          string     `json:"id"`
	ConsumerID  string     `json:"consumer_id"`
	Status      string     `json:"status"`
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	Shipping    *Shipping  `json:"shipping,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	PlacedAt    *time.Time `json:"placed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Shipping holds delivery details stamped at placement.
type Shipping struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Phone       string `json:"phone,omitempty"`
}

// ValidStatuses returns all order statuses in lifecycle order.
func ValidStatuses() []string {
	return []string{
		OrderStatusCreated,
		OrderStatusPlaced,
		OrderStatusDelivered,
		OrderStatusCompleted,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusCreated:   {OrderStatusPlaced},
		OrderStatusPlaced:    {OrderStatusDelivered},
		OrderStatusDelivered: {OrderStatusCompleted},
		OrderStatusCompleted: {},
	}
}

// CanTransitionTo checks whether the order may move to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order is still a mutable cart.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusCreated
}

// RecomputeTotal sets TotalAmount to the sum of all line subtotals.
func (o *Order) RecomputeTotal() {
	var total int64
	for _, item := range o.Items {
		total += item.LineSubtotal
	}
	o.TotalAmount = total
}

// ContainsProductOf reports whether any line item references a product owned
// by the given seller.
func (o *Order) ContainsProductOf(sellerID string) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
