package domain

import "time"

// Consumer is a buyer. At most one of their orders is in created status at
// any time; that order is their cart.
type Consumer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
