package domain

import "time"

// Seller owns products. Its rating aggregate spans every rating issued
// against any of its products.
type Seller struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Rating    RatingAggregate `json:"rating"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
