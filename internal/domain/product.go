package domain

import "time"

// Product is a seller's listing. Price is the current unit price in minor
// currency units. Stock never goes negative; only order placement spends it.
// The rating aggregate fields are written exclusively through rating
// operations.
type Product struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       int64           `json:"price"`
	Stock       int             `json:"stock"`
	Rating      RatingAggregate `json:"rating"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RatingAggregate is the incrementally maintained (total, count, average)
// triple kept on products and sellers.
type RatingAggregate struct {
	TotalRating   float64 `json:"total_rating"`
	RatingCount   int     `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`
}

// Apply folds a delta into the aggregate. The average is derived from the
// updated total and count, zero when no ratings remain.
func (ra *RatingAggregate) Apply(scoreDelta float64, countDelta int) {
	ra.TotalRating += scoreDelta
	ra.RatingCount += countDelta
	if ra.RatingCount > 0 {
		ra.AverageRating = ra.TotalRating / float64(ra.RatingCount)
	} else {
		ra.AverageRating = 0
	}
}
