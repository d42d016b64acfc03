package domain

import "time"

// Rating score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is a consumer's score for a product, issued against the specific
// completed line item that earned the right to rate. A consumer rates a
// product at most once, regardless of how many orders contained it.
type Rating struct {
	ID         string    `json:"id"`
	ConsumerID string    `json:"consumer_id"`
	ProductID  string    `json:"product_id"`
	LineItemID string    `json:"line_item_id"`
	Score      int       `json:"score"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidScore reports whether the score is within [1,5].
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
