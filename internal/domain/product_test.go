package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingAggregate_Apply(t *testing.T) {
	var agg RatingAggregate

	agg.Apply(5, 1)
	assert.Equal(t, float64(5), agg.TotalRating)
	assert.Equal(t, 1, agg.RatingCount)
	assert.Equal(t, float64(5), agg.AverageRating)

	agg.Apply(3, 1)
	assert.InDelta(t, 4.0, agg.AverageRating, 1e-9)

	// Update: score 3 -> 4, no count change.
	agg.Apply(1, 0)
	assert.InDelta(t, 4.5, agg.AverageRating, 1e-9)

	// Delete both.
	agg.Apply(-4, -1)
	agg.Apply(-5, -1)
	assert.Zero(t, agg.RatingCount)
	assert.Zero(t, agg.AverageRating)
	assert.Zero(t, agg.TotalRating)
}

func TestRatingAggregate_IncrementalMatchesRecomputation(t *testing.T) {
	scores := []int{5, 3, 4, 1, 2, 5, 4}

	var agg RatingAggregate
	var total float64
	for _, s := range scores {
		agg.Apply(float64(s), 1)
		total += float64(s)
	}

	assert.InDelta(t, total/float64(len(scores)), agg.AverageRating, 1e-9)
}

func TestValidScore(t *testing.T) {
	assert.True(t, ValidScore(1))
	assert.True(t, ValidScore(5))
	assert.False(t, ValidScore(0))
	assert.False(t, ValidScore(6))
}
