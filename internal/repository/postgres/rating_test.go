package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

func TestRatingRepository_ExistsForConsumerProduct(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewRatingRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("consumer-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForConsumerProduct(context.Background(), "consumer-1", "prod-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRatingRepository_Delete_NotFound(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewRatingRepository(mock)

	mock.ExpectExec(`DELETE FROM ratings WHERE id = \$1`).
		WithArgs("rating-x").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "rating-x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSellerRepository_ApplyRatingDelta(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewSellerRepository(mock)

	mock.ExpectExec(`UPDATE sellers\s+SET total_rating = total_rating \+ \$1`).
		WithArgs(-3.0, -1, "seller-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ApplyRatingDelta(context.Background(), "seller-1", -3, -1))
}
