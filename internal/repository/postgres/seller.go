package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// SellerRepository implements repository.SellerRepository using PostgreSQL.
type SellerRepository struct {
	db database.DBTX
}

// NewSellerRepository creates a PostgreSQL-backed seller repository.
func NewSellerRepository(db database.DBTX) *SellerRepository {
	return &SellerRepository{db: db}
}

// GetByID retrieves a seller by id, including its rating aggregate.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	query := `
		SELECT id, name, email, total_rating, rating_count, average_rating, created_at, updated_at
		FROM sellers
		WHERE id = $1`

	var s domain.Seller
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Rating.TotalRating,
		&s.Rating.RatingCount,
		&s.Rating.AverageRating,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("seller", id)
		}
		return nil, fmt.Errorf("scan seller: %w", err)
	}

	return &s, nil
}

// ApplyRatingDelta folds a rating delta into the seller aggregate, deriving
// the average from the updated total and count in the same statement.
func (r *SellerRepository) ApplyRatingDelta(ctx context.Context, id string, scoreDelta float64, countDelta int) error {
	query := `
		UPDATE sellers
		SET total_rating = total_rating + $1,
		    rating_count = rating_count + $2,
		    average_rating = CASE
		        WHEN rating_count + $2 > 0 THEN (total_rating + $1) / (rating_count + $2)
		        ELSE 0
		    END,
		    updated_at = now()
		WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, scoreDelta, countDelta, id)
	if err != nil {
		return fmt.Errorf("apply seller rating delta: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("seller", id)
	}

	return nil
}
