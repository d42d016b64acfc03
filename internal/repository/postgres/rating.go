package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// RatingRepository implements repository.RatingRepository using PostgreSQL.
type RatingRepository struct {
	db database.DBTX
}

// NewRatingRepository creates a PostgreSQL-backed rating repository.
func NewRatingRepository(db database.DBTX) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a new rating. The unique (consumer_id, product_id) index
// backs up the service-level uniqueness check.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, consumer_id, product_id, line_item_id, score, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		rating.ID, rating.ConsumerID, rating.ProductID, rating.LineItemID,
		rating.Score, rating.Comment, rating.CreatedAt, rating.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}

	return nil
}

// GetByID retrieves a rating by id.
func (r *RatingRepository) GetByID(ctx context.Context, id string) (*domain.Rating, error) {
	query := `
		SELECT id, consumer_id, product_id, line_item_id, score, comment, created_at, updated_at
		FROM ratings
		WHERE id = $1`

	var rating domain.Rating
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rating.ID, &rating.ConsumerID, &rating.ProductID, &rating.LineItemID,
		&rating.Score, &rating.Comment, &rating.CreatedAt, &rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("rating", id)
		}
		return nil, fmt.Errorf("scan rating: %w", err)
	}

	return &rating, nil
}

// Update rewrites score and comment.
func (r *RatingRepository) Update(ctx context.Context, rating *domain.Rating) error {
	query := `
		UPDATE ratings
		SET score = $1, comment = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, rating.Score, rating.Comment, time.Now().UTC(), rating.ID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("rating", rating.ID)
	}

	return nil
}

// Delete removes a rating.
func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("rating", id)
	}

	return nil
}

// ExistsForConsumerProduct reports whether the consumer has ever rated the
// product, regardless of which order it came from.
func (r *RatingRepository) ExistsForConsumerProduct(ctx context.Context, consumerID, productID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ratings WHERE consumer_id = $1 AND product_id = $2
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, consumerID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check rating existence: %w", err)
	}

	return exists, nil
}

// ListByProduct returns a product's ratings with the total count.
func (r *RatingRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error) {
	query := `
		SELECT id, consumer_id, product_id, line_item_id, score, comment, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM ratings
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, productID, page, perPage)
}

// ListByConsumer returns every rating the consumer has issued.
func (r *RatingRepository) ListByConsumer(ctx context.Context, consumerID string, page, perPage int) ([]domain.Rating, int, error) {
	query := `
		SELECT id, consumer_id, product_id, line_item_id, score, comment, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM ratings
		WHERE consumer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, consumerID, page, perPage)
}

func (r *RatingRepository) list(ctx context.Context, query, key string, page, perPage int) ([]domain.Rating, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	rows, err := r.db.Query(ctx, query, key, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var totalCount int
	ratings := make([]domain.Rating, 0)

	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(
			&rating.ID, &rating.ConsumerID, &rating.ProductID, &rating.LineItemID,
			&rating.Score, &rating.Comment, &rating.CreatedAt, &rating.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rating rows: %w", err)
	}

	return ratings, totalCount, nil
}
