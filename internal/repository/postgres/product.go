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

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, seller_id, name, description, price, stock,
	total_rating, rating_count, average_rating, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Rating.TotalRating,
		&p.Rating.RatingCount,
		&p.Rating.AverageRating,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product listing.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, seller_id, name, description, price, stock,
			total_rating, rating_count, average_rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.SellerID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return p, nil
}

// GetForUpdate reads a product under a row lock. Callers must hold an open
// transaction; the lock serializes concurrent stock spenders on the row.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product for update: %w", err)
	}

	return p, nil
}

// ListBySeller returns a seller's products with the total count.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string, page, perPage int) ([]domain.Product, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT ` + productColumns + `, count(*) OVER() AS total_count
		FROM products
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.SellerID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.Rating.TotalRating,
			&p.Rating.RatingCount,
			&p.Rating.AverageRating,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// UpdateListing rewrites the mutable listing fields.
func (r *ProductRepository) UpdateListing(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query, p.Name, p.Description, p.Price, p.Stock, time.Now().UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// DecrementStock spends stock. The WHERE guard keeps stock non-negative even
// if the caller's availability check was stale; a zero row count then
// surfaces as a conflict rather than silent oversell.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = now()
		WHERE id = $2 AND stock >= $1`

	ct, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Conflict("stock changed concurrently for product " + id)
	}

	return nil
}

// AddStock restocks a product.
func (r *ProductRepository) AddStock(ctx context.Context, id string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// ApplyRatingDelta folds a rating delta into the product aggregate.
func (r *ProductRepository) ApplyRatingDelta(ctx context.Context, id string, scoreDelta float64, countDelta int) error {
	query := `
		UPDATE products
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
		return fmt.Errorf("apply product rating delta: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// Delete removes a product listing.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}
