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

// LineItemRepository implements repository.LineItemRepository using PostgreSQL.
type LineItemRepository struct {
	db database.DBTX
}

// NewLineItemRepository creates a PostgreSQL-backed line item repository.
func NewLineItemRepository(db database.DBTX) *LineItemRepository {
	return &LineItemRepository{db: db}
}

func scanLineItem(row pgx.Row) (*domain.LineItem, error) {
	var (
		li         domain.LineItem
		changeNote *string
	)
	err := row.Scan(
		&li.ID,
		&li.OrderID,
		&li.ProductID,
		&li.SellerID,
		&li.ProductName,
		&li.Quantity,
		&li.LineSubtotal,
		&li.Rated,
		&changeNote,
		&li.CreatedAt,
		&li.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan line item: %w", err)
	}
	if changeNote != nil {
		li.ChangeNote = *changeNote
	}
	return &li, nil
}

// Create inserts a new line item.
func (r *LineItemRepository) Create(ctx context.Context, li *domain.LineItem) error {
	query := `
		INSERT INTO line_items (id, order_id, product_id, quantity, line_subtotal, rated, change_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`

	_, err := r.db.Exec(ctx, query,
		li.ID, li.OrderID, li.ProductID, li.Quantity, li.LineSubtotal,
		li.Rated, li.ChangeNote, li.CreatedAt, li.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}

	return nil
}

// GetByID retrieves a line item by id with its product's seller and name.
func (r *LineItemRepository) GetByID(ctx context.Context, id string) (*domain.LineItem, error) {
	li, err := scanLineItem(r.db.QueryRow(ctx, lineItemJoin+` WHERE li.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("line item", id)
		}
		return nil, err
	}

	return li, nil
}

// UpdateLine rewrites quantity, subtotal, and change note.
func (r *LineItemRepository) UpdateLine(ctx context.Context, li *domain.LineItem) error {
	query := `
		UPDATE line_items
		SET quantity = $1, line_subtotal = $2, change_note = NULLIF($3, ''), updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query,
		li.Quantity, li.LineSubtotal, li.ChangeNote, time.Now().UTC(), li.ID,
	)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("line item", li.ID)
	}

	return nil
}

// Delete removes a line item.
func (r *LineItemRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM line_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("line item", id)
	}

	return nil
}

// ListOpenByProduct returns lines for the product whose owning orders are
// still open. The listing is a snapshot; callers re-check each line's order
// under a row lock before mutating it.
func (r *LineItemRepository) ListOpenByProduct(ctx context.Context, productID string) ([]domain.LineItem, error) {
	query := lineItemJoin + `
		JOIN orders o ON o.id = li.order_id
		WHERE li.product_id = $1 AND o.status = $2
		ORDER BY li.created_at`

	rows, err := r.db.Query(ctx, query, productID, domain.OrderStatusCreated)
	if err != nil {
		return nil, fmt.Errorf("list open line items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open line item rows: %w", err)
	}

	return items, nil
}

// ClearChangeNotes blanks the change note on every line of the order.
func (r *LineItemRepository) ClearChangeNotes(ctx context.Context, orderID string) error {
	query := `
		UPDATE line_items
		SET change_note = NULL, updated_at = now()
		WHERE order_id = $1 AND change_note IS NOT NULL`

	if _, err := r.db.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("clear change notes: %w", err)
	}

	return nil
}

// SetRated flips the rated flag on a single line.
func (r *LineItemRepository) SetRated(ctx context.Context, id string, rated bool) error {
	query := `
		UPDATE line_items
		SET rated = $1, updated_at = now()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, rated, id)
	if err != nil {
		return fmt.Errorf("set line item rated: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("line item", id)
	}

	return nil
}

// ClearRatedForConsumerProduct resets the rated flag on every line the
// consumer bought of the product, across all of their orders.
func (r *LineItemRepository) ClearRatedForConsumerProduct(ctx context.Context, consumerID, productID string) error {
	query := `
		UPDATE line_items li
		SET rated = FALSE, updated_at = now()
		FROM orders o
		WHERE o.id = li.order_id
		  AND o.consumer_id = $1
		  AND li.product_id = $2
		  AND li.rated = TRUE`

	if _, err := r.db.Exec(ctx, query, consumerID, productID); err != nil {
		return fmt.Errorf("clear rated flags: %w", err)
	}

	return nil
}
