package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/repository"
	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// pgerrUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgerrUniqueViolation = "23505"

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order. Line items are inserted separately through the
// line item repository within the caller's transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, consumer_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		o.ID, o.ConsumerID, o.Status, o.TotalAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return apperrors.AlreadyExists("open cart already exists for consumer " + o.ConsumerID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by id, eagerly loading its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, consumer_id, status, total_amount, shipping, created_at, placed_at, updated_at
		FROM orders
		WHERE id = $1`

	o, err := r.scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}

	return o, nil
}

// GetForUpdate reads the order with a row lock held for the rest of the
// transaction. Line items are not loaded; callers locking an order care about
// its status, not its contents.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, consumer_id, status, total_amount, shipping, created_at, placed_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE`

	o, err := r.scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order for update: %w", err)
	}

	return o, nil
}

// GetCart returns the consumer's open order with its line items.
func (r *OrderRepository) GetCart(ctx context.Context, consumerID string) (*domain.Order, error) {
	query := `
		SELECT id, consumer_id, status, total_amount, shipping, created_at, placed_at, updated_at
		FROM orders
		WHERE consumer_id = $1 AND status = $2`

	o, err := r.scanOrder(r.db.QueryRow(ctx, query, consumerID, domain.OrderStatusCreated))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart for consumer", consumerID)
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}

	return o, nil
}

// GetCartForUpdate returns the consumer's open order with its line items,
// holding a row lock on the order for the rest of the transaction. The items
// are read after the lock is acquired, so they include lines committed by a
// transaction this one had to wait for.
func (r *OrderRepository) GetCartForUpdate(ctx context.Context, consumerID string) (*domain.Order, error) {
	query := `
		SELECT id, consumer_id, status, total_amount, shipping, created_at, placed_at, updated_at
		FROM orders
		WHERE consumer_id = $1 AND status = $2
		FOR UPDATE`

	o, err := r.scanOrder(r.db.QueryRow(ctx, query, consumerID, domain.OrderStatusCreated))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart for consumer", consumerID)
		}
		return nil, fmt.Errorf("scan cart for update: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}

	return o, nil
}

// List returns orders matching the filter with the total count. A SellerID
// filter selects orders containing at least one of the seller's products.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ConsumerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.consumer_id = $%d", argIndex))
		args = append(args, *filter.ConsumerID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.SellerID != nil {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM line_items li
			JOIN products p ON p.id = li.product_id
			WHERE li.order_id = o.id AND p.seller_id = $%d)`, argIndex))
		args = append(args, *filter.SellerID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.consumer_id, o.status, o.total_amount, o.shipping,
		       o.created_at, o.placed_at, o.updated_at,
		       count(*) OVER() AS total_count
		FROM orders o
		%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)
		if err := rows.Scan(
			&o.ID, &o.ConsumerID, &o.Status, &o.TotalAmount, &shippingJSON,
			&o.CreatedAt, &o.PlacedAt, &o.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if err := unmarshalShipping(shippingJSON, &o); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load line items to avoid N+1 queries.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		items, err := r.loadItemsForOrders(ctx, orderIDs)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			if lines, ok := items[orders[i].ID]; ok {
				orders[i].Items = lines
			} else {
				orders[i].Items = []domain.LineItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus moves the order from one status to another as a compare-and-
// set: the write only lands while the order is still in fromStatus, so a
// stale caller racing another transition cannot regress the lifecycle.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, fromStatus, toStatus string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`

	ct, err := r.db.Exec(ctx, query, toStatus, time.Now().UTC(), id, fromStatus)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.InvalidState(
			fmt.Sprintf("order %s is no longer %s", id, fromStatus))
	}

	return nil
}

// MarkPlaced stamps shipping, placement time, and the placed status.
func (r *OrderRepository) MarkPlaced(ctx context.Context, id string, shipping *domain.Shipping) error {
	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return fmt.Errorf("marshal shipping: %w", err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE orders
		SET status = $1, shipping = $2, placed_at = $3, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, domain.OrderStatusPlaced, shippingJSON, now, id)
	if err != nil {
		return fmt.Errorf("mark order placed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// UpdateTotal rewrites the order total.
func (r *OrderRepository) UpdateTotal(ctx context.Context, id string, total int64) error {
	query := `
		UPDATE orders
		SET total_amount = $1, updated_at = now()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, total, id)
	if err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// AdjustTotal adds delta to the order total.
func (r *OrderRepository) AdjustTotal(ctx context.Context, id string, delta int64) error {
	query := `
		UPDATE orders
		SET total_amount = total_amount + $1, updated_at = now()
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust order total: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// Delete removes the order; line items cascade at the schema level.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		shippingJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.ConsumerID, &o.Status, &o.TotalAmount, &shippingJSON,
		&o.CreatedAt, &o.PlacedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalShipping(shippingJSON, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func unmarshalShipping(raw []byte, o *domain.Order) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s domain.Shipping
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("unmarshal shipping: %w", err)
	}
	o.Shipping = &s
	return nil
}

const lineItemJoin = `
	SELECT li.id, li.order_id, li.product_id, p.seller_id, p.name,
	       li.quantity, li.line_subtotal, li.rated, li.change_note,
	       li.created_at, li.updated_at
	FROM line_items li
	JOIN products p ON p.id = li.product_id`

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := r.db.Query(ctx, lineItemJoin+` WHERE li.order_id = $1 ORDER BY li.created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
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
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}

	return items, nil
}

func (r *OrderRepository) loadItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	rows, err := r.db.Query(ctx, lineItemJoin+` WHERE li.order_id = ANY($1) ORDER BY li.created_at`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("batch load line items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		byOrder[li.OrderID] = append(byOrder[li.OrderID], *li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch line item rows: %w", err)
	}

	return byOrder, nil
}
