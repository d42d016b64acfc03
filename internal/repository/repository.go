package repository

import (
	"context"

	"github.com/fieldmarket/marketplace/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	ConsumerID *string
	SellerID   *string
	Status     *string
	Page       int
	PerPage    int
}

// ConsumerRepository provides read access to consumer identities.
type ConsumerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Consumer, error)
}

// SellerRepository persists sellers and their rating aggregates.
type SellerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Seller, error)

	// ApplyRatingDelta folds (scoreDelta, countDelta) into the seller's
	// aggregate in a single statement, deriving the average in place.
	ApplyRatingDelta(ctx context.Context, id string, scoreDelta float64, countDelta int) error
}

// ProductRepository persists products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetForUpdate reads the product with a row lock, for use inside a
	// transaction that will decrement stock.
	GetForUpdate(ctx context.Context, id string) (*domain.Product, error)

	ListBySeller(ctx context.Context, sellerID string, page, perPage int) ([]domain.Product, int, error)

	// UpdateListing rewrites name, description, price, and stock.
	UpdateListing(ctx context.Context, p *domain.Product) error

	// DecrementStock spends stock. The statement guards against going
	// negative; callers must have validated availability under lock.
	DecrementStock(ctx context.Context, id string, quantity int) error

	// AddStock restocks without touching price or listing fields.
	AddStock(ctx context.Context, id string, quantity int) error

	ApplyRatingDelta(ctx context.Context, id string, scoreDelta float64, countDelta int) error

	Delete(ctx context.Context, id string) error
}

// OrderRepository persists orders. Line items are loaded eagerly.
type OrderRepository interface {
	// Create inserts a new order. Inserting a second open cart for the same
	// consumer fails with ErrAlreadyExists.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetForUpdate reads the order under a row lock, for use inside a
	// transaction; line items are not loaded.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// GetCart returns the consumer's single open order, or ErrNotFound.
	GetCart(ctx context.Context, consumerID string) (*domain.Order, error)

	// GetCartForUpdate is GetCart with a row lock on the order, for use
	// inside a transaction that will mutate the cart.
	GetCartForUpdate(ctx context.Context, consumerID string) (*domain.Order, error)

	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus moves the order from one status to another. The write is
	// conditional on the order still being in fromStatus; a stale transition
	// fails with InvalidState instead of regressing the lifecycle.
	UpdateStatus(ctx context.Context, id, fromStatus, toStatus string) error

	// MarkPlaced stamps shipping details, the placement time, and the
	// placed status in one statement.
	MarkPlaced(ctx context.Context, id string, shipping *domain.Shipping) error

	// UpdateTotal rewrites the order total.
	UpdateTotal(ctx context.Context, id string, total int64) error

	// AdjustTotal adds delta to the order total.
	AdjustTotal(ctx context.Context, id string, delta int64) error

	// Delete removes the order; line items cascade.
	Delete(ctx context.Context, id string) error
}

// LineItemRepository persists order lines.
type LineItemRepository interface {
	Create(ctx context.Context, li *domain.LineItem) error
	GetByID(ctx context.Context, id string) (*domain.LineItem, error)

	// UpdateLine rewrites quantity, subtotal, and change note.
	UpdateLine(ctx context.Context, li *domain.LineItem) error

	Delete(ctx context.Context, id string) error

	// ListOpenByProduct returns lines referencing the product whose owning
	// order is still open, locking them for the caller's transaction.
	ListOpenByProduct(ctx context.Context, productID string) ([]domain.LineItem, error)

	// ClearChangeNotes blanks the change note on every line of the order.
	ClearChangeNotes(ctx context.Context, orderID string) error

	SetRated(ctx context.Context, id string, rated bool) error

	// ClearRatedForConsumerProduct resets the rated flag on every line the
	// consumer ever bought of the product.
	ClearRatedForConsumerProduct(ctx context.Context, consumerID, productID string) error
}

// RatingRepository persists ratings.
type RatingRepository interface {
	Create(ctx context.Context, r *domain.Rating) error
	GetByID(ctx context.Context, id string) (*domain.Rating, error)
	Update(ctx context.Context, r *domain.Rating) error
	Delete(ctx context.Context, id string) error

	// ExistsForConsumerProduct enforces the one-rating-per-product rule.
	ExistsForConsumerProduct(ctx context.Context, consumerID, productID string) (bool, error)

	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error)
	ListByConsumer(ctx context.Context, consumerID string, page, perPage int) ([]domain.Rating, int, error)
}
