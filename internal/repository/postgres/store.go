package postgres

import (
	"github.com/fieldmarket/marketplace/pkg/database"
)

// Store bundles every repository over a single query surface. Built over the
// pool it serves plain reads; built over a transaction it scopes all
// repositories to that transaction, which is how services run multi-entity
// mutations atomically.
type Store struct {
	Consumers *ConsumerRepository
	Sellers   *SellerRepository
	Products  *ProductRepository
	Orders    *OrderRepository
	LineItems *LineItemRepository
	Ratings   *RatingRepository
}

// NewStore creates a repository bundle over the given query surface.
func NewStore(db database.DBTX) *Store {
	return &Store{
		Consumers: NewConsumerRepository(db),
		Sellers:   NewSellerRepository(db),
		Products:  NewProductRepository(db),
		Orders:    NewOrderRepository(db),
		LineItems: NewLineItemRepository(db),
		Ratings:   NewRatingRepository(db),
	}
}
