package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/event"
	"github.com/fieldmarket/marketplace/internal/inventory"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// ProductService implements seller-side listing management. Edits that touch
// price or stock flow through the cart synchronizer so open carts stay
// consistent with what the seller now offers.
type ProductService struct {
	store  *postgres.Store
	ledger *inventory.Ledger
	sync   *SyncService
	events event.Publisher
	logger *slog.Logger
}

// NewProductService creates the product service.
func NewProductService(store *postgres.Store, ledger *inventory.Ledger, sync *SyncService, events event.Publisher, logger *slog.Logger) *ProductService {
	return &ProductService{
		store:  store,
		ledger: ledger,
		sync:   sync,
		events: events,
		logger: logger,
	}
}

// CreateProductInput holds the parameters for a new listing.
type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int
}

// CreateProduct lists a new product for the acting seller.
func (s *ProductService) CreateProduct(ctx context.Context, actor domain.Actor, input CreateProductInput) (*domain.Product, error) {
	if actor.Kind != domain.ActorSeller {
		return nil, apperrors.Unauthorized("only sellers may list products")
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	if _, err := s.store.Sellers.GetByID(ctx, actor.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		SellerID:    actor.ID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product listed",
		slog.String("product_id", product.ID),
		slog.String("seller_id", actor.ID),
		slog.Int64("price", product.Price),
		slog.Int("stock", product.Stock),
	)

	return product, nil
}

// GetProduct retrieves a product by id.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.Products.GetByID(ctx, id)
}

// ListSellerProducts returns a seller's listings.
func (s *ProductService) ListSellerProducts(ctx context.Context, sellerID string, page, perPage int) ([]domain.Product, int, error) {
	page, perPage = clampPage(page, perPage)
	return s.store.Products.ListBySeller(ctx, sellerID, page, perPage)
}

// UpdateProductInput holds the editable listing fields.
type UpdateProductInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int
}

// UpdateProduct rewrites the listing and, when price changed or stock
// shrank, rewrites every open cart line that references it. Returns the
// updated product and the number of cart lines adjusted.
func (s *ProductService) UpdateProduct(ctx context.Context, actor domain.Actor, productID string, input UpdateProductInput) (*domain.Product, int, error) {
	if input.Price <= 0 {
		return nil, 0, apperrors.InvalidInput("price must be positive")
	}
	if input.Stock < 0 {
		return nil, 0, apperrors.InvalidInput("stock must not be negative")
	}

	product, err := s.store.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, 0, err
	}
	if !actor.IsSeller(product.SellerID) {
		return nil, 0, apperrors.Unauthorized("product belongs to another seller")
	}

	oldPrice := product.Price
	oldStock := product.Stock

	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.Stock = input.Stock

	if err := s.store.Products.UpdateListing(ctx, product); err != nil {
		return nil, 0, err
	}
	s.ledger.Invalidate(ctx, product.ID)

	if err := s.events.ProductUpdated(ctx, product, oldPrice, oldStock); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	adjusted := 0
	if product.Price != oldPrice || product.Stock < oldStock {
		adjusted, err = s.sync.SyncProduct(ctx, product, oldPrice)
		if err != nil {
			return nil, 0, fmt.Errorf("synchronize open carts: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.Int64("old_price", oldPrice),
		slog.Int64("new_price", product.Price),
		slog.Int("old_stock", oldStock),
		slog.Int("new_stock", product.Stock),
		slog.Int("cart_lines_adjusted", adjusted),
	)

	return product, adjusted, nil
}

// Restock adds stock without touching price or open carts.
func (s *ProductService) Restock(ctx context.Context, actor domain.Actor, productID string, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}

	product, err := s.store.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !actor.IsSeller(product.SellerID) {
		return apperrors.Unauthorized("product belongs to another seller")
	}

	if err := s.store.Products.AddStock(ctx, productID, quantity); err != nil {
		return err
	}
	s.ledger.Invalidate(ctx, productID)

	s.logger.InfoContext(ctx, "product restocked",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return nil
}

// DeleteProduct removes a listing.
func (s *ProductService) DeleteProduct(ctx context.Context, actor domain.Actor, productID string) error {
	product, err := s.store.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !actor.IsSeller(product.SellerID) {
		return apperrors.Unauthorized("product belongs to another seller")
	}

	if err := s.store.Products.Delete(ctx, productID); err != nil {
		return err
	}
	s.ledger.Invalidate(ctx, productID)

	s.logger.InfoContext(ctx, "product delisted",
		slog.String("product_id", productID),
		slog.String("seller_id", actor.ID),
	)

	return nil
}
