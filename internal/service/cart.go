package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/inventory"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/internal/txn"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// CartService owns the consumer's open order: adding and merging lines,
// partial removal, and change-note acknowledgement. Every mutation keeps the
// order total equal to the sum of its line subtotals.
type CartService struct {
	store  *postgres.Store
	txn    *txn.Coordinator
	ledger *inventory.Ledger
	logger *slog.Logger
}

// NewCartService creates the cart service. The store must be pool-backed;
// mutations build transaction-scoped stores internally.
func NewCartService(store *postgres.Store, coordinator *txn.Coordinator, ledger *inventory.Ledger, logger *slog.Logger) *CartService {
	return &CartService{
		store:  store,
		txn:    coordinator,
		ledger: ledger,
		logger: logger,
	}
}

// AddItem puts quantity units of a product into the consumer's cart,
// creating the cart lazily and merging into an existing line for the same
// product. The stock check here is advisory; placement is where stock is
// actually spent.
func (s *CartService) AddItem(ctx context.Context, consumerID, productID string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	if _, err := s.store.Consumers.GetByID(ctx, consumerID); err != nil {
		return nil, err
	}

	// Advisory pre-check outside the transaction; catches the obviously
	// impossible request cheaply via the stock cache.
	if err := s.ledger.SoftCheck(ctx, productID, quantity); err != nil {
		return nil, err
	}

	cart, err := s.addItemTx(ctx, consumerID, productID, quantity)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		// Lost the lazy-creation race: a concurrent request committed the
		// cart between our locked read and our insert. It exists now, so a
		// second attempt locks it and merges instead of creating.
		cart, err = s.addItemTx(ctx, consumerID, productID, quantity)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("consumer_id", consumerID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
		slog.Int64("cart_total", cart.TotalAmount),
	)

	return cart, nil
}

func (s *CartService) addItemTx(ctx context.Context, consumerID, productID string, quantity int) (*domain.Order, error) {
	var cart *domain.Order
	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		product, err := store.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}

		// Lock the cart row so concurrent additions serialize; the loser of
		// the lock sees the winner's line and merges into it.
		cart, err = store.Orders.GetCartForUpdate(ctx, consumerID)
		if apperrors.IsNotFound(err) {
			cart = newCart(consumerID)
			if err := store.Orders.Create(ctx, cart); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if existing := findLineByProduct(cart, productID); existing != nil {
			merged := existing.Quantity + quantity
			if merged > product.Stock {
				return apperrors.InsufficientStock([]apperrors.Shortage{
					{ProductID: productID, Requested: merged, Available: product.Stock},
				})
			}
			existing.Quantity = merged
			existing.LineSubtotal = product.Price * int64(merged)
			if err := store.LineItems.UpdateLine(ctx, existing); err != nil {
				return err
			}
		} else {
			if quantity > product.Stock {
				return apperrors.InsufficientStock([]apperrors.Shortage{
					{ProductID: productID, Requested: quantity, Available: product.Stock},
				})
			}
			now := time.Now().UTC()
			line := domain.LineItem{
				ID:           uuid.New().String(),
				OrderID:      cart.ID,
				ProductID:    productID,
				SellerID:     product.SellerID,
				ProductName:  product.Name,
				Quantity:     quantity,
				LineSubtotal: product.Price * int64(quantity),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := store.LineItems.Create(ctx, &line); err != nil {
				return err
			}
			cart.Items = append(cart.Items, line)
		}

		cart.RecomputeTotal()
		return store.Orders.UpdateTotal(ctx, cart.ID, cart.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// RemoveItem takes quantity units off a cart line. Removing the line's whole
// quantity deletes the line, and deleting the last line destroys the cart.
// Partial removal scales the subtotal by the line's own implied rate, since
// the product's live price may have drifted since the line was added.
func (s *CartService) RemoveItem(ctx context.Context, consumerID, lineItemID string, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	var cart *domain.Order
	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		var err error
		cart, err = store.Orders.GetCartForUpdate(ctx, consumerID)
		if err != nil {
			return err
		}

		line := findLineByID(cart, lineItemID)
		if line == nil {
			return apperrors.NotFound("line item", lineItemID)
		}

		if quantity >= line.Quantity {
			if err := store.LineItems.Delete(ctx, line.ID); err != nil {
				return err
			}
			removeLine(cart, line.ID)

			if len(cart.Items) == 0 {
				// Last line gone: the cart itself disappears.
				if err := store.Orders.Delete(ctx, cart.ID); err != nil {
					return err
				}
				cart = nil
				return nil
			}
		} else {
			line.Rescale(line.Quantity - quantity)
			if err := store.LineItems.UpdateLine(ctx, line); err != nil {
				return err
			}
		}

		cart.RecomputeTotal()
		return store.Orders.UpdateTotal(ctx, cart.ID, cart.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("consumer_id", consumerID),
		slog.String("line_item_id", lineItemID),
		slog.Int("quantity", quantity),
		slog.Bool("cart_destroyed", cart == nil),
	)

	return cart, nil
}

// GetCart returns the consumer's open cart with its lines.
func (s *CartService) GetCart(ctx context.Context, consumerID string) (*domain.Order, error) {
	cart, err := s.store.Orders.GetCart(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AcknowledgeChanges clears the change notes left by seller-edit
// synchronization on every line of the consumer's cart.
func (s *CartService) AcknowledgeChanges(ctx context.Context, consumerID string) error {
	cart, err := s.store.Orders.GetCart(ctx, consumerID)
	if apperrors.IsNotFound(err) {
		// Nothing open means nothing to acknowledge.
		return nil
	}
	if err != nil {
		return fmt.Errorf("get cart for acknowledgement: %w", err)
	}

	if err := s.store.LineItems.ClearChangeNotes(ctx, cart.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart changes acknowledged",
		slog.String("consumer_id", consumerID),
		slog.String("order_id", cart.ID),
	)

	return nil
}

func newCart(consumerID string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:         uuid.New().String(),
		ConsumerID: consumerID,
		Status:     domain.OrderStatusCreated,
		Items:      []domain.LineItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func findLineByProduct(o *domain.Order, productID string) *domain.LineItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

func findLineByID(o *domain.Order, lineItemID string) *domain.LineItem {
	for i := range o.Items {
		if o.Items[i].ID == lineItemID {
			return &o.Items[i]
		}
	}
	return nil
}

func removeLine(o *domain.Order, lineItemID string) {
	for i := range o.Items {
		if o.Items[i].ID == lineItemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return
		}
	}
}
