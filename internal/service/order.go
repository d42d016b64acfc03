package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/event"
	"github.com/fieldmarket/marketplace/internal/inventory"
	"github.com/fieldmarket/marketplace/internal/payment"
	"github.com/fieldmarket/marketplace/internal/repository"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/internal/txn"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// OrderService drives the order lifecycle: placement with the authoritative
// stock check, delivery by a seller with goods in the order, and receipt
// confirmation by the owning consumer.
type OrderService struct {
	store   *postgres.Store
	txn     *txn.Coordinator
	ledger  *inventory.Ledger
	payment payment.CaptureClient
	events  event.Publisher
	logger  *slog.Logger
}

// NewOrderService creates the order service.
func NewOrderService(
	store *postgres.Store,
	coordinator *txn.Coordinator,
	ledger *inventory.Ledger,
	capture payment.CaptureClient,
	events event.Publisher,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		store:   store,
		txn:     coordinator,
		ledger:  ledger,
		payment: capture,
		events:  events,
		logger:  logger,
	}
}

// Place turns the actor's cart into a placed order. The whole placement runs
// serializable: every line is re-validated against live stock under lock and
// either all decrements commit or none do, so two placements racing for the
// last unit cannot both succeed. The cart stays open on failure.
func (s *OrderService) Place(ctx context.Context, actor domain.Actor, shipping *domain.Shipping) (*domain.Order, error) {
	if actor.Kind != domain.ActorConsumer {
		return nil, apperrors.Unauthorized("only consumers place orders")
	}
	if shipping == nil {
		return nil, apperrors.InvalidInput("shipping details are required")
	}

	var order *domain.Order
	err := s.txn.Serializable(ctx, "place_order", func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		var err error
		order, err = store.Orders.GetCart(ctx, actor.ID)
		if err != nil {
			return err
		}
		if len(order.Items) == 0 {
			return apperrors.InvalidState("cart is empty")
		}

		if err := s.ledger.ReserveAll(ctx, store.Products, order.Items); err != nil {
			return err
		}

		return store.Orders.MarkPlaced(ctx, order.ID, shipping)
	})
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusPlaced
	order.Shipping = shipping

	productIDs := make([]string, len(order.Items))
	for i, item := range order.Items {
		productIDs[i] = item.ProductID
	}
	s.ledger.Invalidate(ctx, productIDs...)

	// Capture is confirmation after the fact; a failure here is retried out
	// of band and never unwinds the placement.
	if err := s.payment.Capture(ctx, order.ID, order.TotalAmount); err != nil {
		s.logger.ErrorContext(ctx, "payment capture failed",
			slog.String("order_id", order.ID),
			slog.Int64("amount", order.TotalAmount),
			slog.String("error", err.Error()),
		)
	}

	if err := s.events.OrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("consumer_id", actor.ID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("line_count", len(order.Items)),
	)

	return order, nil
}

// MarkDelivered moves a placed order to delivered. The actor must be a
// seller with at least one of their products in the order.
func (s *OrderService) MarkDelivered(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if actor.Kind != domain.ActorSeller {
		return nil, apperrors.Unauthorized("only sellers mark orders delivered")
	}

	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.ContainsProductOf(actor.ID) {
		return nil, apperrors.Unauthorized("order contains none of the seller's products")
	}
	if !order.CanTransitionTo(domain.OrderStatusDelivered) {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("cannot mark a %s order delivered", order.Status))
	}

	return s.transition(ctx, order, domain.OrderStatusDelivered)
}

// ConfirmReceipt moves a delivered order to completed. Only the owning
// consumer may confirm; completion unlocks rating for every line.
func (s *OrderService) ConfirmReceipt(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if actor.Kind != domain.ActorConsumer {
		return nil, apperrors.Unauthorized("only consumers confirm receipt")
	}

	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ConsumerID != actor.ID {
		return nil, apperrors.Unauthorized("order belongs to another consumer")
	}
	if !order.CanTransitionTo(domain.OrderStatusCompleted) {
		return nil, apperrors.InvalidState(
			fmt.Sprintf("cannot confirm receipt of a %s order", order.Status))
	}

	return s.transition(ctx, order, domain.OrderStatusCompleted)
}

// GetOrder retrieves an order for an actor with a relation to it: the owning
// consumer, or a seller with goods in it.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Kind {
	case domain.ActorConsumer:
		if order.ConsumerID != actor.ID {
			return nil, apperrors.Unauthorized("order belongs to another consumer")
		}
	case domain.ActorSeller:
		if !order.ContainsProductOf(actor.ID) {
			return nil, apperrors.Unauthorized("order contains none of the seller's products")
		}
	default:
		return nil, apperrors.Unauthorized("unknown actor")
	}

	return order, nil
}

// ListOrders returns a filtered, paginated order history.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor, status *string, page, perPage int) ([]domain.Order, int, error) {
	page, perPage = clampPage(page, perPage)

	filter := repository.OrderFilter{Status: status, Page: page, PerPage: perPage}
	switch actor.Kind {
	case domain.ActorConsumer:
		filter.ConsumerID = &actor.ID
	case domain.ActorSeller:
		filter.SellerID = &actor.ID
	default:
		return nil, 0, apperrors.Unauthorized("unknown actor")
	}

	return s.store.Orders.List(ctx, filter)
}

func (s *OrderService) transition(ctx context.Context, order *domain.Order, newStatus string) (*domain.Order, error) {
	oldStatus := order.Status
	if err := s.store.Orders.UpdateStatus(ctx, order.ID, oldStatus, newStatus); err != nil {
		return nil, err
	}
	order.Status = newStatus

	if err := s.events.OrderStatusChanged(ctx, order.ID, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status event",
			slog.String("order_id", order.ID),
			slog.String("new_status", newStatus),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	return order, nil
}
