package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldmarket/marketplace/internal/domain"
	pkgkafka "github.com/fieldmarket/marketplace/pkg/kafka"
	"github.com/fieldmarket/marketplace/pkg/logger"
)

// Kafka topics for marketplace domain events.
const (
	TopicOrderPlaced      = "marketplace.order.placed"
	TopicOrderDelivered   = "marketplace.order.delivered"
	TopicOrderCompleted   = "marketplace.order.completed"
	TopicProductUpdated   = "marketplace.product.updated"
	TopicCartSynchronized = "marketplace.cart.synchronized"
	TopicRatingChanged    = "marketplace.rating.changed"
)

// Entity constants for the envelope.
const (
	EntityOrder   = "order"
	EntityProduct = "product"
	EntityCart    = "cart"
	EntityRating  = "rating"
)

// Source identifier for events originating from this service.
const Source = "marketplace"

// Publisher is the event surface the services depend on. Publish failures
// are logged by callers and never fail the business operation; the database
// is the source of truth.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *domain.Order) error
	OrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error
	ProductUpdated(ctx context.Context, p *domain.Product, oldPrice int64, oldStock int) error
	CartSynchronized(ctx context.Context, orderID, productID string, totalDelta int64) error
	RatingChanged(ctx context.Context, action string, r *domain.Rating) error
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID     string          `json:"order_id"`
	ConsumerID  string          `json:"consumer_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderLineData `json:"items"`
}

// OrderLineData is the event payload for one order line.
type OrderLineData struct {
	LineItemID   string `json:"line_item_id"`
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	LineSubtotal int64  `json:"line_subtotal"`
}

// OrderStatusChangedData is the payload for delivery and completion events.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// ProductUpdatedData is the payload for a product.updated event.
type ProductUpdatedData struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	OldPrice  int64  `json:"old_price"`
	NewPrice  int64  `json:"new_price"`
	OldStock  int    `json:"old_stock"`
	NewStock  int    `json:"new_stock"`
}

// CartSynchronizedData is the payload for a cart.synchronized event.
type CartSynchronizedData struct {
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	TotalDelta int64  `json:"total_delta"`
}

// RatingChangedData is the payload for rating create/update/delete events.
type RatingChangedData struct {
	Action     string `json:"action"`
	RatingID   string `json:"rating_id"`
	ConsumerID string `json:"consumer_id"`
	ProductID  string `json:"product_id"`
	Score      int    `json:"score"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates the Kafka-backed event publisher.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, key, entity string, payload any) error {
	env, err := pkgkafka.NewEnvelope(topic, key, entity, Source, payload)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		env.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, env); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

// OrderPlaced publishes the full order snapshot taken at placement.
func (p *Producer) OrderPlaced(ctx context.Context, o *domain.Order) error {
	items := make([]OrderLineData, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderLineData{
			LineItemID:   item.ID,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			LineSubtotal: item.LineSubtotal,
		}
	}

	return p.publish(ctx, TopicOrderPlaced, o.ID, EntityOrder, OrderPlacedData{
		OrderID:     o.ID,
		ConsumerID:  o.ConsumerID,
		TotalAmount: o.TotalAmount,
		Items:       items,
	})
}

// OrderStatusChanged publishes a delivery or completion transition.
func (p *Producer) OrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	topic := TopicOrderDelivered
	if newStatus == domain.OrderStatusCompleted {
		topic = TopicOrderCompleted
	}

	return p.publish(ctx, topic, orderID, EntityOrder, OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

// ProductUpdated publishes a seller's listing edit.
func (p *Producer) ProductUpdated(ctx context.Context, product *domain.Product, oldPrice int64, oldStock int) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, EntityProduct, ProductUpdatedData{
		ProductID: product.ID,
		SellerID:  product.SellerID,
		OldPrice:  oldPrice,
		NewPrice:  product.Price,
		OldStock:  oldStock,
		NewStock:  product.Stock,
	})
}

// CartSynchronized publishes one open cart's adjustment after a seller edit.
func (p *Producer) CartSynchronized(ctx context.Context, orderID, productID string, totalDelta int64) error {
	return p.publish(ctx, TopicCartSynchronized, orderID, EntityCart, CartSynchronizedData{
		OrderID:    orderID,
		ProductID:  productID,
		TotalDelta: totalDelta,
	})
}

// RatingChanged publishes a rating mutation; action is one of created,
// updated, deleted.
func (p *Producer) RatingChanged(ctx context.Context, action string, r *domain.Rating) error {
	return p.publish(ctx, TopicRatingChanged, r.ProductID, EntityRating, RatingChangedData{
		Action:     action,
		RatingID:   r.ID,
		ConsumerID: r.ConsumerID,
		ProductID:  r.ProductID,
		Score:      r.Score,
	})
}
