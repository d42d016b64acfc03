package service

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/event"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/internal/txn"
)

// SyncService propagates a seller's price and stock edits into open carts.
// Each affected line is adjusted in its own transaction, atomic with its
// order's total, so one consumer's conflict never blocks the rest. Orders
// past created status are never touched.
type SyncService struct {
	store  *postgres.Store
	txn    *txn.Coordinator
	events event.Publisher
	logger *slog.Logger
}

// NewSyncService creates the cart synchronizer.
func NewSyncService(store *postgres.Store, coordinator *txn.Coordinator, events event.Publisher, logger *slog.Logger) *SyncService {
	return &SyncService{
		store:  store,
		txn:    coordinator,
		events: events,
		logger: logger,
	}
}

// SyncProduct rewrites every open cart line referencing the product after a
// seller edit. Returns the number of lines adjusted. Per-line failures are
// logged and skipped; the remaining lines still synchronize.
func (s *SyncService) SyncProduct(ctx context.Context, product *domain.Product, oldPrice int64) (int, error) {
	lines, err := s.store.LineItems.ListOpenByProduct(ctx, product.ID)
	if err != nil {
		return 0, err
	}

	adjusted := 0
	for _, line := range lines {
		totalDelta, err := s.syncLine(ctx, line.ID, product, oldPrice)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to synchronize cart line",
				slog.String("line_item_id", line.ID),
				slog.String("order_id", line.OrderID),
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if totalDelta == 0 {
			continue
		}
		adjusted++

		if err := s.events.CartSynchronized(ctx, line.OrderID, product.ID, totalDelta); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.synchronized event",
				slog.String("order_id", line.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	if adjusted > 0 {
		s.logger.InfoContext(ctx, "open carts synchronized",
			slog.String("product_id", product.ID),
			slog.Int("lines_adjusted", adjusted),
		)
	}

	return adjusted, nil
}

// syncLine adjusts one line in its own transaction and returns the delta
// applied to the owning order's total.
func (s *SyncService) syncLine(ctx context.Context, lineItemID string, product *domain.Product, oldPrice int64) (int64, error) {
	var totalDelta int64

	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)
		totalDelta = 0

		line, err := store.LineItems.GetByID(ctx, lineItemID)
		if err != nil {
			return err
		}

		// The order may have been placed (or the cart destroyed) between
		// listing and now. Lock its row before the status check so a racing
		// placement either commits first and is seen here, or waits behind
		// this adjustment.
		order, err := store.Orders.GetForUpdate(ctx, line.OrderID)
		if err != nil {
			return err
		}
		if !order.IsOpen() {
			return nil
		}

		changed := false

		if product.Price != oldPrice {
			delta := (product.Price - oldPrice) * int64(line.Quantity)
			line.LineSubtotal += delta
			totalDelta += delta
			if product.Price > oldPrice {
				line.AppendChangeNote(domain.NotePriceIncreased)
			} else {
				line.AppendChangeNote(domain.NotePriceDecreased)
			}
			changed = true
		}

		if product.Stock < line.Quantity {
			// Clip to what the seller still has; the removed units come
			// off at the new price the subtotal now reflects.
			removed := int64(line.Quantity-product.Stock) * product.Price
			line.LineSubtotal -= removed
			line.Quantity = product.Stock
			totalDelta -= removed
			line.AppendChangeNote(domain.NoteStockReduced)
			changed = true
		}

		if !changed {
			return nil
		}

		if err := store.LineItems.UpdateLine(ctx, line); err != nil {
			return err
		}
		return store.Orders.AdjustTotal(ctx, order.ID, totalDelta)
	})
	if err != nil {
		return 0, err
	}

	return totalDelta, nil
}
