package inventory

import (
	"context"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/repository"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

var stockDecrements = promauto.NewCounter(prometheus.CounterOpts{
	Name: "inventory_stock_decrements_total",
	Help: "Units of stock decremented by committed placements",
})

// Ledger owns all stock accounting. The soft check is advisory and may race;
// only ReserveAll, run inside a placement transaction, actually spends stock.
type Ledger struct {
	products repository.ProductRepository
	cache    *StockCache
	logger   *slog.Logger
}

// NewLedger creates a ledger over the pool-backed product repository. The
// cache is optional; a nil cache sends every soft check to the database.
func NewLedger(products repository.ProductRepository, cache *StockCache, logger *slog.Logger) *Ledger {
	return &Ledger{products: products, cache: cache, logger: logger}
}

// CurrentStock reads the live stock level from the database.
func (l *Ledger) CurrentStock(ctx context.Context, productID string) (int, error) {
	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// SoftCheck rejects a request that obviously exceeds available stock. It
// reserves nothing: two carts may both pass for the same last unit, and
// placement settles the race. Prefers the cache; falls through to the
// database on a miss and backfills.
func (l *Ledger) SoftCheck(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}

	if l.cache != nil {
		if stock, ok := l.cache.Get(ctx, productID); ok {
			if quantity > stock {
				return apperrors.InsufficientStock([]apperrors.Shortage{
					{ProductID: productID, Requested: quantity, Available: stock},
				})
			}
			return nil
		}
	}

	stock, err := l.CurrentStock(ctx, productID)
	if err != nil {
		return err
	}
	if l.cache != nil {
		l.cache.Set(ctx, productID, stock)
	}

	if quantity > stock {
		return apperrors.InsufficientStock([]apperrors.Shortage{
			{ProductID: productID, Requested: quantity, Available: stock},
		})
	}

	return nil
}

// ReserveAll is the hard check: inside the caller's placement transaction it
// locks every product, verifies every line against live stock, and only then
// decrements. Products are locked in id order so concurrent placements
// cannot deadlock. On any shortage nothing is decremented and the error
// carries every offending product, not just the first.
//
// The products repository must be scoped to the placement transaction.
func (l *Ledger) ReserveAll(ctx context.Context, products repository.ProductRepository, items []domain.LineItem) error {
	sorted := make([]domain.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	var shortages []apperrors.Shortage
	for _, item := range sorted {
		p, err := products.GetForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if item.Quantity > p.Stock {
			shortages = append(shortages, apperrors.Shortage{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: p.Stock,
			})
		}
	}

	if len(shortages) > 0 {
		return apperrors.InsufficientStock(shortages)
	}

	for _, item := range sorted {
		if err := products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		stockDecrements.Add(float64(item.Quantity))
	}

	return nil
}

// Invalidate drops cached stock for the given products. Called after a
// committed mutation so soft checks converge on the new level.
func (l *Ledger) Invalidate(ctx context.Context, productIDs ...string) {
	if l.cache == nil {
		return
	}
	for _, id := range productIDs {
		l.cache.Invalidate(ctx, id)
	}
}
