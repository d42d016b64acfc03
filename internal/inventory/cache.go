package inventory

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// StockCache is an advisory read cache of product stock levels backed by
// Redis. It only ever serves soft checks; placement reads the database under
// lock, so a stale cache entry can never cause overselling.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStockCache creates a stock cache with the given entry TTL.
func NewStockCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StockCache {
	return &StockCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached stock level and whether it was present. Cache
// errors are logged and reported as a miss.
func (c *StockCache) Get(ctx context.Context, productID string) (int, bool) {
	val, err := c.client.Get(ctx, stockKeyPrefix+productID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "stock cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
		return 0, false
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return stock, true
}

// Set stores the stock level with the configured TTL. Failures are logged
// and ignored; the cache is best effort.
func (c *StockCache) Set(ctx context.Context, productID string, stock int) {
	if err := c.client.Set(ctx, stockKeyPrefix+productID, strconv.Itoa(stock), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stock cache write failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops the cached entry, forcing the next soft check to read the
// database. Called after any mutation that changes stock.
func (c *StockCache) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, stockKeyPrefix+productID).Err(); err != nil {
		c.logger.WarnContext(ctx, "stock cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
