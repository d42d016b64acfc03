package inventory

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

var productCols = []string{
	"id", "seller_id", "name", "description", "price", "stock",
	"total_rating", "rating_count", "average_rating", "created_at", "updated_at",
}

func productRow(id string, stock int) *pgxmock.Rows {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(productCols).AddRow(
		id, "seller-1", "Raw honey 500g", "", int64(1000), stock,
		float64(0), 0, float64(0), ts, ts,
	)
}

func newCache(t *testing.T) (*StockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStockCache(client, time.Minute, slog.New(slog.DiscardHandler)), mr
}

func TestSoftCheck_CacheMissReadsDatabaseAndBackfills(t *testing.T) {
	mock := database.NewMockPool(t)
	cache, mr := newCache(t)
	ledger := NewLedger(postgres.NewProductRepository(mock), cache, slog.New(slog.DiscardHandler))

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("prod-1").
		WillReturnRows(productRow("prod-1", 5))

	require.NoError(t, ledger.SoftCheck(context.Background(), "prod-1", 3))

	// Backfilled; second check hits the cache, no further query expected.
	got, err := mr.Get("stock:prod-1")
	require.NoError(t, err)
	assert.Equal(t, "5", got)

	require.NoError(t, ledger.SoftCheck(context.Background(), "prod-1", 5))
}

func TestSoftCheck_RejectsImpossibleRequest(t *testing.T) {
	mock := database.NewMockPool(t)
	cache, _ := newCache(t)
	ledger := NewLedger(postgres.NewProductRepository(mock), cache, slog.New(slog.DiscardHandler))

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("prod-1").
		WillReturnRows(productRow("prod-1", 2))

	err := ledger.SoftCheck(context.Background(), "prod-1", 3)
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Shortages, 1)
	assert.Equal(t, 2, appErr.Shortages[0].Available)
}

func TestSoftCheck_InvalidQuantity(t *testing.T) {
	ledger := NewLedger(nil, nil, slog.New(slog.DiscardHandler))

	assert.ErrorIs(t, ledger.SoftCheck(context.Background(), "prod-1", 0), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, ledger.SoftCheck(context.Background(), "prod-1", -2), apperrors.ErrInvalidInput)
}

func TestReserveAll_LocksInIDOrderAndDecrements(t *testing.T) {
	mock := database.NewMockPool(t)
	ledger := NewLedger(nil, nil, slog.New(slog.DiscardHandler))

	items := []domain.LineItem{
		{ProductID: "prod-b", Quantity: 1},
		{ProductID: "prod-a", Quantity: 2},
	}

	// Locks happen in sorted product id order regardless of cart order.
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-a").
		WillReturnRows(productRow("prod-a", 10))
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-b").
		WillReturnRows(productRow("prod-b", 10))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(2, "prod-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products SET stock = stock - \$1`).
		WithArgs(1, "prod-b").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := ledger.ReserveAll(context.Background(), postgres.NewProductRepository(mock), items)
	require.NoError(t, err)
}

func TestReserveAll_CollectsEveryShortageAndSpendsNothing(t *testing.T) {
	mock := database.NewMockPool(t)
	ledger := NewLedger(nil, nil, slog.New(slog.DiscardHandler))

	items := []domain.LineItem{
		{ProductID: "prod-a", Quantity: 5},
		{ProductID: "prod-b", Quantity: 3},
		{ProductID: "prod-c", Quantity: 1},
	}

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-a").
		WillReturnRows(productRow("prod-a", 2))
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-b").
		WillReturnRows(productRow("prod-b", 0))
	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs("prod-c").
		WillReturnRows(productRow("prod-c", 1))

	err := ledger.ReserveAll(context.Background(), postgres.NewProductRepository(mock), items)
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Shortages, 2)
	assert.Equal(t, "prod-a", appErr.Shortages[0].ProductID)
	assert.Equal(t, "prod-b", appErr.Shortages[1].ProductID)
}

func TestStockCache_InvalidateForcesReread(t *testing.T) {
	cache, mr := newCache(t)

	cache.Set(context.Background(), "prod-1", 9)
	_, ok := cache.Get(context.Background(), "prod-1")
	require.True(t, ok)

	cache.Invalidate(context.Background(), "prod-1")
	_, ok = cache.Get(context.Background(), "prod-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("stock:prod-1"))
}
