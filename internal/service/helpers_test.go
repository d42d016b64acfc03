package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/inventory"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/internal/txn"
	"github.com/fieldmarket/marketplace/pkg/database"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testDeps bundles the mock-backed wiring shared by every service test.
type testDeps struct {
	mock    pgxmock.PgxPoolIface
	store   *postgres.Store
	txn     *txn.Coordinator
	ledger  *inventory.Ledger
	events  *publisherRecorder
	capture *captureRecorder
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()

	mock := database.NewMockPool(t)
	store := postgres.NewStore(mock)

	return &testDeps{
		mock:    mock,
		store:   store,
		txn:     txn.NewCoordinator(mock, testLogger()),
		ledger:  inventory.NewLedger(store.Products, nil, testLogger()),
		events:  &publisherRecorder{},
		capture: &captureRecorder{},
	}
}

// publisherRecorder records published events in place of Kafka.
type publisherRecorder struct {
	placedOrders  []string
	statusChanges []string
	products      []string
	cartSyncs     []string
	ratingActions []string
	err           error
}

func (p *publisherRecorder) OrderPlaced(_ context.Context, o *domain.Order) error {
	p.placedOrders = append(p.placedOrders, o.ID)
	return p.err
}

func (p *publisherRecorder) OrderStatusChanged(_ context.Context, orderID, oldStatus, newStatus string) error {
	p.statusChanges = append(p.statusChanges, fmt.Sprintf("%s:%s->%s", orderID, oldStatus, newStatus))
	return p.err
}

func (p *publisherRecorder) ProductUpdated(_ context.Context, product *domain.Product, _ int64, _ int) error {
	p.products = append(p.products, product.ID)
	return p.err
}

func (p *publisherRecorder) CartSynchronized(_ context.Context, orderID, _ string, _ int64) error {
	p.cartSyncs = append(p.cartSyncs, orderID)
	return p.err
}

func (p *publisherRecorder) RatingChanged(_ context.Context, action string, _ *domain.Rating) error {
	p.ratingActions = append(p.ratingActions, action)
	return p.err
}

// captureRecorder records payment captures in place of the gateway.
type captureRecorder struct {
	orders  []string
	amounts []int64
	err     error
}

func (c *captureRecorder) Capture(_ context.Context, orderID string, amount int64) error {
	c.orders = append(c.orders, orderID)
	c.amounts = append(c.amounts, amount)
	return c.err
}

var productCols = []string{
	"id", "seller_id", "name", "description", "price", "stock",
	"total_rating", "rating_count", "average_rating", "created_at", "updated_at",
}

func productRow(id, sellerID string, price int64, stock int) *pgxmock.Rows {
	return pgxmock.NewRows(productCols).AddRow(
		id, sellerID, "Raw honey 500g", "", price, stock,
		float64(0), 0, float64(0), testTime, testTime,
	)
}

var orderCols = []string{
	"id", "consumer_id", "status", "total_amount", "shipping",
	"created_at", "placed_at", "updated_at",
}

func orderRow(id, consumerID, status string, total int64) *pgxmock.Rows {
	return pgxmock.NewRows(orderCols).AddRow(
		id, consumerID, status, total, []byte(nil), testTime, nil, testTime,
	)
}

var lineItemCols = []string{
	"id", "order_id", "product_id", "seller_id", "name",
	"quantity", "line_subtotal", "rated", "change_note",
	"created_at", "updated_at",
}

type lineRow struct {
	id        string
	orderID   string
	productID string
	sellerID  string
	quantity  int
	subtotal  int64
	rated     bool
}

func lineItemRows(lines ...lineRow) *pgxmock.Rows {
	rows := pgxmock.NewRows(lineItemCols)
	for _, l := range lines {
		rows.AddRow(
			l.id, l.orderID, l.productID, l.sellerID, "Raw honey 500g",
			l.quantity, l.subtotal, l.rated, (*string)(nil), testTime, testTime,
		)
	}
	return rows
}

var ratingCols = []string{
	"id", "consumer_id", "product_id", "line_item_id",
	"score", "comment", "created_at", "updated_at",
}

func ratingRow(id, consumerID, productID, lineItemID string, score int) *pgxmock.Rows {
	return pgxmock.NewRows(ratingCols).AddRow(
		id, consumerID, productID, lineItemID, score, "", testTime, testTime,
	)
}
